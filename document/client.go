/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package document

import (
	"context"
	"fmt"
	"time"

	"github.com/tomoncle/shopkit/database"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
)

// Config describes the document store connection.
type Config struct {
	URI                    string        `json:"uri" yaml:"uri" env:"URI" validate:"required"`
	Database               string        `json:"database" yaml:"database" env:"DATABASE" validate:"required"`
	AppName                string        `json:"app_name" yaml:"app_name" env:"APP_NAME"`
	ConnectTimeout         time.Duration `json:"connect_timeout" yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	ServerSelectionTimeout time.Duration `json:"server_selection_timeout" yaml:"server_selection_timeout" env:"SERVER_SELECTION_TIMEOUT"`
	MaxPoolSize            uint64        `json:"max_pool_size" yaml:"max_pool_size" env:"MAX_POOL_SIZE"`
}

// DefaultConfig returns a local development configuration.
func DefaultConfig() *Config {
	return &Config{
		URI:                    "mongodb://localhost:27017",
		Database:               "shopkit",
		AppName:                "shopkit",
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
		MaxPoolSize:            100,
	}
}

// Client owns a mongo client and the database every document repository of
// the process writes to. Writes are acknowledged by the primary and reads
// go to the primary, so a successful write is visible to the next read.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger database.Logger
}

// Connect creates the client and verifies the primary is reachable.
func Connect(ctx context.Context, cfg *Config) (*Client, error) {
	c, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	c.logger.Info("Document store connected successfully:", "database", cfg.Database)
	return c, nil
}

// Open creates the client without contacting the server. The driver
// connects lazily on the first operation.
func Open(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("document store configuration cannot be empty")
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create document store client: %w", err)
	}
	db := client.Database(cfg.Database, options.Database().
		SetWriteConcern(writeconcern.W1()).
		SetReadPreference(readpref.Primary()))

	return &Client{client: client, db: db, logger: database.GetLogger()}, nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database { return c.db }

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger database.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Ping checks the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return wrapStoreError("ping", err)
	}
	return nil
}

// EnsureIndexes creates the given indexes per collection.
func (c *Client) EnsureIndexes(ctx context.Context, indexes map[string][]mongo.IndexModel) error {
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		if _, err := c.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return wrapStoreError("create indexes on "+col, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to close document store connection", "error", err)
		return err
	}
	c.logger.Info("Document store connection closed")
	return nil
}
