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

// Package config loads the process configuration. Sources are applied in
// order: built-in defaults, an optional .env file, an optional YAML file and
// finally environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/document"
	"github.com/tomoncle/shopkit/types"
	"github.com/tomoncle/shopkit/utils"
	"gopkg.in/yaml.v3"
)

const (
	TransportPubSub = "pubsub"
	TransportStream = "stream"
)

type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr" env:"ADDR" validate:"required"`
	Password  string `json:"password" yaml:"password" env:"PASSWORD"`
	DB        int    `json:"db" yaml:"db" env:"DB" validate:"gte=0"`
	Transport string `json:"transport" yaml:"transport" env:"TRANSPORT" validate:"oneof=pubsub stream"`
}

type PagingConfig struct {
	DefaultPageSize int `json:"default_page_size" yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE" validate:"gte=1"`
	MaxPageSize     int `json:"max_page_size" yaml:"max_page_size" env:"MAX_PAGE_SIZE" validate:"gtefield=DefaultPageSize"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"LEVEL" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format string `json:"format" yaml:"format" env:"FORMAT" validate:"omitempty,oneof=text json"`
}

type BasketConfig struct {
	KeyPrefix  string        `json:"key_prefix" yaml:"key_prefix" env:"KEY_PREFIX"`
	Expiration time.Duration `json:"expiration" yaml:"expiration" env:"EXPIRATION" validate:"gt=0"`
}

type Config struct {
	Database database.Config `json:"database" yaml:"database" envPrefix:"DB_"`
	Mongo    document.Config `json:"mongo" yaml:"mongo" envPrefix:"MONGO_"`
	Redis    RedisConfig     `json:"redis" yaml:"redis" envPrefix:"REDIS_"`
	Paging   PagingConfig    `json:"paging" yaml:"paging" envPrefix:"PAGING_"`
	Log      LogConfig       `json:"log" yaml:"log" envPrefix:"LOG_"`
	Basket   BasketConfig    `json:"basket" yaml:"basket" envPrefix:"BASKET_"`
}

// Default returns a configuration for local development.
func Default() *Config {
	db := database.DefaultConfig()
	db.ConnectionConfig.Type = "sqlite"
	db.ConnectionConfig.DBName = "shopkit"
	return &Config{
		Database: *db,
		Mongo:    *document.DefaultConfig(),
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			Transport: TransportPubSub,
		},
		Paging: PagingConfig{
			DefaultPageSize: types.DefaultPageSize,
			MaxPageSize:     types.DefaultMaxPageSize,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Basket: BasketConfig{
			KeyPrefix:  "basket:",
			Expiration: 10 * time.Hour,
		},
	}
}

// Load builds the configuration from path (may be empty) and the process
// environment. Missing env files are skipped; variables already set in the
// environment win over the files.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := loadEnvFile(f); err != nil {
			return nil, err
		}
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return types.NewArgumentError("config", err.Error())
	}
	return nil
}

// ApplyLogging configures the named loggers from the log section.
func (c *Config) ApplyLogging() {
	if c.Log.Format != "" {
		utils.ConfigureConsoleLogFormat(c.Log.Format)
	}
	if c.Log.Level != "" {
		utils.ConfigureLogLevel(c.Log.Level)
	}
}

// QueryParameters returns page parameters carrying the configured default
// page size.
func (c *Config) QueryParameters() *types.QueryParameters {
	return types.NewQueryParameters(types.DefaultPageIndex, c.Paging.DefaultPageSize)
}
