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

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, running migrations and reporting health. A manager keeps one
// pool for its lifetime and never replaces the handle returned by GetDB.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context, registry ModelRegistry) error
	SetMigrationTable(table string)
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type                string        `json:"type" yaml:"type" env:"TYPE" validate:"required,oneof=postgres postgresql pgx mysql sqlite sqlite3"`
	Host                string        `json:"host" yaml:"host" env:"HOST"`
	Port                int           `json:"port" yaml:"port" env:"PORT" validate:"gte=0,lte=65535"`
	Username            string        `json:"username" yaml:"username" env:"USERNAME"`
	Password            string        `json:"password" yaml:"password" env:"PASSWORD"`
	DBName              string        `json:"dbname" yaml:"dbname" env:"NAME" validate:"required"`
	SSLMode             string        `json:"sslmode" yaml:"sslmode" env:"SSLMODE"`
	MaxIdleConns        int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxOpenConns        int           `json:"max_open_conns" yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	ConnMaxLifetime     time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime     time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	ConnectTimeout      time.Duration `json:"connect_timeout" yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	ReadTimeout         time.Duration `json:"read_timeout" yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout        time.Duration `json:"write_timeout" yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
	EnableQueryLog      bool          `json:"enable_query_log" yaml:"enable_query_log" env:"ENABLE_QUERY_LOG"`
	EnableTracing       bool          `json:"enable_tracing" yaml:"enable_tracing" env:"ENABLE_TRACING"`
	SlowQueryTime       time.Duration `json:"slow_query_time" yaml:"slow_query_time" env:"SLOW_QUERY_TIME"`
	Charset             string        `json:"charset" yaml:"charset" env:"CHARSET"` // MySQL:utf8mb4  、Postgres:UTF8
}

// DataMigrateConfig controls schema migration behavior on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool   `json:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup" env:"MIGRATE_ON_STARTUP"`
	TableName              string `json:"table_name" yaml:"table_name" env:"MIGRATION_TABLE"`
}

// Config aggregates connection and migration settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `json:"connection_config" yaml:"connection"`
	DataMigrateConfig DataMigrateConfig `json:"data_migrate_config" yaml:"migrate"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		MaxIdleConns:        10,
		MaxOpenConns:        100,
		ConnMaxLifetime:     time.Hour,
		ConnMaxIdleTime:     time.Minute * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		HealthCheckInterval: time.Minute * 5,
		EnableQueryLog:      false,
		SlowQueryTime:       time.Second * 2,
	}
}

// DefaultConfig returns a Config with DefaultConnectionConfig and migrations
// enabled on startup.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: *DefaultConnectionConfig(),
		DataMigrateConfig: DataMigrateConfig{
			EnableMigrateOnStartup: true,
			TableName:              DefaultMigrationTable,
		},
	}
}
