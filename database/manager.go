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
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

// MemoryDSN selects a private in-memory sqlite database.
const MemoryDSN = ":memory:"

const healthPingTimeout = 5 * time.Second

// defaultDatabaseManager owns one *bun.DB for the lifetime of the process.
// The handle is never swapped: database/sql re-dials broken connections, so
// the health monitor only reports.
type defaultDatabaseManager struct {
	config         *ConnectionConfig
	migrationTable string
	logger         Logger

	mu    sync.RWMutex
	db    *bun.DB
	sqlDB *sql.DB

	stopMonitor context.CancelFunc
	monitorDone chan struct{}
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config:         config,
		migrationTable: DefaultMigrationTable,
		logger:         GetLogger(),
	}
}

// driverFor resolves the database/sql driver, DSN and Bun dialect of cfg.
func driverFor(cfg *ConnectionConfig) (string, string, schema.Dialect, error) {
	switch cfg.Type {
	case "mysql":
		return "mysql", mysqlDSN(cfg), mysqldialect.New(), nil
	case "postgres", "postgresql":
		return "postgres", postgresDSN(cfg), pgdialect.New(), nil
	case "pgx":
		return "pgx", postgresDSN(cfg), pgdialect.New(), nil
	case "sqlite", "sqlite3":
		return sqliteshim.ShimName, sqliteDSN(cfg), sqlitedialect.New(), nil
	}
	return "", "", nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
}

func mysqlDSN(cfg *ConnectionConfig) string {
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.Local
	c.Timeout = cfg.ConnectTimeout
	c.ReadTimeout = cfg.ReadTimeout
	c.WriteTimeout = cfg.WriteTimeout
	// charset is a DSN parameter the driver resolves itself, not a session variable
	return c.FormatDSN() + "&charset=" + url.QueryEscape(charset)
}

// postgresDSN builds a URL accepted by both lib/pq and pgx.
func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(cfg *ConnectionConfig) string {
	if cfg.DBName == MemoryDSN || strings.HasSuffix(cfg.DBName, ".db") {
		return cfg.DBName
	}
	return cfg.DBName + ".db"
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	driverName, dsn, dialect, err := driverFor(dm.config)
	if err != nil {
		return err
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", dm.config.Type, err)
	}
	dm.tunePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.sqlDB = sqlDB
	dm.db = bun.NewDB(sqlDB, dialect)
	dm.addHooks(dm.db)
	if dm.config.HealthCheckInterval > 0 {
		dm.startMonitor(dm.config.HealthCheckInterval)
	}

	dm.logger.Info("Database connected", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

func (dm *defaultDatabaseManager) addHooks(db *bun.DB) {
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&SlowQueryHook{SlowTime: dm.config.SlowQueryTime, Logger: dm.logger})
	}
	if dm.config.EnableTracing {
		db.AddQueryHook(NewTracingHook(dm.config.Type))
	}
}

func (dm *defaultDatabaseManager) tunePool(sqlDB *sql.DB) {
	// every new connection to :memory: is a fresh empty database
	if dm.config.DBName == MemoryDSN {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		return
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

// Disconnect stops the health monitor and closes the pool. Handles
// returned by GetDB are unusable afterwards.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	stop, done := dm.stopMonitor, dm.monitorDone
	dm.stopMonitor, dm.monitorDone = nil, nil
	dm.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
		return err
	}
	dm.logger.Info("Database connection closed")
	return nil
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return fmt.Errorf("database not connected: %w", sql.ErrConnDone)
	}
	return sqlDB.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

// HealthCheck pings the pool. It never closes or replaces the connection.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	sqlDB := dm.GetSQLDB()
	status := &HealthStatus{LastCheckTime: time.Now()}
	if sqlDB == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	err := sqlDB.PingContext(pingCtx)
	cancel()
	status.ResponseTime = time.Since(status.LastCheckTime)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}
	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	return status
}

// startMonitor must be called with dm.mu held.
func (dm *defaultDatabaseManager) startMonitor(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	dm.stopMonitor, dm.monitorDone = cancel, done
	go dm.monitor(ctx, interval, done)
}

// monitor checks health every interval and logs when it changes.
func (dm *defaultDatabaseManager) monitor(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		status := dm.HealthCheck(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case healthy && !status.Healthy:
			dm.logger.Error("Database health check failed", "error", status.LastError)
		case !healthy && status.Healthy:
			dm.logger.Info("Database health restored", "response_time", status.ResponseTime)
		case !status.Healthy:
			dm.logger.Warn("Database still unhealthy", "error", status.LastError)
		}
		healthy = status.Healthy
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// RunMigrations creates the tables of every model in registry that does not
// exist yet.
func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context, registry ModelRegistry) error {
	dm.mu.RLock()
	db, table, logger := dm.db, dm.migrationTable, dm.logger
	dm.mu.RUnlock()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewMigrationManager(db, logger).SetTable(table).RunMigrations(ctx, registry)
}

func (dm *defaultDatabaseManager) SetMigrationTable(table string) {
	if table == "" {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.migrationTable = table
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
