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
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
)

type settingRow struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Key   string `bun:"setting_key,notnull,unique"`
	Value string `bun:"value"`
}

func newRegistry() ModelRegistry {
	r := NewModelRegistry()
	r.Register(NewModelAdapter((*settingRow)(nil), 10))
	return r
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("Should connect and create registered tables", func(t *testing.T) {
		factory, err := OpenMemory(ctx, newRegistry())
		require.NoError(t, err)
		defer factory.Close()

		db := factory.GetDB()
		_, err = db.NewInsert().Model(&settingRow{Key: "currency", Value: "USD"}).Exec(ctx)
		require.NoError(t, err)

		var rows []settingRow
		require.NoError(t, db.NewSelect().Model(&rows).Scan(ctx))
		require.Len(t, rows, 1)
		assert.Equal(t, "USD", rows[0].Value)

		status := factory.GetHealthStatus(ctx)
		assert.True(t, status.Healthy)
		assert.Equal(t, 1, factory.GetStats().MaxOpenConns)
	})

	t.Run("Should keep data across connections of the same database", func(t *testing.T) {
		factory, err := OpenMemory(ctx, newRegistry())
		require.NoError(t, err)
		defer factory.Close()

		db := factory.GetDB()
		for i := range 3 {
			_, err := db.NewInsert().Model(&settingRow{Key: fmt.Sprintf("k%d", i)}).Exec(ctx)
			require.NoError(t, err)
		}
		count, err := db.NewSelect().Model((*settingRow)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("Should report an unhealthy status once closed", func(t *testing.T) {
		factory, err := OpenMemory(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, factory.Close())

		status := factory.GetHealthStatus(ctx)
		assert.False(t, status.Healthy)
		assert.Error(t, factory.GetManager().Ping(ctx))
	})
}

type recordingLogger struct {
	mu     sync.Mutex
	levels []LogLevel
}

func (l *recordingLogger) record(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = append(l.levels, level)
}

func (l *recordingLogger) count(level LogLevel) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, v := range l.levels {
		if v == level {
			n++
		}
	}
	return n
}

func (l *recordingLogger) SetLevel(LogLevel)    {}
func (l *recordingLogger) Debug(string, ...any) { l.record(LogLevelDebug) }
func (l *recordingLogger) Info(string, ...any)  { l.record(LogLevelInfo) }
func (l *recordingLogger) Warn(string, ...any)  { l.record(LogLevelWarn) }
func (l *recordingLogger) Error(string, ...any) { l.record(LogLevelError) }

func TestHealthMonitor(t *testing.T) {
	t.Run("Should keep the handle open after failed health checks", func(t *testing.T) {
		sqlDB, err := sql.Open("mysql", "shop:shop@tcp(127.0.0.1:1)/shop?timeout=50ms")
		require.NoError(t, err)
		db := bun.NewDB(sqlDB, mysqldialect.New())
		log := &recordingLogger{}
		dm := &defaultDatabaseManager{config: &ConnectionConfig{Type: "mysql"}, logger: log, db: db, sqlDB: sqlDB}

		dm.mu.Lock()
		dm.startMonitor(10 * time.Millisecond)
		dm.mu.Unlock()

		require.Eventually(t, func() bool { return log.count(LogLevelWarn) >= 2 }, 2*time.Second, 5*time.Millisecond)
		assert.Same(t, db, dm.GetDB())
		assert.Same(t, sqlDB, dm.GetSQLDB())
		assert.Equal(t, 1, log.count(LogLevelError))

		require.NoError(t, dm.Disconnect())
		assert.Nil(t, dm.GetDB())
	})

	t.Run("Should keep serving queries while the monitor runs", func(t *testing.T) {
		ctx := context.Background()
		cfg := DefaultConfig()
		cfg.ConnectionConfig.Type = "sqlite"
		cfg.ConnectionConfig.DBName = filepath.Join(t.TempDir(), "shop")
		cfg.ConnectionConfig.HealthCheckInterval = 5 * time.Millisecond
		factory, err := Open(ctx, cfg, newRegistry())
		require.NoError(t, err)
		defer factory.Close()

		db := factory.GetDB()
		time.Sleep(30 * time.Millisecond)
		assert.Same(t, db, factory.GetDB())
		_, err = db.NewInsert().Model(&settingRow{Key: "currency", Value: "EUR"}).Exec(ctx)
		require.NoError(t, err)
		assert.True(t, factory.GetHealthStatus(ctx).Healthy)
	})
}

func TestDSN(t *testing.T) {
	cfg := &ConnectionConfig{Host: "db.local", Port: 5432, Username: "shop", Password: "p@ss/w:rd", DBName: "orders", ConnectTimeout: 3 * time.Second}

	t.Run("Should escape postgres credentials", func(t *testing.T) {
		u, err := url.Parse(postgresDSN(cfg))
		require.NoError(t, err)
		pw, _ := u.User.Password()
		assert.Equal(t, "p@ss/w:rd", pw)
		assert.Equal(t, "db.local:5432", u.Host)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
		assert.Equal(t, "3", u.Query().Get("connect_timeout"))
	})

	t.Run("Should build a parseable mysql DSN", func(t *testing.T) {
		parsed, err := mysql.ParseDSN(mysqlDSN(cfg))
		require.NoError(t, err)
		assert.Equal(t, "p@ss/w:rd", parsed.Passwd)
		assert.Equal(t, "orders", parsed.DBName)
		assert.True(t, parsed.ParseTime)
	})

	t.Run("Should append the sqlite file suffix", func(t *testing.T) {
		assert.Equal(t, "shop.db", sqliteDSN(&ConnectionConfig{DBName: "shop"}))
		assert.Equal(t, MemoryDSN, sqliteDSN(&ConnectionConfig{DBName: MemoryDSN}))
	})
}

func TestMigrationManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Should apply versioned migrations exactly once", func(t *testing.T) {
		factory, err := OpenMemory(ctx, newRegistry())
		require.NoError(t, err)
		defer factory.Close()

		calls := 0
		mm := NewMigrationManager(factory.GetDB(), nil).
			SetTable("custom_migrations").
			AddMigration(MigrationItem{
				Version: "002",
				Name:    "seed_currency",
				Up: func(ctx context.Context, db bun.IDB) error {
					calls++
					_, err := db.NewInsert().Model(&settingRow{Key: "currency", Value: "EUR"}).Exec(ctx)
					return err
				},
			})

		require.NoError(t, mm.RunMigrations(ctx, newRegistry()))
		require.NoError(t, mm.RunMigrations(ctx, newRegistry()))
		assert.Equal(t, 1, calls)

		applied, err := mm.GetAppliedMigrations(ctx)
		require.NoError(t, err)
		require.Len(t, applied, 1)
		assert.Equal(t, "002", applied[0].Version)
	})

	t.Run("Should roll back a failing migration", func(t *testing.T) {
		factory, err := OpenMemory(ctx, newRegistry())
		require.NoError(t, err)
		defer factory.Close()

		mm := NewMigrationManager(factory.GetDB(), nil).AddMigration(MigrationItem{
			Version: "010",
			Name:    "broken",
			Up: func(ctx context.Context, db bun.IDB) error {
				if _, err := db.NewInsert().Model(&settingRow{Key: "a"}).Exec(ctx); err != nil {
					return err
				}
				return errors.New("boom")
			},
		})
		err = mm.RunMigrations(ctx, newRegistry())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "010")

		count, err := factory.GetDB().NewSelect().Model((*settingRow)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestModelRegistry(t *testing.T) {
	t.Run("Should order models by priority and keep registration order on ties", func(t *testing.T) {
		r := NewModelRegistry()
		r.Register(NewModelAdapter("b", 20), NewModelAdapter("a", 10), NewModelAdapter("c", 20))
		assert.Equal(t, []any{"a", "b", "c"}, r.Instances())
	})
}

func TestOverrideFromEnv(t *testing.T) {
	t.Run("Should override only the variables that are set", func(t *testing.T) {
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("DB_PORT", "6543")
		t.Setenv("DB_SLOW_QUERY_TIME", "250ms")

		cfg := DefaultConnectionConfig()
		cfg.Type = "postgres"
		cfg.DBName = "shop"
		require.NoError(t, OverrideFromEnv(cfg))

		assert.Equal(t, "db.internal", cfg.Host)
		assert.Equal(t, 6543, cfg.Port)
		assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryTime)
		assert.Equal(t, "shop", cfg.DBName)
		assert.Equal(t, 100, cfg.MaxOpenConns)
	})

	t.Run("Should reject unsupported database types", func(t *testing.T) {
		_, err := NewDatabaseFactory().CreateFromConfig(&ConnectionConfig{Type: "oracle", DBName: "shop"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database type")
	})
}

func TestIsConnectionError(t *testing.T) {
	t.Run("Should classify connection failures", func(t *testing.T) {
		assert.True(t, IsConnectionError(driver.ErrBadConn))
		assert.True(t, IsConnectionError(fmt.Errorf("query: %w", context.DeadlineExceeded)))
		assert.True(t, IsConnectionError(errors.New("sql: database is closed")))
		assert.True(t, IsConnectionError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))
	})

	t.Run("Should not classify statement failures", func(t *testing.T) {
		assert.False(t, IsConnectionError(nil))
		assert.False(t, IsConnectionError(context.Canceled))
		assert.False(t, IsConnectionError(errors.New("UNIQUE constraint failed: settings.setting_key")))
	})
}

func TestFields(t *testing.T) {
	t.Run("Should pair keys with values and drop a dangling key", func(t *testing.T) {
		f := Fields("rows", 3, "table", "products", "orphan")
		assert.Len(t, f, 2)
		assert.Equal(t, 3, f["rows"])
		assert.Equal(t, "products", f["table"])
	})
}
