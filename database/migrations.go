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
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// DefaultMigrationTable stores applied migration versions.
const DefaultMigrationTable = "schema_migrations"

// MigrationManager applies versioned migrations once each and records them
// in the migration table.
type MigrationManager struct {
	db     bun.IDB
	logger Logger
	table  string
	extra  []MigrationItem
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager constructs a MigrationManager over db.
func NewMigrationManager(db bun.IDB, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{
		db:     db,
		logger: logger,
		table:  DefaultMigrationTable,
	}
}

// SetTable overrides the migration table name.
func (mm *MigrationManager) SetTable(table string) *MigrationManager {
	if table != "" {
		mm.table = table
	}
	return mm
}

// AddMigration appends a versioned migration. Versioned migrations run after
// the registered model tables exist.
func (mm *MigrationManager) AddMigration(items ...MigrationItem) *MigrationManager {
	mm.extra = append(mm.extra, items...)
	return mm
}

// RunMigrations creates the migration table if needed and executes every
// pending migration in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context, registry ModelRegistry) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}

	if _, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		ModelTableExpr("?", bun.Ident(mm.table)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	if err := createTables(ctx, mm.db, registry); err != nil {
		return err
	}

	migrations := append([]MigrationItem(nil), mm.extra...)
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Info("Database migrations completed!", "table", mm.table)
	return nil
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		ModelTableExpr("? AS ?", bun.Ident(mm.table), bun.Ident("migration")).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := mm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var committed bool
	defer func(tx bun.Tx) {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				mm.logger.Error("Failed to rollback transaction", "error", rollbackErr)
			}
		}
	}(tx)

	if migration.Up != nil {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
	}

	record := &Migration{
		Version:     migration.Version,
		Name:        migration.Name,
		AppliedAt:   time.Now(),
		Description: migration.Description,
	}
	if _, err := tx.NewInsert().
		Model(record).
		ModelTableExpr("?", bun.Ident(mm.table)).
		Exec(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		ModelTableExpr("? AS ?", bun.Ident(mm.table), bun.Ident("migration")).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// createTables runs on every migration so models registered after the first
// run still get their tables.
func createTables(ctx context.Context, db bun.IDB, registry ModelRegistry) error {
	if registry == nil {
		return nil
	}
	for _, model := range registry.Instances() {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}
