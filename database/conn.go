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
	"fmt"
)

// Open builds a factory from cfg, connects, and runs migrations for
// registry when cfg enables them on startup. The caller owns the returned
// factory and must Close it.
func Open(ctx context.Context, cfg *Config, registry ModelRegistry) (*BaseDatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	manager.SetMigrationTable(cfg.DataMigrateConfig.TableName)

	if err := factory.InitializeDatabase(ctx, cfg.DataMigrateConfig.EnableMigrateOnStartup, registry); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if registry != nil {
		factory.GetDB().RegisterModel(registry.Instances()...)
	}
	return factory, nil
}

// OpenMemory opens a private in-memory sqlite database and creates the
// tables of registry. It backs tests and local tooling.
func OpenMemory(ctx context.Context, registry ModelRegistry) (*BaseDatabaseFactory, error) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DBName = MemoryDSN
	cfg.ConnectionConfig.HealthCheckInterval = 0
	return Open(ctx, cfg, registry)
}
