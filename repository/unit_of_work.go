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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/types"
	"github.com/uptrace/bun"
)

// MutationKind classifies a staged change.
type MutationKind int

const (
	MutationInsert MutationKind = iota
	MutationUpdate
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationInsert:
		return "insert"
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	default:
		return types.IllegalName
	}
}

// ApplyFunc executes one staged change against the transaction and returns
// the number of affected rows.
type ApplyFunc func(ctx context.Context, db bun.IDB) (int64, error)

// Mutation is one change registered with a unit of work.
type Mutation struct {
	Kind   MutationKind
	Target string
	Apply  ApplyFunc
}

// UnitOfWork collects the relational changes of one logical operation and
// applies them in registration order inside a single transaction. A unit of
// work is used by one goroutine; create one per operation.
type UnitOfWork struct {
	db        bun.IDB
	logger    database.Logger
	pending   []Mutation
	completed bool
}

// NewUnitOfWork binds a unit of work to db. db is also the handle
// repositories built on this unit of work read from.
func NewUnitOfWork(db bun.IDB) *UnitOfWork {
	return &UnitOfWork{db: db, logger: database.GetLogger()}
}

// SetLogger replaces the logger used for commit diagnostics.
func (u *UnitOfWork) SetLogger(logger Logger) {
	if logger != nil {
		u.logger = logger
	}
}

// DB returns the bound connection.
func (u *UnitOfWork) DB() bun.IDB { return u.db }

// Pending returns the number of staged mutations.
func (u *UnitOfWork) Pending() int { return len(u.pending) }

// Completed reports whether the unit of work was committed or discarded.
func (u *UnitOfWork) Completed() bool { return u.completed }

// Register stages m. Registration fails once the unit of work completed.
func (u *UnitOfWork) Register(m Mutation) error {
	if m.Apply == nil {
		return types.NewArgumentError("mutation", "apply function is required")
	}
	if u.completed {
		return types.NewArgumentError("unitOfWork", "already completed")
	}
	u.pending = append(u.pending, m)
	return nil
}

// Discard drops every staged mutation and completes the unit of work.
func (u *UnitOfWork) Discard() {
	if !u.completed && len(u.pending) > 0 {
		u.logger.Debug("Unit of work discarded", "pending", len(u.pending))
	}
	u.pending = nil
	u.completed = true
}

// Commit applies the staged mutations atomically and returns the number of
// affected rows. Only the first call does work; later calls return 0. On
// failure the transaction is rolled back and the staged mutations are
// dropped.
func (u *UnitOfWork) Commit(ctx context.Context) (int64, error) {
	if u.completed {
		return 0, nil
	}
	pending := u.pending
	u.pending = nil
	u.completed = true
	if len(pending) == 0 {
		return 0, nil
	}

	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, wrapStoreError("begin", err)
	}
	var committed bool
	defer func(tx bun.Tx) {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				u.logger.Error("Failed to rollback transaction", "error", rollbackErr)
			}
		}
	}(tx)

	var affected int64
	for i, m := range pending {
		n, err := m.Apply(ctx, tx)
		if err != nil {
			return 0, wrapStoreError(fmt.Sprintf("%s %s (mutation %d)", m.Kind, m.Target, i+1), err)
		}
		affected += n
	}
	if err := tx.Commit(); err != nil {
		return 0, wrapStoreError("commit", err)
	}
	committed = true
	u.logger.Debug("Unit of work committed", "mutations", len(pending), "rows", affected)
	return affected, nil
}

// Logger is the logging contract used by repositories.
type Logger = database.Logger
