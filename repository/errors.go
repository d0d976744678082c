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
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/types"
)

func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if database.IsConnectionError(err) {
		return types.NewStoreError("sql", op, err)
	}
	if ok, kind := database.IsSqlError(err); ok && isConstraintViolation(kind) {
		return types.NewArgumentError(op, err.Error())
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isConstraintViolation reports the errors caused by the written values
// rather than the statement or the schema.
func isConstraintViolation(kind database.SQLError) bool {
	switch kind {
	case database.DuplicateKeyErr,
		database.NotNullViolationErr,
		database.ForeignKeyViolationErr,
		database.CheckConstraintViolationErr,
		database.DataTruncatedErr:
		return true
	default:
		return false
	}
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		// some drivers cannot report it; the statement itself succeeded
		return 0, nil
	}
	return n, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
