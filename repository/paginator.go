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

	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/types"
)

// Paginate clamps pageIndex up to 1 and pageSize down to maxPageSize,
// rejects pageSize < 1, counts the matches and then reads one ordered page.
// Count and data are separate reads and are not snapshot-consistent.
func Paginate[T any](ctx context.Context, q Queryable[T], sorts []query.Sort, pageIndex, pageSize, maxPageSize int) (*types.Pagination[T], error) {
	if pageSize < 1 {
		return nil, types.NewArgumentError("pageSize", "must be at least 1")
	}
	if len(sorts) == 0 {
		return nil, types.NewArgumentError("sort", "a deterministic order is required")
	}
	if maxPageSize < 1 {
		maxPageSize = types.DefaultMaxPageSize
	}
	if pageIndex < 1 {
		pageIndex = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	// pageIndex is bounded by the page count before the offset is computed,
	// so the product cannot overflow.
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	if total == 0 || pageIndex > totalPages {
		return types.NewPagination[T](nil, total, pageIndex, pageSize), nil
	}
	items, err := q.OrderBy(sorts...).Skip((pageIndex - 1) * pageSize).Take(pageSize).List(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewPagination(items, total, pageIndex, pageSize), nil
}
