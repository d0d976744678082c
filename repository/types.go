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

// QueryRepository defines the read side shared by every store variant.
type QueryRepository[T any, K types.Key] interface {
	// GetByID returns nil, nil when no record has the identity.
	GetByID(ctx context.Context, id K) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	// Find returns a lazy sequence; nothing is read until it is consumed.
	Find(predicate *query.Predicate) Queryable[T]
}

// CrudRepository defines the write side. Relational implementations stage
// the change in a unit of work, document implementations persist it at once.
type CrudRepository[T any, K types.Key] interface {
	Create(ctx context.Context, entity *T) error

	// Update is a no-op when no record has the entity's identity.
	Update(ctx context.Context, entity *T) error

	// Delete is idempotent.
	Delete(ctx context.Context, id K) error
}

// Repository is the contract implemented by both store variants.
type Repository[T any, K types.Key] interface {
	QueryRepository[T, K]
	CrudRepository[T, K]
}

// Queryable is a composable, lazily evaluated query. Every method returns a
// new value; the receiver is left unchanged.
type Queryable[T any] interface {
	Where(cond query.Condition) Queryable[T]
	OrderBy(sorts ...query.Sort) Queryable[T]
	Skip(n int) Queryable[T]
	Take(n int) Queryable[T]

	List(ctx context.Context) ([]*T, error)
	// First returns nil, nil when nothing matches.
	First(ctx context.Context) (*T, error)
	// Count ignores ordering and paging.
	Count(ctx context.Context) (int, error)
}

// PageQueryRepository pages over a composed predicate.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, predicate *query.Predicate, sorts []query.Sort, pageIndex, pageSize int) (*types.Pagination[T], error)
}
