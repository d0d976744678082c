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
	"reflect"

	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/types"
	"github.com/uptrace/bun"
)

// Relational is the bun-backed repository variant. Reads go straight to the
// unit of work's connection; Create, Update and Delete are staged and become
// visible when the unit of work commits.
type Relational[T types.Entity[K], K types.Key] struct {
	uow         *UnitOfWork
	schema      *query.Schema
	name        string
	maxPageSize int
}

// NewRelational returns a repository for T bound to uow. The schema's identity
// column must be T's primary key.
func NewRelational[T types.Entity[K], K types.Key](uow *UnitOfWork, s *query.Schema) *Relational[T, K] {
	return &Relational[T, K]{
		uow:         uow,
		schema:      s,
		name:        reflect.TypeFor[T]().Name(),
		maxPageSize: types.DefaultMaxPageSize,
	}
}

// WithMaxPageSize sets the page size ceiling used by Page.
func (r *Relational[T, K]) WithMaxPageSize(n int) *Relational[T, K] {
	if n > 0 {
		r.maxPageSize = n
	}
	return r
}

func (r *Relational[T, K]) Schema() *query.Schema { return r.schema }

func (r *Relational[T, K]) UnitOfWork() *UnitOfWork { return r.uow }

func (r *Relational[T, K]) identity() bun.Ident {
	return bun.Ident(r.schema.Identity().Column)
}

func (r *Relational[T, K]) GetByID(ctx context.Context, id K) (*T, error) {
	var entity T
	err := r.uow.DB().NewSelect().
		Model(&entity).
		Where("? = ?", r.identity(), id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrapStoreError("get "+r.name, err)
	}
	return &entity, nil
}

func (r *Relational[T, K]) GetAll(ctx context.Context) ([]*T, error) {
	return r.Find(nil).OrderBy(r.schema.DefaultSort()...).List(ctx)
}

func (r *Relational[T, K]) Find(predicate *query.Predicate) Queryable[T] {
	return sqlQueryable[T]{db: r.uow.DB(), name: r.name, cond: predicate.Condition()}
}

// Page reads one page of the records matching predicate.
func (r *Relational[T, K]) Page(ctx context.Context, predicate *query.Predicate, sorts []query.Sort, pageIndex, pageSize int) (*types.Pagination[T], error) {
	return Paginate(ctx, r.Find(predicate), sorts, pageIndex, pageSize, r.maxPageSize)
}

func (r *Relational[T, K]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return types.NewArgumentError("entity", "must not be nil")
	}
	return r.uow.Register(Mutation{
		Kind:   MutationInsert,
		Target: r.name,
		Apply: func(ctx context.Context, db bun.IDB) (int64, error) {
			return rowsAffected(db.NewInsert().Model(entity).Exec(ctx))
		},
	})
}

func (r *Relational[T, K]) Update(ctx context.Context, entity *T) error {
	if entity == nil {
		return types.NewArgumentError("entity", "must not be nil")
	}
	// an entity without identity matches no row
	if types.IsZeroKey((*entity).Identity()) {
		return nil
	}
	return r.uow.Register(Mutation{
		Kind:   MutationUpdate,
		Target: r.name,
		Apply: func(ctx context.Context, db bun.IDB) (int64, error) {
			return rowsAffected(db.NewUpdate().Model(entity).WherePK().Exec(ctx))
		},
	})
}

func (r *Relational[T, K]) Delete(ctx context.Context, id K) error {
	return r.uow.Register(Mutation{
		Kind:   MutationDelete,
		Target: r.name,
		Apply: func(ctx context.Context, db bun.IDB) (int64, error) {
			var entity T
			return rowsAffected(db.NewDelete().Model(&entity).Where("? = ?", r.identity(), id).Exec(ctx))
		},
	})
}

type sqlQueryable[T any] struct {
	db    bun.IDB
	name  string
	cond  query.Condition
	sorts []query.Sort
	skip  int
	take  int
}

func (q sqlQueryable[T]) Where(cond query.Condition) Queryable[T] {
	q.cond = query.And(q.cond, cond)
	return q
}

func (q sqlQueryable[T]) OrderBy(sorts ...query.Sort) Queryable[T] {
	q.sorts = append(append([]query.Sort(nil), q.sorts...), sorts...)
	return q
}

func (q sqlQueryable[T]) Skip(n int) Queryable[T] {
	if n > 0 {
		q.skip = n
	}
	return q
}

func (q sqlQueryable[T]) Take(n int) Queryable[T] {
	if n > 0 {
		q.take = n
	}
	return q
}

func (q sqlQueryable[T]) List(ctx context.Context) ([]*T, error) {
	entities := make([]*T, 0)
	sel, err := applyCondition(q.db.NewSelect().Model(&entities), q.cond)
	if err != nil {
		return nil, types.NewArgumentError("condition", err.Error())
	}
	sel = applySorts(sel, q.sorts)
	if q.take > 0 {
		sel = sel.Limit(q.take)
	}
	if q.skip > 0 {
		sel = sel.Offset(q.skip)
	}
	if err := sel.Scan(ctx); err != nil && !isNoRows(err) {
		return nil, wrapStoreError("list "+q.name, err)
	}
	return entities, nil
}

func (q sqlQueryable[T]) First(ctx context.Context) (*T, error) {
	items, err := q.Take(1).List(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

func (q sqlQueryable[T]) Count(ctx context.Context) (int, error) {
	sel, err := applyCondition(q.db.NewSelect().Model((*T)(nil)), q.cond)
	if err != nil {
		return 0, types.NewArgumentError("condition", err.Error())
	}
	total, err := sel.Count(ctx)
	if err != nil {
		return 0, wrapStoreError("count "+q.name, err)
	}
	return total, nil
}
