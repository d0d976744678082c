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

package shopkit

import (
	"context"

	"github.com/tomoncle/shopkit/document"
	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/repository"
	"github.com/tomoncle/shopkit/types"
	"github.com/uptrace/bun"
)

type Service[T any, K types.Key] interface {
	// Get returns a single entity by its identifier, or nil when absent.
	Get(ctx context.Context, id K) (*T, error)

	// All returns all entities in identity order.
	All(ctx context.Context) ([]*T, error)

	// Page returns one page of entities for caller-supplied parameters.
	Page(ctx context.Context, params *types.QueryParameters) (*types.Pagination[T], error)

	// Save inserts one or more new entities. Relational inserts are applied
	// in one transaction.
	Save(ctx context.Context, models ...*T) error

	// Update replaces an existing entity. Updating an entity outside the
	// service scope is a no-op.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier. Entities outside the
	// service scope are left in place.
	Delete(ctx context.Context, id K) error
}

// Store is the repository surface a Service needs.
type Store[T any, K types.Key] interface {
	repository.Repository[T, K]
	Schema() *query.Schema
}

// Committer makes the staged writes of one operation durable.
type Committer interface {
	Commit(ctx context.Context) (int64, error)
}

// Opener returns the store one operation works on. The committer is nil for
// stores that persist every write immediately.
type Opener[T any, K types.Key] func() (Store[T, K], Committer)

// Option configures a Service.
type Option func(*options)

type options struct {
	scope       query.Condition
	maxPageSize int
}

// WithScope restricts every read and write of the service to cond.
func WithScope(cond query.Condition) Option {
	return func(o *options) { o.scope = cond }
}

// WithMaxPageSize sets the page size ceiling.
func WithMaxPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPageSize = n
		}
	}
}

type baseServiceImpl[T any, K types.Key] struct {
	open Opener[T, K]
	opts options
}

// NewService returns a Service that opens its store through open.
func NewService[T any, K types.Key](open Opener[T, K], opts ...Option) Service[T, K] {
	o := options{scope: query.All(), maxPageSize: types.DefaultMaxPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &baseServiceImpl[T, K]{open: open, opts: o}
}

// NewRelationalService returns a Service over db. Each write operation gets
// its own unit of work and commits it before returning.
func NewRelationalService[T types.Entity[K], K types.Key](db bun.IDB, s *query.Schema, opts ...Option) Service[T, K] {
	return NewService(func() (Store[T, K], Committer) {
		uow := repository.NewUnitOfWork(db)
		return repository.NewRelational[T, K](uow, s), uow
	}, opts...)
}

// NewDocumentService returns a Service over a document repository.
func NewDocumentService[T types.Document](repo *document.Repository[T], opts ...Option) Service[T, string] {
	return NewService(func() (Store[T, string], Committer) { return repo, nil }, opts...)
}

func (s *baseServiceImpl[T, K]) Get(ctx context.Context, id K) (*T, error) {
	store, _ := s.open()
	return s.get(ctx, store, id)
}

func (s *baseServiceImpl[T, K]) get(ctx context.Context, store Store[T, K], id K) (*T, error) {
	if query.IsAll(s.opts.scope) {
		return store.GetByID(ctx, id)
	}
	identity := store.Schema().Identity()
	return store.Find(nil).Where(query.And(s.opts.scope, query.Eq(identity, id))).First(ctx)
}

// inScope reports whether the entity id is visible through the scope.
func (s *baseServiceImpl[T, K]) inScope(ctx context.Context, store Store[T, K], id K) (bool, error) {
	if query.IsAll(s.opts.scope) {
		return true, nil
	}
	found, err := s.get(ctx, store, id)
	return found != nil, err
}

func (s *baseServiceImpl[T, K]) All(ctx context.Context) ([]*T, error) {
	store, _ := s.open()
	return store.Find(nil).Where(s.opts.scope).OrderBy(store.Schema().DefaultSort()...).List(ctx)
}

func (s *baseServiceImpl[T, K]) Page(ctx context.Context, params *types.QueryParameters) (*types.Pagination[T], error) {
	if params == nil {
		params = types.NewQueryParameters(types.DefaultPageIndex, types.DefaultPageSize)
	}
	store, _ := s.open()
	predicate, sorts, err := store.Schema().Build(s.opts.scope, params)
	if err != nil {
		return nil, err
	}
	return repository.Paginate(ctx, store.Find(predicate), sorts, params.PageIndex, params.PageSize, s.opts.maxPageSize)
}

func (s *baseServiceImpl[T, K]) Save(ctx context.Context, models ...*T) error {
	store, committer := s.open()
	for _, m := range models {
		if err := store.Create(ctx, m); err != nil {
			return err
		}
	}
	return commit(ctx, committer)
}

func (s *baseServiceImpl[T, K]) Update(ctx context.Context, model *T) error {
	store, committer := s.open()
	if model != nil && !query.IsAll(s.opts.scope) {
		entity, ok := any(model).(types.Entity[K])
		if !ok {
			return types.NewArgumentError("model", "scoped updates need an entity identity")
		}
		if ok, err := s.inScope(ctx, store, entity.Identity()); err != nil || !ok {
			return err
		}
	}
	if err := store.Update(ctx, model); err != nil {
		return err
	}
	return commit(ctx, committer)
}

func (s *baseServiceImpl[T, K]) Delete(ctx context.Context, id K) error {
	store, committer := s.open()
	if ok, err := s.inScope(ctx, store, id); err != nil || !ok {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	return commit(ctx, committer)
}

func commit(ctx context.Context, c Committer) error {
	if c == nil {
		return nil
	}
	_, err := c.Commit(ctx)
	return err
}
