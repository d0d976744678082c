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

package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/repository"
	"github.com/tomoncle/shopkit/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const idKey = "_id"

// Repository is the document store variant. Every write is durable when the
// call returns; there is no unit of work.
type Repository[T types.Document] struct {
	coll        *mongo.Collection
	schema      *query.Schema
	maxPageSize int
}

// NewRepository binds T to the collection named by T's CollectionName.
func NewRepository[T types.Document](db *mongo.Database, s *query.Schema) *Repository[T] {
	return &Repository[T]{
		coll:        db.Collection(types.CollectionOf[T]()),
		schema:      s,
		maxPageSize: types.DefaultMaxPageSize,
	}
}

// WithMaxPageSize sets the page size ceiling used by Page.
func (r *Repository[T]) WithMaxPageSize(n int) *Repository[T] {
	if n > 0 {
		r.maxPageSize = n
	}
	return r
}

func (r *Repository[T]) Schema() *query.Schema { return r.schema }

func (r *Repository[T]) Collection() *mongo.Collection { return r.coll }

func (r *Repository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var entity T
	err := r.coll.FindOne(ctx, bson.D{{Key: idKey, Value: id}}).Decode(&entity)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, wrapStoreError("get "+r.coll.Name(), err)
	}
	return &entity, nil
}

func (r *Repository[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.Find(nil).OrderBy(r.schema.DefaultSort()...).List(ctx)
}

func (r *Repository[T]) Find(predicate *query.Predicate) repository.Queryable[T] {
	return docQueryable[T]{coll: r.coll, cond: predicate.Condition()}
}

// Page reads one page of the documents matching predicate.
func (r *Repository[T]) Page(ctx context.Context, predicate *query.Predicate, sorts []query.Sort, pageIndex, pageSize int) (*types.Pagination[T], error) {
	return repository.Paginate(ctx, r.Find(predicate), sorts, pageIndex, pageSize, r.maxPageSize)
}

// Create inserts entity. An empty identity is replaced with a generated one
// when T accepts it.
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	if err := assignIdentity(entity); err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, entity); err != nil {
		return wrapStoreError("insert "+r.coll.Name(), err)
	}
	return nil
}

// CreateMany inserts entities as one ordered batch. Identities are assigned
// before anything is sent.
func (r *Repository[T]) CreateMany(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	docs := make([]any, 0, len(entities))
	for _, entity := range entities {
		if err := assignIdentity(entity); err != nil {
			return err
		}
		docs = append(docs, entity)
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return wrapStoreError("insert "+r.coll.Name(), err)
	}
	return nil
}

func assignIdentity[T types.Document](entity *T) error {
	if entity == nil {
		return types.NewArgumentError("entity", "must not be nil")
	}
	if (*entity).Identity() != "" {
		return nil
	}
	assigner, ok := any(entity).(types.IdentityAssigner)
	if !ok {
		return types.NewArgumentError("entity", "identity is required")
	}
	assigner.AssignIdentity(uuid.NewString())
	return nil
}

// Update replaces the stored document with the same identity. Nothing is
// inserted when no document matches, and an entity without identity is
// ignored.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	if entity == nil {
		return types.NewArgumentError("entity", "must not be nil")
	}
	id := (*entity).Identity()
	if id == "" {
		return nil
	}
	if _, err := r.coll.ReplaceOne(ctx, bson.D{{Key: idKey, Value: id}}, entity); err != nil {
		return wrapStoreError("replace "+r.coll.Name(), err)
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: idKey, Value: id}}); err != nil {
		return wrapStoreError("delete "+r.coll.Name(), err)
	}
	return nil
}

// DeleteWhere removes every document matching cond and returns how many were
// removed.
func (r *Repository[T]) DeleteWhere(ctx context.Context, cond query.Condition) (int64, error) {
	filter, err := RenderBSON(cond)
	if err != nil {
		return 0, types.NewArgumentError("condition", err.Error())
	}
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, wrapStoreError("delete "+r.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

// Sum adds up the numeric key of every document matching cond on the
// server. No match yields 0.
func (r *Repository[T]) Sum(ctx context.Context, cond query.Condition, key string) (int64, error) {
	filter, err := RenderBSON(cond)
	if err != nil {
		return 0, types.NewArgumentError("condition", err.Error())
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.D{
			{Key: idKey, Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$" + key}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, wrapStoreError("aggregate "+r.coll.Name(), err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, wrapStoreError("decode "+r.coll.Name(), err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

type docQueryable[T any] struct {
	coll  *mongo.Collection
	cond  query.Condition
	sorts []query.Sort
	skip  int
	take  int
}

func (q docQueryable[T]) Where(cond query.Condition) repository.Queryable[T] {
	q.cond = query.And(q.cond, cond)
	return q
}

func (q docQueryable[T]) OrderBy(sorts ...query.Sort) repository.Queryable[T] {
	q.sorts = append(append([]query.Sort(nil), q.sorts...), sorts...)
	return q
}

func (q docQueryable[T]) Skip(n int) repository.Queryable[T] {
	if n > 0 {
		q.skip = n
	}
	return q
}

func (q docQueryable[T]) Take(n int) repository.Queryable[T] {
	if n > 0 {
		q.take = n
	}
	return q
}

func (q docQueryable[T]) List(ctx context.Context) ([]*T, error) {
	filter, err := RenderBSON(q.cond)
	if err != nil {
		return nil, types.NewArgumentError("condition", err.Error())
	}
	opts := options.Find()
	if len(q.sorts) > 0 {
		opts.SetSort(RenderSort(q.sorts))
	}
	if q.skip > 0 {
		opts.SetSkip(int64(q.skip))
	}
	if q.take > 0 {
		opts.SetLimit(int64(q.take))
	}
	cursor, err := q.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapStoreError("find "+q.coll.Name(), err)
	}
	entities := make([]*T, 0)
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, wrapStoreError("decode "+q.coll.Name(), err)
	}
	return entities, nil
}

func (q docQueryable[T]) First(ctx context.Context) (*T, error) {
	items, err := q.Take(1).List(ctx)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

func (q docQueryable[T]) Count(ctx context.Context) (int, error) {
	filter, err := RenderBSON(q.cond)
	if err != nil {
		return 0, types.NewArgumentError("condition", err.Error())
	}
	n, err := q.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapStoreError("count "+q.coll.Name(), err)
	}
	return int(n), nil
}
