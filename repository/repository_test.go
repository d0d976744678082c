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
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/types"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID    int64           `bun:"id,pk,autoincrement"`
	Name  string          `bun:"name,notnull"`
	Price decimal.Decimal `bun:"price,type:decimal(18,2)"`
}

func (w widget) Identity() int64 { return w.ID }

var widgetSchema = query.NewSchema(
	query.Field{Name: "id", Column: "id", Kind: query.Number},
	query.Field{Name: "name", Column: "name", Kind: query.Text},
	query.Field{Name: "price", Column: "price", Kind: query.Number},
).WithSearch("name").
	WithRange("minPrice", "price", query.OpGte).
	WithRange("maxPrice", "price", query.OpLte)

type widgetStore struct {
	db *bun.DB
}

func newWidgetStore(t *testing.T) *widgetStore {
	t.Helper()
	registry := database.NewModelRegistry()
	registry.Register(database.NewModelAdapter((*widget)(nil), 1))
	factory, err := database.OpenMemory(context.Background(), registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	return &widgetStore{db: factory.GetDB()}
}

func (s *widgetStore) repo() *Relational[widget, int64] {
	return NewRelational[widget, int64](NewUnitOfWork(s.db), widgetSchema)
}

func (s *widgetStore) seed(t *testing.T, n int) {
	t.Helper()
	r := s.repo()
	for i := 1; i <= n; i++ {
		require.NoError(t, r.Create(context.Background(), &widget{
			Name:  fmt.Sprintf("widget-%02d", i),
			Price: decimal.NewFromInt(int64(i)),
		}))
	}
	affected, err := r.UnitOfWork().Commit(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, n, affected)
}

func TestRelationalRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Should make created entities visible only after commit", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		w := &widget{Name: "gear", Price: decimal.RequireFromString("12.50")}
		require.NoError(t, r.Create(ctx, w))

		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Equal(t, 1, r.UnitOfWork().Pending())

		affected, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)
		require.NotZero(t, w.ID)

		got, err := r.GetByID(ctx, w.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "gear", got.Name)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")))
	})

	t.Run("Should return nil without error for a missing identity", func(t *testing.T) {
		store := newWidgetStore(t)
		got, err := store.repo().GetByID(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should update an existing entity and ignore a missing one", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 1)

		r := store.repo()
		existing, err := r.GetByID(ctx, 1)
		require.NoError(t, err)
		existing.Name = "renamed"
		require.NoError(t, r.Update(ctx, existing))
		require.NoError(t, r.Update(ctx, &widget{ID: 99, Name: "ghost"}))
		affected, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, affected)

		got, err := r.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		ghost, err := r.GetByID(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, ghost)
	})

	t.Run("Should treat delete as idempotent", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 2)

		for range 2 {
			r := store.repo()
			require.NoError(t, r.Delete(ctx, 1))
			_, err := r.UnitOfWork().Commit(ctx)
			require.NoError(t, err)
		}
		all, err := store.repo().GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.EqualValues(t, 2, all[0].ID)
	})

	t.Run("Should leave nothing behind when create and delete share a unit of work", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		require.NoError(t, r.Create(ctx, &widget{ID: 7, Name: "transient"}))
		require.NoError(t, r.Delete(ctx, 7))
		affected, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, affected)

		got, err := r.GetByID(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should reject invalid arguments", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		assert.True(t, types.IsInvalidArgument(r.Create(ctx, nil)))
		assert.True(t, types.IsInvalidArgument(r.Update(ctx, nil)))
		assert.Zero(t, r.UnitOfWork().Pending())
	})

	t.Run("Should ignore an update without identity", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 2)
		r := store.repo()
		require.NoError(t, r.Update(ctx, &widget{Name: "no id"}))
		assert.Zero(t, r.UnitOfWork().Pending())

		affected, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)
		assert.Zero(t, affected)
		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		for _, w := range all {
			assert.NotEqual(t, "no id", w.Name)
		}
	})

	t.Run("Should report an unreachable store", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		require.NoError(t, r.Create(ctx, &widget{Name: "lost"}))
		require.NoError(t, store.db.Close())

		_, err := r.GetByID(ctx, 1)
		assert.True(t, types.IsStoreUnavailable(err))

		_, err = r.UnitOfWork().Commit(ctx)
		assert.True(t, types.IsStoreUnavailable(err))
	})
}

func TestUnitOfWork(t *testing.T) {
	ctx := context.Background()

	t.Run("Should apply nothing when one mutation fails", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		require.NoError(t, r.Create(ctx, &widget{ID: 1, Name: "first"}))
		require.NoError(t, r.Create(ctx, &widget{ID: 2, Name: "second"}))
		require.NoError(t, r.Create(ctx, &widget{ID: 1, Name: "duplicate"}))

		_, err := r.UnitOfWork().Commit(ctx)
		require.Error(t, err)
		assert.False(t, types.IsStoreUnavailable(err))
		assert.True(t, types.IsInvalidArgument(err), "%v", err)
		assert.Contains(t, err.Error(), "mutation 3")

		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Should do nothing on a second commit", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		require.NoError(t, r.Create(ctx, &widget{Name: "once"}))

		first, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, first)

		second, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)
		assert.Zero(t, second)
		assert.True(t, types.IsInvalidArgument(r.Create(ctx, &widget{Name: "late"})))
	})

	t.Run("Should return zero for an empty commit", func(t *testing.T) {
		store := newWidgetStore(t)
		affected, err := NewUnitOfWork(store.db).Commit(ctx)
		require.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("Should drop staged changes on discard", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		require.NoError(t, r.Create(ctx, &widget{Name: "discarded"}))
		r.UnitOfWork().Discard()

		assert.True(t, r.UnitOfWork().Completed())
		affected, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)
		assert.Zero(t, affected)
		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Should apply mutations from several repositories in one transaction", func(t *testing.T) {
		store := newWidgetStore(t)
		uow := NewUnitOfWork(store.db)
		a := NewRelational[widget, int64](uow, widgetSchema)
		b := NewRelational[widget, int64](uow, widgetSchema)
		require.NoError(t, a.Create(ctx, &widget{Name: "a"}))
		require.NoError(t, b.Create(ctx, &widget{Name: "b"}))

		affected, err := uow.Commit(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, affected)
	})

	t.Run("Should reject a mutation without an apply function", func(t *testing.T) {
		uow := NewUnitOfWork(nil)
		assert.True(t, types.IsInvalidArgument(uow.Register(Mutation{Kind: MutationInsert})))
	})
}

func TestRelationalPaging(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return the partial last page", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 25)
		r := store.repo()

		page, err := r.Page(ctx, nil, widgetSchema.DefaultSort(), 3, 10)
		require.NoError(t, err)
		assert.Equal(t, 25, page.Total)
		assert.Equal(t, 3, page.TotalPages)
		assert.True(t, page.HasPrevious)
		assert.False(t, page.HasNext)
		require.Len(t, page.Items, 5)
		assert.EqualValues(t, 21, page.Items[0].ID)
		assert.EqualValues(t, 25, page.Items[4].ID)
	})

	t.Run("Should return an empty page past the end", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 5)

		page, err := store.repo().Page(ctx, nil, widgetSchema.DefaultSort(), 4, 10)
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasNext)
	})

	t.Run("Should return an empty page for huge page indexes", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 25)

		for _, idx := range []int{math.MaxInt, math.MaxInt / 5, math.MaxInt/10 + 1} {
			page, err := store.repo().Page(ctx, nil, widgetSchema.DefaultSort(), idx, 10)
			require.NoError(t, err)
			assert.Equal(t, 25, page.Total)
			assert.Equal(t, 3, page.TotalPages)
			assert.Empty(t, page.Items, "pageIndex %d", idx)
			assert.False(t, page.HasNext, "pageIndex %d", idx)
			assert.True(t, page.HasPrevious)
		}
	})

	t.Run("Should clamp the page size to the ceiling", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 12)

		page, err := store.repo().WithMaxPageSize(5).Page(ctx, nil, widgetSchema.DefaultSort(), 0, 100)
		require.NoError(t, err)
		assert.Equal(t, 1, page.PageIndex)
		assert.Equal(t, 5, page.PageSize)
		assert.Len(t, page.Items, 5)
		assert.True(t, page.HasNext)
	})

	t.Run("Should reject a page size below one", func(t *testing.T) {
		store := newWidgetStore(t)
		_, err := store.repo().Page(ctx, nil, widgetSchema.DefaultSort(), 1, 0)
		assert.True(t, types.IsInvalidArgument(err))
	})

	t.Run("Should filter by price range and sort descending", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 25)

		params, err := types.ParseQueryParameters(map[string]any{
			"pageIndex": "1",
			"pageSize":  "3",
			"orderBy":   "price desc,unknown",
			"minPrice":  "10",
			"maxPrice":  "20.5",
		})
		require.NoError(t, err)
		pred, sorts, err := widgetSchema.Build(query.All(), params)
		require.NoError(t, err)

		page, err := store.repo().Page(ctx, pred, sorts, params.PageIndex, params.PageSize)
		require.NoError(t, err)
		assert.Equal(t, 11, page.Total)
		require.Len(t, page.Items, 3)
		assert.Equal(t, "widget-20", page.Items[0].Name)
		assert.Equal(t, "widget-18", page.Items[2].Name)
	})

	t.Run("Should return an empty page when the search matches nothing", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 25)

		pred, err := widgetSchema.Compose(query.All(), nil, "zzz", widgetSchema.SearchFields())
		require.NoError(t, err)
		page, err := store.repo().Page(ctx, pred, widgetSchema.DefaultSort(), 1, 10)
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasPrevious)
		assert.False(t, page.HasNext)
	})

	t.Run("Should treat like wildcards in a search term literally", func(t *testing.T) {
		store := newWidgetStore(t)
		r := store.repo()
		require.NoError(t, r.Create(ctx, &widget{Name: "50% OFF bundle"}))
		require.NoError(t, r.Create(ctx, &widget{Name: "plain_name"}))
		require.NoError(t, r.Create(ctx, &widget{Name: "other"}))
		_, err := r.UnitOfWork().Commit(ctx)
		require.NoError(t, err)

		for term, want := range map[string]string{"% off": "50% OFF bundle", "_": "plain_name"} {
			pred, err := widgetSchema.Compose(query.All(), nil, term, []string{"name"})
			require.NoError(t, err)
			items, err := r.Find(pred).List(ctx)
			require.NoError(t, err)
			require.Len(t, items, 1, term)
			assert.Equal(t, want, items[0].Name)
		}
	})
}

func TestQueryable(t *testing.T) {
	ctx := context.Background()

	t.Run("Should leave the receiver unchanged when composing", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 10)
		r := store.repo()

		base := r.Find(nil)
		cheap := base.Where(query.Lte(widgetSchema.MustField("price"), decimal.NewFromInt(3)))

		total, err := base.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, total)
		n, err := cheap.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("Should return the first match or nil", func(t *testing.T) {
		store := newWidgetStore(t)
		store.seed(t, 3)
		r := store.repo()

		first, err := r.Find(nil).OrderBy(query.Desc(widgetSchema.Identity())).First(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.EqualValues(t, 3, first.ID)

		none, err := r.Find(nil).Where(query.Eq(widgetSchema.MustField("name"), "missing")).First(ctx)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("Should render nested conditions", func(t *testing.T) {
		name := widgetSchema.MustField("name")
		price := widgetSchema.MustField("price")
		expr, args, err := RenderSQL(query.And(
			query.Or(query.Eq(name, "a"), query.IsNull(name, true)),
			query.Gt(price, 1),
		))
		require.NoError(t, err)
		assert.Equal(t, "((? = ? OR ? IS NULL) AND ? > ?)", expr)
		assert.Len(t, args, 5)

		expr, args, err = RenderSQL(query.All())
		require.NoError(t, err)
		assert.Equal(t, "1 = 1", expr)
		assert.Empty(t, args)
	})
}
