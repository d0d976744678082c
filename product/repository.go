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

package product

import (
	"context"

	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/repository"
	"github.com/tomoncle/shopkit/types"
)

type Repository struct {
	*repository.Relational[Product, int64]
}

func NewRepository(uow *repository.UnitOfWork) *Repository {
	return &Repository{Relational: repository.NewRelational[Product, int64](uow, Schema)}
}

// GetByNo returns the product with the catalog number no, or nil.
func (r *Repository) GetByNo(ctx context.Context, no string) (*Product, error) {
	return r.Find(nil).Where(query.Eq(Schema.MustField("no"), no)).First(ctx)
}

// GetProducts reads one page of products for caller parameters: price
// bounds, a search over number, name and summary, and a sort.
func (r *Repository) GetProducts(ctx context.Context, params *types.QueryParameters) (*types.Pagination[Product], error) {
	if params == nil {
		params = types.NewQueryParameters(types.DefaultPageIndex, types.DefaultPageSize)
	}
	predicate, sorts, err := Schema.Build(query.All(), params)
	if err != nil {
		return nil, err
	}
	return r.Page(ctx, predicate, sorts, params.PageIndex, params.PageSize)
}

// DeleteProduct stages the removal of the product when it exists.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	p, err := r.GetByID(ctx, id)
	if err != nil || p == nil {
		return err
	}
	return r.Delete(ctx, p.ID)
}
