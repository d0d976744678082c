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

package ordering

import (
	"context"

	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/repository"
	"github.com/tomoncle/shopkit/types"
)

type Repository struct {
	*repository.Relational[Order, int64]
}

func NewRepository(uow *repository.UnitOfWork) *Repository {
	return &Repository{Relational: repository.NewRelational[Order, int64](uow, Schema)}
}

// GetOrders reads one page of orders sorted and searched by params.
func (r *Repository) GetOrders(ctx context.Context, params *types.QueryParameters) (*types.Pagination[Order], error) {
	if params == nil {
		params = types.NewQueryParameters(types.DefaultPageIndex, types.DefaultPageSize)
	}
	predicate, sorts, err := Schema.Build(query.All(), params)
	if err != nil {
		return nil, err
	}
	return r.Page(ctx, predicate, sorts, params.PageIndex, params.PageSize)
}

func (r *Repository) GetOrdersByUserName(ctx context.Context, userName string) ([]*Order, error) {
	return r.Find(nil).
		Where(query.Eq(Schema.MustField("userName"), userName)).
		OrderBy(Schema.DefaultSort()...).
		List(ctx)
}

func (r *Repository) GetByDocumentNo(ctx context.Context, documentNo string) (*Order, error) {
	return r.Find(nil).Where(query.Eq(Schema.MustField("documentNo"), documentNo)).First(ctx)
}
