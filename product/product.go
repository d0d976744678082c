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

// Package product holds the catalog products and their relational store.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/query"
	"github.com/uptrace/bun"
)

type Product struct {
	bun.BaseModel `bun:"table:catalog_products,alias:p"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	No          string          `bun:"no,notnull,unique" json:"no" validate:"required,max=50"`
	Name        string          `bun:"name,notnull" json:"name" validate:"required,max=250"`
	Summary     string          `bun:"summary" json:"summary" validate:"max=255"`
	Description string          `bun:"description" json:"description"`
	Price       decimal.Decimal `bun:"price,type:decimal(18,2),notnull" json:"price"`
	CreatedAt   time.Time       `bun:"created_at,nullzero,notnull" json:"created_at"`
	UpdatedAt   time.Time       `bun:"updated_at,nullzero" json:"updated_at"`
}

func (p Product) Identity() int64 { return p.ID }

var _ bun.BeforeAppendModelHook = (*Product)(nil)

// BeforeAppendModel stamps the audit columns.
func (p *Product) BeforeAppendModel(_ context.Context, q bun.Query) error {
	now := time.Now().UTC()
	switch q.(type) {
	case *bun.InsertQuery:
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}

// Schema is the filter, search and sort allow-list for products.
var Schema = query.NewSchema(
	query.Field{Name: "id", Column: "id", Kind: query.Number},
	query.Field{Name: "no", Column: "no", Kind: query.Text},
	query.Field{Name: "name", Column: "name", Kind: query.Text},
	query.Field{Name: "summary", Column: "summary", Kind: query.Text},
	query.Field{Name: "price", Column: "price", Kind: query.Number},
	query.Field{Name: "createdAt", Column: "created_at", Kind: query.Time},
).WithSearch("no", "name", "summary").
	WithRange("minPrice", "price", query.OpGte).
	WithRange("maxPrice", "price", query.OpLte)

// RegisterModels adds the product tables to registry.
func RegisterModels(registry database.ModelRegistry) {
	registry.Register(database.NewModelAdapter((*Product)(nil), 10))
}
