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

// Package ordering stores orders. Writes are staged in a unit of work and
// committed by the service.
package ordering

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/types"
	"github.com/uptrace/bun"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus int

const (
	StatusNew OrderStatus = iota + 1
	StatusPending
	StatusPaid
	StatusShipping
	StatusFulfilled
	StatusCancelled
)

var statusNames = map[OrderStatus]string{
	StatusNew:       "New",
	StatusPending:   "Pending",
	StatusPaid:      "Paid",
	StatusShipping:  "Shipping",
	StatusFulfilled: "Fulfilled",
	StatusCancelled: "Cancelled",
}

var _ types.BaseEnum = StatusNew

func (s OrderStatus) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s OrderStatus) Number() int {
	if !s.IsValid() {
		return types.IllegalValue
	}
	return int(s)
}

func (s OrderStatus) String() string { return s.Name() }

func (s OrderStatus) Name() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return types.IllegalName
}

func (s OrderStatus) Desc() string {
	if !s.IsValid() {
		return types.IllegalDesc
	}
	return "order " + strings.ToLower(s.Name())
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID              int64            `bun:"id,pk,autoincrement" json:"id"`
	DocumentNo      string           `bun:"document_no,notnull,unique" json:"documentNo"`
	UserName        string           `bun:"user_name,notnull" json:"userName" validate:"required"`
	TotalPrice      decimal.Decimal  `bun:"total_price,type:decimal(18,2),notnull" json:"totalPrice"`
	FirstName       string           `bun:"first_name,notnull" json:"firstName" validate:"required,max=50"`
	LastName        string           `bun:"last_name,notnull" json:"lastName" validate:"required,max=250"`
	EmailAddress    string           `bun:"email_address,notnull" json:"emailAddress" validate:"required,email"`
	ShippingAddress types.JsonObject `bun:"shipping_address,type:text" json:"shippingAddress"`
	InvoiceAddress  types.JsonObject `bun:"invoice_address,type:text" json:"invoiceAddress"`
	Status          OrderStatus      `bun:"status,notnull" json:"status"`
	CreatedAt       time.Time        `bun:"created_at,nullzero,notnull" json:"createdAt"`
	UpdatedAt       time.Time        `bun:"updated_at,nullzero" json:"updatedAt"`
}

func (o Order) Identity() int64 { return o.ID }

var _ bun.BeforeAppendModelHook = (*Order)(nil)

// BeforeAppendModel stamps the audit columns.
func (o *Order) BeforeAppendModel(_ context.Context, q bun.Query) error {
	now := time.Now().UTC()
	switch q.(type) {
	case *bun.InsertQuery:
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
	case *bun.UpdateQuery:
		o.UpdatedAt = now
	}
	return nil
}

var Schema = query.NewSchema(
	query.Field{Name: "id", Column: "id", Kind: query.Number},
	query.Field{Name: "documentNo", Column: "document_no", Kind: query.Text},
	query.Field{Name: "userName", Column: "user_name", Kind: query.Text},
	query.Field{Name: "firstName", Column: "first_name", Kind: query.Text},
	query.Field{Name: "lastName", Column: "last_name", Kind: query.Text},
	query.Field{Name: "emailAddress", Column: "email_address", Kind: query.Text},
	query.Field{Name: "totalPrice", Column: "total_price", Kind: query.Number},
	query.Field{Name: "status", Column: "status", Kind: query.Number},
	query.Field{Name: "createdAt", Column: "created_at", Kind: query.Time},
).WithSearch("userName", "firstName", "lastName", "emailAddress").
	WithRange("minTotal", "totalPrice", query.OpGte).
	WithRange("maxTotal", "totalPrice", query.OpLte).
	WithRange("status", "status", query.OpEq)

// RegisterModels adds the ordering tables to registry.
func RegisterModels(registry database.ModelRegistry) {
	registry.Register(database.NewModelAdapter((*Order)(nil), 20))
}
