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

// Package customer stores customer accounts.
package customer

import (
	"context"

	"github.com/tomoncle/shopkit"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/repository"
	"github.com/uptrace/bun"
)

type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	UserName     string `bun:"user_name,notnull,unique" json:"userName"`
	FirstName    string `bun:"first_name,notnull" json:"firstName"`
	LastName     string `bun:"last_name,notnull" json:"lastName"`
	EmailAddress string `bun:"email_address,notnull,unique" json:"emailAddress"`
}

func (c Customer) Identity() int64 { return c.ID }

var Schema = query.NewSchema(
	query.Field{Name: "id", Column: "id", Kind: query.Number},
	query.Field{Name: "userName", Column: "user_name", Kind: query.Text},
	query.Field{Name: "firstName", Column: "first_name", Kind: query.Text},
	query.Field{Name: "lastName", Column: "last_name", Kind: query.Text},
	query.Field{Name: "emailAddress", Column: "email_address", Kind: query.Text},
).WithSearch("userName", "firstName", "lastName", "emailAddress")

// RegisterModels adds the customer tables to registry.
func RegisterModels(registry database.ModelRegistry) {
	registry.Register(database.NewModelAdapter((*Customer)(nil), 10))
}

// Service is the customer facade: the generic operations plus lookups by
// user name.
type Service struct {
	shopkit.Service[Customer, int64]
	db bun.IDB
}

func NewService(db bun.IDB, opts ...shopkit.Option) *Service {
	return &Service{
		Service: shopkit.NewRelationalService[Customer, int64](db, Schema, opts...),
		db:      db,
	}
}

// GetCustomerByUserName returns the customer registered as userName, or nil.
func (s *Service) GetCustomerByUserName(ctx context.Context, userName string) (*Customer, error) {
	r := repository.NewRelational[Customer, int64](repository.NewUnitOfWork(s.db), Schema)
	return r.Find(nil).Where(query.Eq(Schema.MustField("userName"), userName)).First(ctx)
}

// GetCustomers returns every customer.
func (s *Service) GetCustomers(ctx context.Context) ([]*Customer, error) {
	return s.All(ctx)
}
