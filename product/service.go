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
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/repository"
	"github.com/tomoncle/shopkit/types"
	"github.com/uptrace/bun"
)

// Service runs each catalog operation in its own unit of work.
type Service struct {
	db       bun.IDB
	validate *validator.Validate
	logger   database.Logger
}

func NewService(db bun.IDB) *Service {
	return &Service{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   database.GetLogger(),
	}
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Service) repo() *Repository {
	uow := repository.NewUnitOfWork(s.db)
	uow.SetLogger(s.logger)
	return NewRepository(uow)
}

func (s *Service) GetProducts(ctx context.Context, params *types.QueryParameters) (*types.Pagination[Product], error) {
	return s.repo().GetProducts(ctx, params)
}

func (s *Service) GetAllProducts(ctx context.Context) ([]*Product, error) {
	return s.repo().GetAll(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.repo().GetByID(ctx, id)
}

func (s *Service) GetProductByNo(ctx context.Context, no string) (*Product, error) {
	return s.repo().GetByNo(ctx, no)
}

// CreateProduct validates p and inserts it. The catalog number must be
// unused.
func (s *Service) CreateProduct(ctx context.Context, p *Product) error {
	if p == nil {
		return types.NewArgumentError("product", "must not be nil")
	}
	if err := s.validate.Struct(p); err != nil {
		return types.NewArgumentError("product", err.Error())
	}
	r := s.repo()
	existing, err := r.GetByNo(ctx, p.No)
	if err != nil {
		return err
	}
	if existing != nil {
		return types.NewArgumentError("no", fmt.Sprintf("product %s already exists", p.No))
	}
	if err := r.Create(ctx, p); err != nil {
		return err
	}
	if _, err := r.UnitOfWork().Commit(ctx); err != nil {
		return err
	}
	s.logger.Info("Product created", "id", p.ID, "no", p.No)
	return nil
}

// UpdateProduct copies the editable fields of input onto product id. The
// catalog number is immutable.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input *Product) (*Product, error) {
	if input == nil {
		return nil, types.NewArgumentError("product", "must not be nil")
	}
	r := s.repo()
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, types.NewNotFoundError("product", id)
	}
	p.Name = input.Name
	p.Summary = input.Summary
	p.Description = input.Description
	p.Price = input.Price
	if err := s.validate.Struct(p); err != nil {
		return nil, types.NewArgumentError("product", err.Error())
	}
	if err := r.Update(ctx, p); err != nil {
		return nil, err
	}
	if _, err := r.UnitOfWork().Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes product id; a missing product is not an error.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	r := s.repo()
	if err := r.DeleteProduct(ctx, id); err != nil {
		return err
	}
	_, err := r.UnitOfWork().Commit(ctx)
	return err
}
