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
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/events"
	"github.com/tomoncle/shopkit/repository"
	"github.com/tomoncle/shopkit/types"
	"github.com/uptrace/bun"
)

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

func (s *Service) GetOrders(ctx context.Context, params *types.QueryParameters) (*types.Pagination[Order], error) {
	return s.repo().GetOrders(ctx, params)
}

func (s *Service) GetOrdersByUserName(ctx context.Context, userName string) ([]*Order, error) {
	return s.repo().GetOrdersByUserName(ctx, userName)
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.repo().GetByID(ctx, id)
}

// CreateOrder inserts o with a fresh document number and the New status
// unless they are set.
func (s *Service) CreateOrder(ctx context.Context, o *Order) (int64, error) {
	if o == nil {
		return 0, types.NewArgumentError("order", "must not be nil")
	}
	if err := s.validate.Struct(o); err != nil {
		return 0, types.NewArgumentError("order", err.Error())
	}
	if o.DocumentNo == "" {
		o.DocumentNo = uuid.NewString()
	}
	if !o.Status.IsValid() {
		o.Status = StatusNew
	}
	r := s.repo()
	if err := r.Create(ctx, o); err != nil {
		return 0, err
	}
	if _, err := r.UnitOfWork().Commit(ctx); err != nil {
		return 0, err
	}
	s.logger.Info("Order created", "id", o.ID, "documentNo", o.DocumentNo, "userName", o.UserName)
	return o.ID, nil
}

// UpdateOrder copies the editable fields of input onto order id.
func (s *Service) UpdateOrder(ctx context.Context, id int64, input *Order) (*Order, error) {
	if input == nil {
		return nil, types.NewArgumentError("order", "must not be nil")
	}
	r := s.repo()
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, types.NewNotFoundError("order", id)
	}
	o.FirstName = input.FirstName
	o.LastName = input.LastName
	o.EmailAddress = input.EmailAddress
	o.TotalPrice = input.TotalPrice
	o.ShippingAddress = input.ShippingAddress
	o.InvoiceAddress = input.InvoiceAddress
	if input.Status.IsValid() {
		o.Status = input.Status
	}
	if err := s.validate.Struct(o); err != nil {
		return nil, types.NewArgumentError("order", err.Error())
	}
	if err := r.Update(ctx, o); err != nil {
		return nil, err
	}
	if _, err := r.UnitOfWork().Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOrder removes order id. Unlike the repository delete, a missing
// order is reported.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	r := s.repo()
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o == nil {
		return types.NewNotFoundError("order", id)
	}
	if err := r.Delete(ctx, id); err != nil {
		return err
	}
	_, err = r.UnitOfWork().Commit(ctx)
	return err
}

// HandleBasketCheckout turns a serialized checkout event into an order. The
// event id becomes the document number, so a redelivered event is ignored.
func (s *Service) HandleBasketCheckout(ctx context.Context, payload []byte) (int64, error) {
	var ev events.BasketCheckoutEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return 0, types.NewArgumentError("payload", err.Error())
	}
	if ev.ID != "" {
		existing, err := s.repo().GetByDocumentNo(ctx, ev.ID)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			s.logger.Warn("Checkout event already handled", "eventId", ev.ID, "orderId", existing.ID)
			return existing.ID, nil
		}
	}
	return s.CreateOrder(ctx, &Order{
		DocumentNo:      ev.ID,
		UserName:        ev.UserName,
		TotalPrice:      ev.TotalPrice,
		FirstName:       ev.FirstName,
		LastName:        ev.LastName,
		EmailAddress:    ev.EmailAddress,
		ShippingAddress: ev.ShippingAddress,
		InvoiceAddress:  ev.InvoiceAddress,
	})
}
