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

package basket

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/events"
	"github.com/tomoncle/shopkit/types"
)

// StockLookup reports the quantity on hand of an item.
type StockLookup interface {
	GetStockQuantity(ctx context.Context, itemNo string) (int64, error)
}

type Service struct {
	store     *RedisStore
	publisher events.Publisher
	stock     StockLookup
	validate  *validator.Validate
	logger    database.Logger
}

func NewService(store *RedisStore, publisher events.Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    database.GetLogger(),
	}
}

// WithStockLookup makes UpdateBasket record the available quantity of each
// item.
func (s *Service) WithStockLookup(stock StockLookup) *Service {
	s.stock = stock
	return s
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetBasket returns the cart of userName, or an empty cart.
func (s *Service) GetBasket(ctx context.Context, userName string) (*Cart, error) {
	cart, err := s.store.GetBasketByUserName(ctx, userName)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return NewCart(userName), nil
	}
	return cart, nil
}

func (s *Service) UpdateBasket(ctx context.Context, cart *Cart) (*Cart, error) {
	if cart == nil {
		return nil, types.NewArgumentError("cart", "must not be nil")
	}
	if err := s.validate.Struct(cart); err != nil {
		return nil, types.NewArgumentError("cart", err.Error())
	}
	if s.stock != nil {
		for i := range cart.Items {
			qty, err := s.stock.GetStockQuantity(ctx, cart.Items[i].ItemNo)
			if err != nil {
				return nil, err
			}
			cart.Items[i].AvailableQuantity = qty
		}
	}
	return s.store.UpdateBasket(ctx, cart)
}

func (s *Service) DeleteBasket(ctx context.Context, userName string) (bool, error) {
	return s.store.DeleteBasketFromUserName(ctx, userName)
}

// Checkout publishes a BasketCheckoutEvent priced from the stored cart. A
// missing or empty cart is NotFound. The cart itself is left in place.
func (s *Service) Checkout(ctx context.Context, userName string, in BasketCheckout) (*events.BasketCheckoutEvent, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, types.NewArgumentError("checkout", err.Error())
	}
	cart, err := s.store.GetBasketByUserName(ctx, userName)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, types.NewNotFoundError("basket", userName)
	}

	ev := &events.BasketCheckoutEvent{
		IntegrationEvent: events.NewIntegrationEvent(),
		UserName:         userName,
		TotalPrice:       cart.TotalPrice(),
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		EmailAddress:     in.EmailAddress,
		ShippingAddress:  in.ShippingAddress,
		InvoiceAddress:   in.InvoiceAddress,
	}
	if err := events.PublishJSON(ctx, s.publisher, events.BasketCheckoutTopic, ev); err != nil {
		return nil, err
	}
	s.logger.Info("Basket checked out", "userName", userName, "eventId", ev.ID, "total", ev.TotalPrice.String())
	return ev, nil
}
