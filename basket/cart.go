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

// Package basket keeps shopping carts in Redis and turns a checkout into a
// published event.
package basket

import (
	"github.com/shopspring/decimal"
	"github.com/tomoncle/shopkit/types"
)

type CartItem struct {
	ItemNo            string          `json:"itemNo" validate:"required"`
	ItemName          string          `json:"itemName"`
	Quantity          int             `json:"quantity" validate:"gt=0"`
	ItemPrice         decimal.Decimal `json:"itemPrice"`
	AvailableQuantity int64           `json:"availableQuantity"`
}

type Cart struct {
	UserName     string     `json:"userName" validate:"required"`
	EmailAddress string     `json:"emailAddress,omitempty"`
	Items        []CartItem `json:"items" validate:"dive"`
}

func NewCart(userName string) *Cart {
	return &Cart{UserName: userName, Items: make([]CartItem, 0)}
}

// TotalPrice is the sum of quantity times price over all items.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.ItemPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// BasketCheckout carries the buyer details supplied at checkout.
type BasketCheckout struct {
	FirstName       string           `json:"firstName" validate:"required"`
	LastName        string           `json:"lastName" validate:"required"`
	EmailAddress    string           `json:"emailAddress" validate:"required,email"`
	ShippingAddress types.JsonObject `json:"shippingAddress"`
	InvoiceAddress  types.JsonObject `json:"invoiceAddress"`
}
