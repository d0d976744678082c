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

package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tomoncle/shopkit/types"
)

// IntegrationEvent is the envelope shared by every event.
type IntegrationEvent struct {
	ID           string    `json:"id"`
	CreationDate time.Time `json:"creationDate"`
}

// NewIntegrationEvent stamps a fresh id and creation time.
func NewIntegrationEvent() IntegrationEvent {
	return IntegrationEvent{ID: uuid.NewString(), CreationDate: time.Now().UTC()}
}

// BasketCheckoutEvent is emitted when a basket is checked out.
type BasketCheckoutEvent struct {
	IntegrationEvent

	UserName        string           `json:"userName"`
	TotalPrice      decimal.Decimal  `json:"totalPrice"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	EmailAddress    string           `json:"emailAddress"`
	ShippingAddress types.JsonObject `json:"shippingAddress,omitempty"`
	InvoiceAddress  types.JsonObject `json:"invoiceAddress,omitempty"`
}
