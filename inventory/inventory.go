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

// Package inventory keeps the stock ledger in the document store. Every
// purchase or sale is one immutable entry; stock is the sum of quantities.
package inventory

import (
	"time"

	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DocumentType classifies the business document behind an entry.
type DocumentType int

const (
	Purchase         DocumentType = 101
	PurchaseInternal DocumentType = 102
	Sale             DocumentType = 201
	SaleInternal     DocumentType = 202
)

var _ types.BaseEnum = Purchase

func (d DocumentType) IsValid() bool {
	switch d {
	case Purchase, PurchaseInternal, Sale, SaleInternal:
		return true
	}
	return false
}

func (d DocumentType) Number() int {
	if !d.IsValid() {
		return types.IllegalValue
	}
	return int(d)
}

func (d DocumentType) String() string { return d.Name() }

func (d DocumentType) Name() string {
	switch d {
	case Purchase:
		return "Purchase"
	case PurchaseInternal:
		return "PurchaseInternal"
	case Sale:
		return "Sale"
	case SaleInternal:
		return "SaleInternal"
	}
	return types.IllegalName
}

func (d DocumentType) Desc() string {
	switch d {
	case Purchase, PurchaseInternal:
		return "stock in"
	case Sale, SaleInternal:
		return "stock out"
	}
	return types.IllegalDesc
}

type InventoryEntry struct {
	ID                 string       `bson:"_id" json:"id"`
	DocumentType       DocumentType `bson:"documentType" json:"documentType"`
	DocumentNo         string       `bson:"documentNo" json:"documentNo"`
	ItemNo             string       `bson:"itemNo" json:"itemNo"`
	Quantity           int          `bson:"quantity" json:"quantity"`
	ExternalDocumentNo string       `bson:"externalDocumentNo,omitempty" json:"externalDocumentNo,omitempty"`
	CreatedDate        time.Time    `bson:"createdDate" json:"createdDate"`
}

func (e InventoryEntry) Identity() string { return e.ID }

func (InventoryEntry) CollectionName() string { return "InventoryEntries" }

func (e *InventoryEntry) AssignIdentity(id string) { e.ID = id }

var Schema = query.NewSchema(
	query.Field{Name: "id", Column: "_id", Kind: query.Text},
	query.Field{Name: "itemNo", Column: "itemNo", Kind: query.Text},
	query.Field{Name: "documentNo", Column: "documentNo", Kind: query.Text},
	query.Field{Name: "externalDocumentNo", Column: "externalDocumentNo", Kind: query.Text},
	query.Field{Name: "documentType", Column: "documentType", Kind: query.Number},
	query.Field{Name: "quantity", Column: "quantity", Kind: query.Number},
	query.Field{Name: "createdDate", Column: "createdDate", Kind: query.Time},
).WithSearch("documentNo", "externalDocumentNo").
	WithRange("documentType", "documentType", query.OpEq).
	WithRange("minQuantity", "quantity", query.OpGte).
	WithRange("maxQuantity", "quantity", query.OpLte).
	WithRange("from", "createdDate", query.OpGte).
	WithRange("to", "createdDate", query.OpLte)

// Indexes returns the indexes the inventory collection is queried by.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		types.CollectionOf[InventoryEntry](): {
			{Keys: bson.D{{Key: "itemNo", Value: 1}, {Key: "createdDate", Value: -1}}},
			{Keys: bson.D{{Key: "documentNo", Value: 1}}, Options: options.Index().SetName("documentNo_1")},
		},
	}
}

// PurchaseProduct is a stock receipt for one item.
type PurchaseProduct struct {
	ItemNo             string `json:"itemNo" validate:"required"`
	DocumentNo         string `json:"documentNo"`
	ExternalDocumentNo string `json:"externalDocumentNo"`
	Quantity           int    `json:"quantity" validate:"gt=0"`
}

// SalesProduct is a sale of one item.
type SalesProduct struct {
	ItemNo             string `json:"itemNo" validate:"required"`
	ExternalDocumentNo string `json:"externalDocumentNo"`
	Quantity           int    `json:"quantity" validate:"gt=0"`
}

// SaleItem is one line of a sales order.
type SaleItem struct {
	ItemNo   string `json:"itemNo" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// SalesOrder books every line of an order as sales sharing one document
// number.
type SalesOrder struct {
	OrderNo   string     `json:"orderNo" validate:"required"`
	SaleItems []SaleItem `json:"saleItems" validate:"required,min=1,dive"`
}
