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

package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/document"
	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/types"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Service books stock movements. Each call is durable when it returns.
type Service struct {
	repo     *document.Repository[InventoryEntry]
	validate *validator.Validate
	logger   database.Logger
	now      func() time.Time
}

func NewService(db *mongo.Database) *Service {
	return &Service{
		repo:     document.NewRepository[InventoryEntry](db, Schema),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   database.GetLogger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(logger database.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Repository exposes the underlying document repository.
func (s *Service) Repository() *document.Repository[InventoryEntry] { return s.repo }

func itemScope(itemNo string) query.Condition {
	return query.Eq(Schema.MustField("itemNo"), itemNo)
}

func (s *Service) GetByID(ctx context.Context, id string) (*InventoryEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAllByItemNo returns every entry of itemNo, newest first.
func (s *Service) GetAllByItemNo(ctx context.Context, itemNo string) ([]*InventoryEntry, error) {
	if strings.TrimSpace(itemNo) == "" {
		return nil, types.NewArgumentError("itemNo", "must not be empty")
	}
	return s.repo.Find(nil).
		Where(itemScope(itemNo)).
		OrderBy(query.Desc(Schema.MustField("createdDate")), query.Asc(Schema.Identity())).
		List(ctx)
}

// GetAllByItemNoPaging reads one page of the entries of itemNo. The search
// term matches document numbers.
func (s *Service) GetAllByItemNoPaging(ctx context.Context, itemNo string, params *types.QueryParameters) (*types.Pagination[InventoryEntry], error) {
	if strings.TrimSpace(itemNo) == "" {
		return nil, types.NewArgumentError("itemNo", "must not be empty")
	}
	if params == nil {
		params = types.NewQueryParameters(types.DefaultPageIndex, types.DefaultPageSize)
	}
	predicate, sorts, err := Schema.Build(itemScope(itemNo), params)
	if err != nil {
		return nil, err
	}
	return s.repo.Page(ctx, predicate, sorts, params.PageIndex, params.PageSize)
}

// PurchaseItem books a stock receipt for itemNo.
func (s *Service) PurchaseItem(ctx context.Context, itemNo string, in PurchaseProduct) (*InventoryEntry, error) {
	in.ItemNo = itemNo
	if err := s.validate.Struct(in); err != nil {
		return nil, types.NewArgumentError("purchase", err.Error())
	}
	entry := &InventoryEntry{
		DocumentType:       Purchase,
		DocumentNo:         in.DocumentNo,
		ItemNo:             itemNo,
		Quantity:           in.Quantity,
		ExternalDocumentNo: in.ExternalDocumentNo,
		CreatedDate:        s.now(),
	}
	if entry.DocumentNo == "" {
		entry.DocumentNo = uuid.NewString()
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Info("Inventory purchase booked", "itemNo", itemNo, "quantity", in.Quantity, "documentNo", entry.DocumentNo)
	return entry, nil
}

// SalesItem books a sale of itemNo as a negative quantity.
func (s *Service) SalesItem(ctx context.Context, itemNo string, in SalesProduct) (*InventoryEntry, error) {
	in.ItemNo = itemNo
	if err := s.validate.Struct(in); err != nil {
		return nil, types.NewArgumentError("sale", err.Error())
	}
	entry := &InventoryEntry{
		DocumentType:       Sale,
		DocumentNo:         uuid.NewString(),
		ItemNo:             itemNo,
		Quantity:           -in.Quantity,
		ExternalDocumentNo: in.ExternalDocumentNo,
		CreatedDate:        s.now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SalesOrder books every line of order in one batch and returns the shared
// document number.
func (s *Service) SalesOrder(ctx context.Context, order SalesOrder) (string, error) {
	if err := s.validate.Struct(order); err != nil {
		return "", types.NewArgumentError("salesOrder", err.Error())
	}
	entries := salesOrderEntries(order, uuid.NewString(), s.now())
	if err := s.repo.CreateMany(ctx, entries); err != nil {
		return "", err
	}
	s.logger.Info("Sales order booked", "orderNo", order.OrderNo, "documentNo", entries[0].DocumentNo, "lines", len(entries))
	return entries[0].DocumentNo, nil
}

func salesOrderEntries(order SalesOrder, documentNo string, at time.Time) []*InventoryEntry {
	entries := make([]*InventoryEntry, 0, len(order.SaleItems))
	for _, item := range order.SaleItems {
		entries = append(entries, &InventoryEntry{
			DocumentType:       Sale,
			DocumentNo:         documentNo,
			ItemNo:             item.ItemNo,
			Quantity:           -item.Quantity,
			ExternalDocumentNo: order.OrderNo,
			CreatedDate:        at,
		})
	}
	return entries
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// DeleteByDocumentNo removes every entry booked under documentNo.
func (s *Service) DeleteByDocumentNo(ctx context.Context, documentNo string) (int64, error) {
	if strings.TrimSpace(documentNo) == "" {
		return 0, types.NewArgumentError("documentNo", "must not be empty")
	}
	return s.repo.DeleteWhere(ctx, query.Eq(Schema.MustField("documentNo"), documentNo))
}

// GetStockQuantity returns the quantity on hand for itemNo.
func (s *Service) GetStockQuantity(ctx context.Context, itemNo string) (int64, error) {
	if strings.TrimSpace(itemNo) == "" {
		return 0, types.NewArgumentError("itemNo", "must not be empty")
	}
	return s.repo.Sum(ctx, itemScope(itemNo), "quantity")
}
