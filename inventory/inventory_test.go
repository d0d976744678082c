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
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/shopkit/document"
	"github.com/tomoncle/shopkit/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func offlineService(t *testing.T) *Service {
	t.Helper()
	c, err := document.Open(&document.Config{
		URI:                    "mongodb://127.0.0.1:1/?directConnection=true",
		Database:               "shopkit_test",
		ServerSelectionTimeout: 200 * time.Millisecond,
		ConnectTimeout:         200 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return NewService(c.Database())
}

func TestDocumentType(t *testing.T) {
	t.Run("Should name and describe document types", func(t *testing.T) {
		assert.Equal(t, "Purchase", Purchase.String())
		assert.Equal(t, 201, Sale.Number())
		assert.Equal(t, "stock out", SaleInternal.Desc())
		assert.False(t, DocumentType(1).IsValid())
		assert.Equal(t, types.IllegalName, DocumentType(1).Name())
		assert.Equal(t, "InventoryEntries", types.CollectionOf[InventoryEntry]())
	})
}

func TestSalesOrderEntries(t *testing.T) {
	t.Run("Should book one negative entry per line under one document", func(t *testing.T) {
		at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		entries := salesOrderEntries(SalesOrder{
			OrderNo:   "SO-1",
			SaleItems: []SaleItem{{ItemNo: "A", Quantity: 2}, {ItemNo: "B", Quantity: 5}},
		}, "DOC-1", at)

		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, "DOC-1", e.DocumentNo)
			assert.Equal(t, "SO-1", e.ExternalDocumentNo)
			assert.Equal(t, Sale, e.DocumentType)
			assert.Equal(t, at, e.CreatedDate)
		}
		assert.Equal(t, -2, entries[0].Quantity)
		assert.Equal(t, -5, entries[1].Quantity)
	})
}

func TestPagingFilter(t *testing.T) {
	t.Run("Should scope to the item and search document numbers", func(t *testing.T) {
		params, err := types.ParseQueryParameters(map[string]any{"searchTerm": "PO-7", "documentType": "101"})
		require.NoError(t, err)
		predicate, sorts, err := Schema.Build(itemScope("ITEM-1"), params)
		require.NoError(t, err)

		filter, err := document.RenderBSON(predicate.Condition())
		require.NoError(t, err)
		want := bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "itemNo", Value: bson.D{{Key: "$eq", Value: "ITEM-1"}}}},
			bson.D{{Key: "documentType", Value: bson.D{{Key: "$eq", Value: int64(101)}}}},
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "documentNo", Value: bson.Regex{Pattern: `PO-7`, Options: "i"}}},
				bson.D{{Key: "externalDocumentNo", Value: bson.Regex{Pattern: `PO-7`, Options: "i"}}},
			}}},
		}}}
		assert.Equal(t, want, filter)
		assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, document.RenderSort(sorts))
	})

	t.Run("Should bound quantities", func(t *testing.T) {
		params, err := types.ParseQueryParameters(map[string]any{"minQuantity": "-5", "maxQuantity": 10, "orderBy": "quantity desc"})
		require.NoError(t, err)
		predicate, sorts, err := Schema.Build(itemScope("ITEM-1"), params)
		require.NoError(t, err)

		filter, err := document.RenderBSON(predicate.Condition())
		require.NoError(t, err)
		want := bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "itemNo", Value: bson.D{{Key: "$eq", Value: "ITEM-1"}}}},
			bson.D{{Key: "quantity", Value: bson.D{{Key: "$lte", Value: int64(10)}}}},
			bson.D{{Key: "quantity", Value: bson.D{{Key: "$gte", Value: int64(-5)}}}},
		}}}
		assert.Equal(t, want, filter)
		assert.Equal(t, bson.D{{Key: "quantity", Value: -1}, {Key: "_id", Value: 1}}, document.RenderSort(sorts))
	})
}

func TestServiceArguments(t *testing.T) {
	ctx := context.Background()
	s := offlineService(t)

	t.Run("Should validate inputs before touching the store", func(t *testing.T) {
		_, err := s.PurchaseItem(ctx, "ITEM-1", PurchaseProduct{Quantity: 0})
		assert.True(t, types.IsInvalidArgument(err), "%v", err)
		_, err = s.SalesItem(ctx, "", SalesProduct{Quantity: 1})
		assert.True(t, types.IsInvalidArgument(err), "%v", err)
		_, err = s.SalesOrder(ctx, SalesOrder{OrderNo: "SO-1"})
		assert.True(t, types.IsInvalidArgument(err), "%v", err)
		_, err = s.SalesOrder(ctx, SalesOrder{OrderNo: "SO-1", SaleItems: []SaleItem{{ItemNo: "A", Quantity: -1}}})
		assert.True(t, types.IsInvalidArgument(err), "%v", err)
		_, err = s.DeleteByDocumentNo(ctx, " ")
		assert.True(t, types.IsInvalidArgument(err))
		_, err = s.GetStockQuantity(ctx, "")
		assert.True(t, types.IsInvalidArgument(err))
		_, err = s.GetAllByItemNo(ctx, "")
		assert.True(t, types.IsInvalidArgument(err))
	})

	t.Run("Should report an unreachable store", func(t *testing.T) {
		_, err := s.PurchaseItem(ctx, "ITEM-1", PurchaseProduct{Quantity: 3})
		assert.True(t, types.IsStoreUnavailable(err), "%v", err)
		_, err = s.GetStockQuantity(ctx, "ITEM-1")
		assert.True(t, types.IsStoreUnavailable(err), "%v", err)
	})
}

// Runs against a live server when SHOPKIT_MONGO_URI is set.
func TestInventoryIntegration(t *testing.T) {
	uri := os.Getenv("SHOPKIT_MONGO_URI")
	if uri == "" {
		t.Skip("SHOPKIT_MONGO_URI not set")
	}
	ctx := context.Background()
	cfg := document.DefaultConfig()
	cfg.URI = uri
	cfg.Database = "shopkit_inventory_" + uuid.NewString()[:8]
	c, err := document.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Database().Drop(context.Background())
		_ = c.Close(context.Background())
	})
	require.NoError(t, c.EnsureIndexes(ctx, Indexes()))
	s := NewService(c.Database())

	t.Run("Should keep stock as the sum of entries", func(t *testing.T) {
		_, err := s.PurchaseItem(ctx, "LOTUS", PurchaseProduct{Quantity: 10, ExternalDocumentNo: "PO-1"})
		require.NoError(t, err)
		_, err = s.SalesItem(ctx, "LOTUS", SalesProduct{Quantity: 3})
		require.NoError(t, err)
		docNo, err := s.SalesOrder(ctx, SalesOrder{OrderNo: "SO-9", SaleItems: []SaleItem{
			{ItemNo: "LOTUS", Quantity: 2},
			{ItemNo: "CADILLAC", Quantity: 1},
		}})
		require.NoError(t, err)

		stock, err := s.GetStockQuantity(ctx, "LOTUS")
		require.NoError(t, err)
		assert.Equal(t, int64(5), stock)

		entries, err := s.GetAllByItemNo(ctx, "LOTUS")
		require.NoError(t, err)
		assert.Len(t, entries, 3)

		removed, err := s.DeleteByDocumentNo(ctx, docNo)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		stock, err = s.GetStockQuantity(ctx, "LOTUS")
		require.NoError(t, err)
		assert.Equal(t, int64(7), stock)

		stock, err = s.GetStockQuantity(ctx, "UNKNOWN")
		require.NoError(t, err)
		assert.Zero(t, stock)
	})

	t.Run("Should page entries of one item", func(t *testing.T) {
		params := types.NewQueryParameters(1, 1)
		params.SearchTerm = "po-1"
		page, err := s.GetAllByItemNoPaging(ctx, "LOTUS", params)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Items, 1)
		assert.Equal(t, Purchase, page.Items[0].DocumentType)
	})
}
