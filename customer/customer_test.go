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

package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/types"
)

func TestCustomerService(t *testing.T) {
	ctx := context.Background()
	registry := database.NewModelRegistry()
	RegisterModels(registry)
	factory, err := database.OpenMemory(ctx, registry)
	require.NoError(t, err)
	defer factory.Close()
	s := NewService(factory.GetDB())

	require.NoError(t, s.Save(ctx,
		&Customer{UserName: "customer1", FirstName: "Anna", LastName: "Le", EmailAddress: "anna@example.com"},
		&Customer{UserName: "customer2", FirstName: "Binh", LastName: "Tran", EmailAddress: "binh@example.com"},
	))

	t.Run("Should find a customer by user name", func(t *testing.T) {
		c, err := s.GetCustomerByUserName(ctx, "customer2")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "Binh", c.FirstName)

		c, err = s.GetCustomerByUserName(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("Should list customers in identity order", func(t *testing.T) {
		all, err := s.GetCustomers(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "customer1", all[0].UserName)
	})

	t.Run("Should search across names and email", func(t *testing.T) {
		params := types.NewQueryParameters(1, 10)
		params.SearchTerm = "TRAN"
		page, err := s.Page(ctx, params)
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		assert.Equal(t, "customer2", page.Items[0].UserName)
	})

	t.Run("Should reject a duplicate user name", func(t *testing.T) {
		err := s.Save(ctx, &Customer{UserName: "customer1", FirstName: "X", LastName: "Y", EmailAddress: "x@example.com"})
		assert.Error(t, err)
		all, err := s.GetCustomers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}
