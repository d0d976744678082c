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

package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/tomoncle/shopkit/inventory"
)

func inventoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Read inventory entries and stock levels",
	}

	// withService runs fn against an inventory service on a connected
	// document store.
	withService := func(ctx context.Context, fn func(*inventory.Service) error) error {
		client, err := a.openDocuments(ctx)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())
		return fn(inventory.NewService(client.Database()))
	}

	var pf pageFlags
	entries := &cobra.Command{
		Use:   "entries <itemNo>",
		Short: "Print one page of the entries of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := pf.params(a.cfg)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), func(s *inventory.Service) error {
				page, err := s.GetAllByItemNoPaging(cmd.Context(), args[0], params)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	pf.bind(entries)

	stock := &cobra.Command{
		Use:   "stock <itemNo>",
		Short: "Print the quantity on hand of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(s *inventory.Service) error {
				qty, err := s.GetStockQuantity(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"itemNo": args[0], "quantity": qty})
			})
		},
	}

	cmd.AddCommand(entries, stock)
	return cmd
}
