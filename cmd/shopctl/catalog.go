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
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tomoncle/shopkit"
	"github.com/tomoncle/shopkit/customer"
	"github.com/tomoncle/shopkit/product"
	"github.com/tomoncle/shopkit/types"
)

func productsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Read the product catalog",
	}

	var pf pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "Print one page of products",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := pf.params(a.cfg)
			if err != nil {
				return err
			}
			factory, err := a.openDatabase(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer factory.Close()
			page, err := product.NewService(factory.GetDB()).GetProducts(cmd.Context(), params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	pf.bind(list)

	get := &cobra.Command{
		Use:   "get <no>",
		Short: "Print the product with a catalog number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := a.openDatabase(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer factory.Close()
			p, err := product.NewService(factory.GetDB()).GetProductByNo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return types.NewNotFoundError("product", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func customersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Read customers",
	}

	var pf pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "Print one page of customers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := pf.params(a.cfg)
			if err != nil {
				return err
			}
			factory, err := a.openDatabase(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer factory.Close()
			svc := customer.NewService(factory.GetDB(), shopkit.WithMaxPageSize(a.cfg.Paging.MaxPageSize))
			page, err := svc.Page(cmd.Context(), params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	pf.bind(list)

	get := &cobra.Command{
		Use:   "get <userName|id>",
		Short: "Print a customer by user name, or by id when numeric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := a.openDatabase(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer factory.Close()
			svc := customer.NewService(factory.GetDB())
			var c *customer.Customer
			if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil {
				c, err = svc.Get(cmd.Context(), id)
			} else {
				c, err = svc.GetCustomerByUserName(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if c == nil {
				return types.NewNotFoundError("customer", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), c)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}
