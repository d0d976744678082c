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
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tomoncle/shopkit/config"
	"github.com/tomoncle/shopkit/customer"
	"github.com/tomoncle/shopkit/database"
	"github.com/tomoncle/shopkit/document"
	"github.com/tomoncle/shopkit/ordering"
	"github.com/tomoncle/shopkit/product"
	"github.com/tomoncle/shopkit/types"
	"github.com/tomoncle/shopkit/utils"
)

// logger is resolved after ApplyLogging so it picks up the configured format.
func logger() *utils.Logger { return utils.GetLogger("SHOPCTL") }

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	envFiles   []string
	cfg        *config.Config
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "shopctl",
		Short:        "Operate the shop stores",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(a.configPath, a.envFiles...)
			if err != nil {
				return err
			}
			cfg.ApplyLogging()
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment")

	root.AddCommand(
		migrateCmd(a),
		productsCmd(a),
		customersCmd(a),
		ordersCmd(a),
		inventoryCmd(a),
	)
	return root
}

func relationalRegistry() database.ModelRegistry {
	registry := database.NewModelRegistry()
	product.RegisterModels(registry)
	customer.RegisterModels(registry)
	ordering.RegisterModels(registry)
	return registry
}

// openDatabase connects the relational store. Migrations run when forced
// or when the configuration enables them on startup.
func (a *app) openDatabase(ctx context.Context, migrate bool) (*database.BaseDatabaseFactory, error) {
	cfg := a.cfg.Database
	cfg.DataMigrateConfig.EnableMigrateOnStartup = migrate || cfg.DataMigrateConfig.EnableMigrateOnStartup
	return database.Open(ctx, &cfg, relationalRegistry())
}

func (a *app) openDocuments(ctx context.Context) (*document.Client, error) {
	return document.Connect(ctx, &a.cfg.Mongo)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// pageFlags are the paging, sorting and search options of list commands.
type pageFlags struct {
	page    int
	size    int
	orderBy string
	search  string
	filters map[string]string
}

func (f *pageFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", types.DefaultPageIndex, "page index, starting at 1")
	cmd.Flags().IntVar(&f.size, "size", 0, "page size (defaults to the configured page size)")
	cmd.Flags().StringVar(&f.orderBy, "order-by", "", "sort such as \"name:desc,id\"")
	cmd.Flags().StringVar(&f.search, "search", "", "free-text search term")
	cmd.Flags().StringToStringVar(&f.filters, "filter", nil, "range filters such as minPrice=10")
}

func (f *pageFlags) params(cfg *config.Config) (*types.QueryParameters, error) {
	size := f.size
	if size == 0 {
		size = cfg.Paging.DefaultPageSize
	}
	if size > cfg.Paging.MaxPageSize {
		size = cfg.Paging.MaxPageSize
	}
	bag := map[string]any{
		"pageIndex":  f.page,
		"pageSize":   size,
		"orderBy":    f.orderBy,
		"searchTerm": f.search,
	}
	for k, v := range f.filters {
		bag[k] = v
	}
	return types.ParseQueryParameters(bag)
}
