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
	"time"

	"github.com/spf13/cobra"
	"github.com/tomoncle/shopkit/inventory"
	"github.com/tomoncle/shopkit/utils"
)

func migrateCmd(a *app) *cobra.Command {
	var indexes bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the relational tables and, optionally, the document indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start := time.Now()
			factory, err := a.openDatabase(ctx, true)
			if err != nil {
				return err
			}
			defer factory.Close()
			logger().WithField("elapsed", utils.Since(start)).Info("Relational migrations completed")

			if !indexes {
				return nil
			}
			start = time.Now()
			client, err := a.openDocuments(ctx)
			if err != nil {
				return err
			}
			defer client.Close(context.Background())
			if err := client.EnsureIndexes(ctx, inventory.Indexes()); err != nil {
				return err
			}
			logger().WithField("elapsed", utils.Since(start)).Info("Document indexes ensured")
			return nil
		},
	}
	cmd.Flags().BoolVar(&indexes, "indexes", false, "also create the inventory collection indexes")
	return cmd
}
