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

package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/shopkit/types"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// IsConnectionError reports whether err means the document store could not
// be reached.
func IsConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, context.DeadlineExceeded) ||
		mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "server selection")
}

func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionError(err) {
		return types.NewStoreError("mongo", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
