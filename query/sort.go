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

package query

import (
	"strings"

	"github.com/tomoncle/shopkit/types"
)

// Sort is one resolved (field, direction) pair.
type Sort struct {
	Field     Field
	Direction types.SortDirection
}

// Asc sorts f ascending.
func Asc(f Field) Sort { return Sort{Field: f, Direction: types.Ascending} }

// Desc sorts f descending.
func Desc(f Field) Sort { return Sort{Field: f, Direction: types.Descending} }

// OrderBy resolves "field[:asc|:desc]" tokens against the schema. Tokens
// naming unknown fields or carrying an unknown direction are dropped. The
// identity field is appended ascending unless already present, so the order
// is total and an empty result falls back to identity ascending.
func (s *Schema) OrderBy(tokens []string) []Sort {
	sorts := make([]Sort, 0, len(tokens)+1)
	seen := map[string]bool{}
	for _, token := range tokens {
		name, dir, ok := splitToken(token)
		if !ok {
			continue
		}
		field, ok := s.Field(name)
		if !ok || seen[field.Column] {
			continue
		}
		direction, ok := types.ParseSortDirection(dir)
		if !ok {
			continue
		}
		seen[field.Column] = true
		sorts = append(sorts, Sort{Field: field, Direction: direction})
	}
	if !seen[s.identity.Column] {
		sorts = append(sorts, Asc(s.identity))
	}
	return sorts
}

// DefaultSort is the deterministic order used when no token survives.
func (s *Schema) DefaultSort() []Sort {
	return []Sort{Asc(s.identity)}
}

func splitToken(token string) (name, dir string, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", false
	}
	if i := strings.IndexByte(token, ':'); i >= 0 {
		name, dir = token[:i], token[i+1:]
	} else {
		parts := strings.Fields(token)
		switch len(parts) {
		case 1:
			name = parts[0]
		case 2:
			name, dir = parts[0], parts[1]
		default:
			return "", "", false
		}
	}
	name = strings.TrimSpace(name)
	return name, strings.TrimSpace(dir), name != ""
}
