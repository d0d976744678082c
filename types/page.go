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

package types

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	DefaultPageIndex   = 1
	DefaultPageSize    = 10
	DefaultMaxPageSize = 50
)

// QueryParameters is the paging, sorting and search surface accepted from
// callers. Keys that are not one of the named parameters land in Filters and
// are interpreted by the entity's schema (e.g. minPrice, maxPrice).
type QueryParameters struct {
	PageIndex  int            `mapstructure:"pageIndex" json:"pageIndex"`
	PageSize   int            `mapstructure:"pageSize" json:"pageSize"`
	OrderBy    string         `mapstructure:"orderBy" json:"orderBy,omitempty"`
	SearchTerm string         `mapstructure:"searchTerm" json:"searchTerm,omitempty"`
	Filters    map[string]any `mapstructure:",remain" json:"filters,omitempty"`
}

// NewQueryParameters returns parameters for the given page with defaults for
// everything else.
func NewQueryParameters(pageIndex, pageSize int) *QueryParameters {
	return &QueryParameters{PageIndex: pageIndex, PageSize: pageSize, Filters: map[string]any{}}
}

// ParseQueryParameters decodes an untyped bag. Malformed numbers degrade to
// the defaults instead of failing.
func ParseQueryParameters(bag map[string]any) (*QueryParameters, error) {
	params := &QueryParameters{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       lenientIntHook,
		WeaklyTypedInput: true,
		Result:           params,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(bag); err != nil {
		return nil, NewArgumentError("parameters", err.Error())
	}
	if params.Filters == nil {
		params.Filters = map[string]any{}
	}
	if params.PageIndex == 0 {
		params.PageIndex = DefaultPageIndex
	}
	if params.PageSize == 0 {
		params.PageSize = DefaultPageSize
	}
	return params, nil
}

// ParseQueryValues decodes URL query values, keeping the first value of each
// key.
func ParseQueryValues(values url.Values) (*QueryParameters, error) {
	bag := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			bag[k] = v[0]
		}
	}
	return ParseQueryParameters(bag)
}

func lenientIntHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, nil
		}
		return n, nil
	default:
		return data, nil
	}
}

// OrderTokens splits the comma separated order-by expression.
func (p *QueryParameters) OrderTokens() []string {
	if p == nil || strings.TrimSpace(p.OrderBy) == "" {
		return nil
	}
	parts := strings.Split(p.OrderBy, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// Pagination holds one page of items along with paging metadata.
type Pagination[T any] struct {
	PageIndex   int  `json:"pageIndex"`
	PageSize    int  `json:"pageSize"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasPrevious bool `json:"hasPrevious"`
	HasNext     bool `json:"hasNext"`
	Items       []*T `json:"items"`
}

// NewDefaultPagination constructs an empty page.
func NewDefaultPagination[T any](pageIndex int, pageSize int) *Pagination[T] {
	return NewPagination[T](make([]*T, 0), 0, pageIndex, pageSize)
}

// NewPagination builds a page and derives its metadata from total.
func NewPagination[T any](items []*T, total, pageIndex, pageSize int) *Pagination[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	p := &Pagination[T]{
		PageIndex: pageIndex,
		PageSize:  pageSize,
		Total:     total,
		Items:     items,
	}
	if pageSize > 0 {
		p.TotalPages = total / pageSize
		if total%pageSize != 0 {
			p.TotalPages++
		}
	}
	p.HasPrevious = pageIndex > 1 && total > 0
	p.HasNext = pageIndex < p.TotalPages
	return p
}

// MapPagination converts the items of a page while keeping its metadata.
func MapPagination[T, R any](page *Pagination[T], fn func(*T) *R) *Pagination[R] {
	items := make([]*R, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, fn(item))
	}
	return &Pagination[R]{
		PageIndex:   page.PageIndex,
		PageSize:    page.PageSize,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		HasPrevious: page.HasPrevious,
		HasNext:     page.HasNext,
		Items:       items,
	}
}
