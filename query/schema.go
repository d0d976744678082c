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
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tomoncle/shopkit/types"
)

// Filter is an untrusted (field, operator, value) triple supplied by a caller.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// RangeParam binds a query-string key such as minPrice to a field bound.
type RangeParam struct {
	Field string
	Op    Operator
}

// Predicate is the composed query: an always-applied scope, the accepted
// filters and an optional search disjunction.
type Predicate struct {
	Scope   Condition
	Filters []Condition
	Search  Condition
}

// Condition flattens the predicate into one AND-combined tree.
func (p *Predicate) Condition() Condition {
	if p == nil {
		return AllCondition{}
	}
	conds := make([]Condition, 0, len(p.Filters)+2)
	conds = append(conds, p.Scope)
	conds = append(conds, p.Filters...)
	if p.Search != nil {
		conds = append(conds, p.Search)
	}
	return And(conds...)
}

// Schema is the allow-list of fields an entity type exposes to filtering,
// searching and sorting. Field names are matched case-insensitively.
type Schema struct {
	identity Field
	fields   map[string]Field
	order    []string
	search   []string
	ranges   map[string]RangeParam
}

// NewSchema creates a schema; the identity field is always allowed.
func NewSchema(identity Field, fields ...Field) *Schema {
	s := &Schema{
		identity: identity,
		fields:   make(map[string]Field, len(fields)+1),
		ranges:   map[string]RangeParam{},
	}
	s.add(identity)
	for _, f := range fields {
		s.add(f)
	}
	return s
}

func (s *Schema) add(f Field) {
	key := strings.ToLower(f.Name)
	if _, ok := s.fields[key]; !ok {
		s.order = append(s.order, f.Name)
	}
	s.fields[key] = f
}

// WithSearch sets the default text fields searched by a free-text term.
func (s *Schema) WithSearch(names ...string) *Schema {
	s.search = append(s.search[:0], names...)
	return s
}

// WithRange binds a bag key to a bound on field.
func (s *Schema) WithRange(param, field string, op Operator) *Schema {
	s.ranges[strings.ToLower(param)] = RangeParam{Field: field, Op: op}
	return s
}

// Identity returns the identity field.
func (s *Schema) Identity() Field { return s.identity }

// Field looks up an allowed field by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// MustField is Field for names known at compile time.
func (s *Schema) MustField(name string) Field {
	f, ok := s.Field(name)
	if !ok {
		panic(fmt.Sprintf("query: field %q is not part of the schema", name))
	}
	return f
}

// Fields returns the allowed field names in declaration order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SearchFields returns the default search fields.
func (s *Schema) SearchFields() []string {
	out := make([]string, len(s.search))
	copy(out, s.search)
	return out
}

// Compose builds the predicate for one call. A nil scope is rejected;
// filters on unknown fields, unsupported operators or values that do not fit
// the field's kind are dropped.
func (s *Schema) Compose(scope Condition, filters []Filter, searchTerm string, searchFields []string) (*Predicate, error) {
	if scope == nil {
		return nil, types.NewArgumentError("scope", "base scope is required")
	}
	p := &Predicate{Scope: scope}
	for _, f := range filters {
		if c, ok := s.accept(f); ok {
			p.Filters = append(p.Filters, c)
		}
	}
	if term := strings.TrimSpace(searchTerm); term != "" {
		var ors []Condition
		seen := map[string]bool{}
		for _, name := range searchFields {
			field, ok := s.Field(name)
			if !ok || field.Kind != Text || seen[field.Column] {
				continue
			}
			seen[field.Column] = true
			ors = append(ors, Contains(field, term))
		}
		if len(ors) > 0 {
			p.Search = Or(ors...)
		}
	}
	return p, nil
}

func (s *Schema) accept(f Filter) (Condition, bool) {
	field, ok := s.Field(f.Field)
	if !ok {
		return nil, false
	}
	op, ok := ParseOperator(string(f.Op))
	if !ok {
		return nil, false
	}
	switch op {
	case OpIsNull:
		null, ok := coerceBool(f.Value)
		if !ok {
			return nil, false
		}
		return IsNull(field, null), true
	case OpContains:
		term := strings.TrimSpace(fmt.Sprint(f.Value))
		if f.Value == nil || term == "" || field.Kind != Text {
			return nil, false
		}
		return Contains(field, term), true
	}
	v, ok := Coerce(field.Kind, f.Value)
	if !ok {
		return nil, false
	}
	return Comparison{Field: field, Op: op, Value: v}, true
}

// FiltersFrom maps the range parameters registered with WithRange from an
// untyped bag in key order. Keys without a binding are ignored.
func (s *Schema) FiltersFrom(bag map[string]any) []Filter {
	var out []Filter
	for _, key := range slices.Sorted(maps.Keys(bag)) {
		value := bag[key]
		rp, ok := s.ranges[strings.ToLower(key)]
		if !ok || value == nil {
			continue
		}
		if str, isStr := value.(string); isStr && strings.TrimSpace(str) == "" {
			continue
		}
		out = append(out, Filter{Field: rp.Field, Op: rp.Op, Value: value})
	}
	return out
}

// Build composes the predicate and resolves the sort for a set of query
// parameters using the schema's default search fields.
func (s *Schema) Build(scope Condition, params *types.QueryParameters) (*Predicate, []Sort, error) {
	if params == nil {
		params = types.NewQueryParameters(types.DefaultPageIndex, types.DefaultPageSize)
	}
	p, err := s.Compose(scope, s.FiltersFrom(params.Filters), params.SearchTerm, s.search)
	if err != nil {
		return nil, nil, err
	}
	return p, s.OrderBy(params.OrderTokens()), nil
}

// Coerce converts an untyped value to the representation used for kind:
// decimal.Decimal for numbers, time.Time for times and string for text.
func Coerce(kind Kind, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch kind {
	case Number:
		return coerceDecimal(v)
	case Time:
		switch t := v.(type) {
		case time.Time:
			return t, true
		case string:
			parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
			if err != nil {
				return nil, false
			}
			return parsed, true
		default:
			return nil, false
		}
	default:
		return fmt.Sprint(v), true
	}
}

func coerceDecimal(v any) (any, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return nil, false
		}
		return d, true
	default:
		return nil, false
	}
}

func coerceBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}
	return false, false
}
