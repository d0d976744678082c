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

import "strings"

// Kind is the value type of a field, used to coerce untyped filter values.
type Kind int

const (
	Text Kind = iota
	Number
	Time
)

// Field maps a public field name to its store column (or document key).
type Field struct {
	Name   string
	Column string
	Kind   Kind
}

// Operator is a comparison understood by every renderer.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIsNull   Operator = "isnull"
	OpContains Operator = "contains"
)

// ParseOperator resolves an operator name, case-insensitively.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIsNull, OpContains:
		return op, true
	case "":
		return OpEq, true
	default:
		return "", false
	}
}

// Condition is a node of a provider-neutral predicate tree.
type Condition interface {
	condition()
}

// AllCondition matches every record.
type AllCondition struct{}

// Comparison compares one field against a value. For OpContains the value is
// the raw search text; for OpIsNull a bool selects IS NULL / IS NOT NULL.
type Comparison struct {
	Field Field
	Op    Operator
	Value any
}

// Logical joins conditions with AND or OR.
type Logical struct {
	Or         bool
	Conditions []Condition
}

func (AllCondition) condition() {}
func (Comparison) condition()   {}
func (Logical) condition()      {}

// All returns the condition that matches every record.
func All() Condition { return AllCondition{} }

func Eq(f Field, v any) Condition  { return Comparison{Field: f, Op: OpEq, Value: v} }
func Ne(f Field, v any) Condition  { return Comparison{Field: f, Op: OpNe, Value: v} }
func Gt(f Field, v any) Condition  { return Comparison{Field: f, Op: OpGt, Value: v} }
func Gte(f Field, v any) Condition { return Comparison{Field: f, Op: OpGte, Value: v} }
func Lt(f Field, v any) Condition  { return Comparison{Field: f, Op: OpLt, Value: v} }
func Lte(f Field, v any) Condition { return Comparison{Field: f, Op: OpLte, Value: v} }

// IsNull matches records whose field is null (or not null when null is false).
func IsNull(f Field, null bool) Condition { return Comparison{Field: f, Op: OpIsNull, Value: null} }

// Contains is a case-insensitive substring match.
func Contains(f Field, term string) Condition {
	return Comparison{Field: f, Op: OpContains, Value: term}
}

// And joins conditions; match-all operands are dropped.
func And(conds ...Condition) Condition { return join(false, conds) }

// Or joins conditions; a single operand is returned unchanged.
func Or(conds ...Condition) Condition { return join(true, conds) }

func join(or bool, conds []Condition) Condition {
	kept := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c == nil {
			continue
		}
		if _, ok := c.(AllCondition); ok {
			if or {
				return AllCondition{}
			}
			continue
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return AllCondition{}
	case 1:
		return kept[0]
	default:
		return Logical{Or: or, Conditions: kept}
	}
}

// IsAll reports whether c matches every record.
func IsAll(c Condition) bool {
	if c == nil {
		return true
	}
	_, ok := c.(AllCondition)
	return ok
}
