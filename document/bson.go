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
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
	"github.com/tomoncle/shopkit/query"
	"github.com/tomoncle/shopkit/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var bsonOperators = map[query.Operator]string{
	query.OpEq:  "$eq",
	query.OpNe:  "$ne",
	query.OpGt:  "$gt",
	query.OpGte: "$gte",
	query.OpLt:  "$lt",
	query.OpLte: "$lte",
}

// RenderBSON renders a condition as a mongo filter document.
func RenderBSON(cond query.Condition) (bson.D, error) {
	switch c := cond.(type) {
	case nil, query.AllCondition:
		return bson.D{}, nil
	case query.Comparison:
		key := c.Field.Column
		switch c.Op {
		case query.OpIsNull:
			if null, _ := c.Value.(bool); null {
				return bson.D{{Key: key, Value: nil}}, nil
			}
			return bson.D{{Key: key, Value: bson.D{{Key: "$ne", Value: nil}}}}, nil
		case query.OpContains:
			term, _ := c.Value.(string)
			return bson.D{{Key: key, Value: bson.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}}}, nil
		default:
			op, ok := bsonOperators[c.Op]
			if !ok {
				return nil, fmt.Errorf("unsupported operator %q", c.Op)
			}
			return bson.D{{Key: key, Value: bson.D{{Key: op, Value: bsonValue(c.Value)}}}}, nil
		}
	case query.Logical:
		op := "$and"
		if c.Or {
			op = "$or"
		}
		parts := make(bson.A, 0, len(c.Conditions))
		for _, sub := range c.Conditions {
			d, err := RenderBSON(sub)
			if err != nil {
				return nil, err
			}
			parts = append(parts, d)
		}
		return bson.D{{Key: op, Value: parts}}, nil
	default:
		return nil, fmt.Errorf("unsupported condition %T", cond)
	}
}

// RenderSort renders sorts as a mongo sort document.
func RenderSort(sorts []query.Sort) bson.D {
	out := make(bson.D, 0, len(sorts))
	for _, s := range sorts {
		dir := 1
		if s.Direction == types.Descending {
			dir = -1
		}
		out = append(out, bson.E{Key: s.Field.Column, Value: dir})
	}
	return out
}

// bsonValue maps decimals to the numeric types stored in documents.
func bsonValue(v any) any {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return v
	}
	if d.IsInteger() {
		return d.IntPart()
	}
	f, _ := d.Float64()
	return f
}
