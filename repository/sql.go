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

package repository

import (
	"fmt"
	"strings"

	"github.com/tomoncle/shopkit/query"
	"github.com/uptrace/bun"
)

const likeEscape = '!'

var sqlOperators = map[query.Operator]string{
	query.OpEq:  "=",
	query.OpNe:  "<>",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// RenderSQL renders a condition as a bun WHERE expression with positional
// placeholders. Column names are passed as bun.Ident arguments.
func RenderSQL(cond query.Condition) (string, []any, error) {
	var b strings.Builder
	var args []any
	if err := renderSQL(&b, &args, cond); err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

func renderSQL(b *strings.Builder, args *[]any, cond query.Condition) error {
	switch c := cond.(type) {
	case nil, query.AllCondition:
		b.WriteString("1 = 1")
	case query.Comparison:
		col := bun.Ident(c.Field.Column)
		switch c.Op {
		case query.OpIsNull:
			if null, _ := c.Value.(bool); null {
				b.WriteString("? IS NULL")
			} else {
				b.WriteString("? IS NOT NULL")
			}
			*args = append(*args, col)
		case query.OpContains:
			term, _ := c.Value.(string)
			fmt.Fprintf(b, "LOWER(?) LIKE ? ESCAPE '%c'", likeEscape)
			*args = append(*args, col, "%"+escapeLike(strings.ToLower(term))+"%")
		default:
			op, ok := sqlOperators[c.Op]
			if !ok {
				return fmt.Errorf("unsupported operator %q", c.Op)
			}
			b.WriteString("? " + op + " ?")
			*args = append(*args, col, c.Value)
		}
	case query.Logical:
		sep := " AND "
		if c.Or {
			sep = " OR "
		}
		b.WriteByte('(')
		for i, sub := range c.Conditions {
			if i > 0 {
				b.WriteString(sep)
			}
			if err := renderSQL(b, args, sub); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	default:
		return fmt.Errorf("unsupported condition %T", cond)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(
		string(likeEscape), string(likeEscape)+string(likeEscape),
		"%", string(likeEscape)+"%",
		"_", string(likeEscape)+"_",
	)
	return r.Replace(s)
}

func applyCondition(q *bun.SelectQuery, cond query.Condition) (*bun.SelectQuery, error) {
	if query.IsAll(cond) {
		return q, nil
	}
	expr, args, err := RenderSQL(cond)
	if err != nil {
		return nil, err
	}
	return q.Where(expr, args...), nil
}

func applySorts(q *bun.SelectQuery, sorts []query.Sort) *bun.SelectQuery {
	for _, s := range sorts {
		q = q.OrderExpr("? "+s.Direction.String(), bun.Ident(s.Field.Column))
	}
	return q
}
