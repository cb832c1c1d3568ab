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
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// likeEscape is the LIKE escape character on every dialect.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Predicate is a composable boolean filter over one entity type, rendered as
// a single SQL condition. A nil *Predicate matches every row.
type Predicate struct {
	expr     string
	args     []interface{}
	op       string // "", "AND", "OR", "NOT"
	children []*Predicate
	fold     bool // LIKE becomes ILIKE on PostgreSQL
}

// Where creates a predicate from a raw condition. ?TableAlias may be used to
// qualify columns with the model's table alias.
func Where(expr string, args ...interface{}) *Predicate {
	return &Predicate{expr: expr, args: args}
}

// Eq matches rows whose column equals value.
func Eq(column string, value interface{}) *Predicate {
	return compare(column, "=", value)
}

// Ne matches rows whose column differs from value.
func Ne(column string, value interface{}) *Predicate {
	return compare(column, "<>", value)
}

func Gt(column string, value interface{}) *Predicate  { return compare(column, ">", value) }
func Gte(column string, value interface{}) *Predicate { return compare(column, ">=", value) }
func Lt(column string, value interface{}) *Predicate  { return compare(column, "<", value) }
func Lte(column string, value interface{}) *Predicate { return compare(column, "<=", value) }

func compare(column, operator string, value interface{}) *Predicate {
	return Where("?TableAlias.? "+operator+" ?", bun.Ident(column), value)
}

// In matches rows whose column is one of values. An empty list matches nothing.
func In(column string, values ...interface{}) *Predicate {
	if len(values) == 0 {
		return Where("1 = 0")
	}
	return Where("?TableAlias.? IN (?)", bun.Ident(column), bun.In(values))
}

// IsNull matches rows whose column is NULL.
func IsNull(column string) *Predicate {
	return Where("?TableAlias.? IS NULL", bun.Ident(column))
}

// Contains matches rows whose column contains s as a literal substring,
// ignoring case. PostgreSQL gets ILIKE; SQLite and MySQL (with the default
// _ci collations) already compare LIKE case-insensitively.
func Contains(column string, s string) *Predicate {
	pattern := "%" + likeReplacer.Replace(s) + "%"
	p := Where("?TableAlias.? LIKE ? ESCAPE '"+likeEscape+"'", bun.Ident(column), pattern)
	p.fold = true
	return p
}

// And combines predicates with AND. Nil operands are ignored.
func And(predicates ...*Predicate) *Predicate {
	return combine("AND", predicates)
}

// Or combines predicates with OR. Nil operands are ignored.
func Or(predicates ...*Predicate) *Predicate {
	return combine("OR", predicates)
}

// Not negates p. Negating the match-all predicate matches nothing.
func Not(p *Predicate) *Predicate {
	if p == nil {
		return Where("1 = 0")
	}
	return &Predicate{op: "NOT", children: []*Predicate{p}}
}

func combine(op string, predicates []*Predicate) *Predicate {
	children := make([]*Predicate, 0, len(predicates))
	for _, p := range predicates {
		if p != nil {
			children = append(children, p)
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return &Predicate{op: op, children: children}
}

// Build renders the predicate into a condition and its positional arguments.
func (p *Predicate) Build() (string, []interface{}) {
	return p.BuildFor(dialect.Invalid)
}

// BuildFor renders the predicate for the named dialect.
func (p *Predicate) BuildFor(name dialect.Name) (string, []interface{}) {
	if p == nil {
		return "", nil
	}
	var sb strings.Builder
	var args []interface{}
	p.build(&sb, &args, name == dialect.PG)
	return sb.String(), args
}

func (p *Predicate) build(sb *strings.Builder, args *[]interface{}, ilike bool) {
	switch p.op {
	case "":
		expr := p.expr
		if p.fold && ilike {
			expr = strings.Replace(expr, " LIKE ", " ILIKE ", 1)
		}
		sb.WriteString("(")
		sb.WriteString(expr)
		sb.WriteString(")")
		*args = append(*args, p.args...)
	case "NOT":
		sb.WriteString("(NOT ")
		p.children[0].build(sb, args, ilike)
		sb.WriteString(")")
	default:
		sb.WriteString("(")
		for i, child := range p.children {
			if i > 0 {
				sb.WriteString(" " + p.op + " ")
			}
			child.build(sb, args, ilike)
		}
		sb.WriteString(")")
	}
}

// Apply adds the predicate to q as one WHERE condition.
func (p *Predicate) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if p == nil {
		return q
	}
	cond, args := p.BuildFor(q.Dialect().Name())
	return q.Where(cond, args...)
}
