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
	"github.com/uptrace/bun"
)

// Selector projects an entity onto the value it is ordered by.
//
// A field selector names an entity field and is resolved against the
// entity's field table when the query runs, so an unknown name fails with
// ErrUnknownField. An expression selector carries a SQL projection as is.
type Selector struct {
	field string
	expr  string
	args  []interface{}
}

// By creates a selector for the named entity field. The name may be the Go
// field name, the column name or the JSON name.
func By(field string) *Selector {
	return &Selector{field: field}
}

// Expr creates a selector from a SQL projection.
func Expr(expr string, args ...interface{}) *Selector {
	return &Selector{expr: expr, args: args}
}

// Column creates an expression selector for a resolved column of the model table.
func Column(column string) *Selector {
	return Expr("?TableAlias.?", bun.Ident(column))
}

// Field returns the field name of a field selector, or "" for expressions.
func (s *Selector) Field() string {
	if s == nil {
		return ""
	}
	return s.field
}

// IsField reports whether the selector still needs field resolution.
func (s *Selector) IsField() bool {
	return s != nil && s.field != ""
}

// Apply orders q by the selector's projection. Field selectors must be
// resolved with Column first; applying one orders by the raw identifier.
func (s *Selector) Apply(q *bun.SelectQuery, ascending bool) *bun.SelectQuery {
	if s == nil {
		return q
	}
	dir := " ASC"
	if !ascending {
		dir = " DESC"
	}
	if s.field != "" {
		return q.OrderExpr("?"+dir, bun.Ident(s.field))
	}
	return q.OrderExpr(s.expr+dir, s.args...)
}

// QueryOptions configures a filtered, ordered listing. The zero value
// matches every row in store order; an ordered listing is ascending unless
// Descending is set.
type QueryOptions struct {
	Filter     *Predicate
	OrderBy    *Selector
	Descending bool
}

// PageOptions carries the optional search filter and ordering for a grid page.
type PageOptions struct {
	Search  *Predicate
	OrderBy *Selector
}
