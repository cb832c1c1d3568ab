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

import "strings"

// DataTableSearch is a global or per-column search term.
type DataTableSearch struct {
	Value string `json:"value" query:"value" form:"value"`
	Regex bool   `json:"regex" query:"regex" form:"regex"`
}

// DataTableColumn describes one grid column. Data names the entity field
// the column displays.
type DataTableColumn struct {
	Data       string           `json:"data" query:"data" form:"data"`
	Name       string           `json:"name" query:"name" form:"name"`
	Searchable bool             `json:"searchable" query:"searchable" form:"searchable"`
	Orderable  bool             `json:"orderable" query:"orderable" form:"orderable"`
	Search     *DataTableSearch `json:"search,omitempty" query:"search" form:"search"`
}

// DataTableOrder is a sort directive referencing a column by index.
type DataTableOrder struct {
	Column int    `json:"column" query:"column" form:"column"`
	Dir    string `json:"dir" query:"dir" form:"dir"`
}

// DataTableRequest is a server-side processing request from a grid widget.
type DataTableRequest struct {
	Draw    int               `json:"draw" query:"draw" form:"draw"`
	Start   int               `json:"start" query:"start" form:"start"`
	Length  int               `json:"length" query:"length" form:"length"`
	Columns []DataTableColumn `json:"columns" query:"columns" form:"columns"`
	Order   []DataTableOrder  `json:"order" query:"order" form:"order"`
	Search  *DataTableSearch  `json:"search,omitempty" query:"search" form:"search"`
}

// DataTableResponse is the page returned to the grid widget. Draw echoes
// the request's draw token.
type DataTableResponse[T any] struct {
	Draw            int  `json:"draw"`
	RecordsTotal    int  `json:"recordsTotal"`
	RecordsFiltered int  `json:"recordsFiltered"`
	Data            []*T `json:"data"`
}

// NewDataTableResponse constructs an empty response for the request.
func NewDataTableResponse[T any](req *DataTableRequest) *DataTableResponse[T] {
	return &DataTableResponse[T]{Draw: req.Draw, Data: make([]*T, 0)}
}

// GetStart returns the offset, never negative.
func (r *DataTableRequest) GetStart() int {
	if r.Start < 0 {
		return 0
	}
	return r.Start
}

// GetLength returns the page length; zero or negative yields an empty page.
func (r *DataTableRequest) GetLength() int {
	if r.Length < 0 {
		return 0
	}
	return r.Length
}

// Ascending reports whether the first sort directive is exactly "asc".
// Any other value, or no directive at all, means descending.
func (r *DataTableRequest) Ascending() bool {
	return len(r.Order) > 0 && r.Order[0].Dir == "asc"
}

// OrderColumn returns the data field of the column referenced by the first
// sort directive, or "" when ordering must be skipped.
func (r *DataTableRequest) OrderColumn() string {
	if len(r.Order) == 0 {
		return ""
	}
	idx := r.Order[0].Column
	if idx < 0 || idx >= len(r.Columns) {
		return ""
	}
	return r.Columns[idx].Data
}

// OrderableColumn is OrderColumn restricted to columns the grid flags
// orderable. Directives on other columns are ignored.
func (r *DataTableRequest) OrderableColumn() string {
	column := r.OrderColumn()
	if column == "" || !r.Columns[r.Order[0].Column].Orderable {
		return ""
	}
	return column
}

// SearchValue returns the trimmed global search term.
func (r *DataTableRequest) SearchValue() string {
	if r.Search == nil {
		return ""
	}
	return strings.TrimSpace(r.Search.Value)
}

// SearchableColumns returns the data fields of columns flagged searchable.
func (r *DataTableRequest) SearchableColumns() []string {
	fields := make([]string, 0, len(r.Columns))
	for _, c := range r.Columns {
		if c.Searchable && c.Data != "" {
			fields = append(fields, c.Data)
		}
	}
	return fields
}
