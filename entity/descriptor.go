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

package entity

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/datagrid/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Field is one entry of an entity's field table.
type Field struct {
	GoName   string
	Column   string
	JSONName string
	Index    []int
	IsPK     bool
	Textual  bool // string-typed; substring search applies on every dialect
}

// Descriptor is the static field table of one entity type. It is built
// once, when the type is registered, and shared by every repository that
// serves the type.
type Descriptor[T any] struct {
	typ       reflect.Type
	table     string
	fields    []*Field
	byName    map[string]*Field
	byFold    map[string]*Field
	identity  *Field
	relations map[string]struct{}
}

// Describe builds the descriptor for T from Bun's table metadata.
func Describe[T any](db *bun.DB) (*Descriptor[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity %s must be a struct", typ)
	}
	return newDescriptor[T](typ, db.Table(typ)), nil
}

func newDescriptor[T any](typ reflect.Type, table *schema.Table) *Descriptor[T] {
	d := &Descriptor[T]{
		typ:       typ,
		table:     table.Name,
		byName:    make(map[string]*Field),
		byFold:    make(map[string]*Field),
		relations: make(map[string]struct{}),
	}
	for _, f := range table.Fields {
		field := &Field{
			GoName:   f.GoName,
			Column:   f.Name,
			JSONName: jsonName(f.StructField),
			Index:    f.Index,
			IsPK:     f.IsPK,
			Textual:  textual(f.StructField.Type),
		}
		d.fields = append(d.fields, field)
		for _, name := range []string{field.GoName, field.Column, field.JSONName} {
			if name == "" {
				continue
			}
			if _, ok := d.byName[name]; !ok {
				d.byName[name] = field
			}
			if _, ok := d.byFold[strings.ToLower(name)]; !ok {
				d.byFold[strings.ToLower(name)] = field
			}
		}
	}
	if len(table.PKs) == 1 {
		d.identity = d.byName[table.PKs[0].Name]
	}
	for name := range table.Relations {
		d.relations[name] = struct{}{}
	}
	return d
}

var nullStringType = reflect.TypeOf(sql.NullString{})

func textual(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.String || t == nullStringType
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	return strings.Split(tag, ",")[0]
}

// Type returns the entity's Go type.
func (d *Descriptor[T]) Type() reflect.Type { return d.typ }

// Table returns the entity's table name.
func (d *Descriptor[T]) Table() string { return d.table }

// Fields returns the field table in declaration order.
func (d *Descriptor[T]) Fields() []*Field { return d.fields }

// Field resolves name by exact match first, then case-insensitively.
func (d *Descriptor[T]) Field(name string) (*Field, error) {
	if f, ok := d.byName[name]; ok {
		return f, nil
	}
	if f, ok := d.byFold[strings.ToLower(name)]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q on %s", types.ErrUnknownField, name, d.typ.Name())
}

// Relation checks that name is a relation declared on the entity.
func (d *Descriptor[T]) Relation(name string) error {
	if _, ok := d.relations[name]; ok {
		return nil
	}
	return fmt.Errorf("%w: relation %q on %s", types.ErrUnknownField, name, d.typ.Name())
}

// Identity returns the identity field.
func (d *Descriptor[T]) Identity() (*Field, error) {
	if d.identity == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrMissingIdentityField, d.typ.Name())
	}
	return d.identity, nil
}

// Value reads field f from entity.
func (d *Descriptor[T]) Value(entity *T, f *Field) (interface{}, error) {
	v, err := reflect.ValueOf(entity).Elem().FieldByIndexErr(f.Index)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// IdentityValue reads the identity of entity.
func (d *Descriptor[T]) IdentityValue(entity *T) (interface{}, error) {
	f, err := d.Identity()
	if err != nil {
		return nil, err
	}
	return d.Value(entity, f)
}

// Key formats an identity value for use in identity maps.
func (d *Descriptor[T]) Key(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

// Snapshot captures every column value of entity so later changes can be
// detected column by column.
func (d *Descriptor[T]) Snapshot(entity *T) (Snapshot, error) {
	snap := make(Snapshot, len(d.fields))
	for _, f := range d.fields {
		v, err := d.Value(entity, f)
		if err != nil {
			snap[f.Column] = nil
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s.%s: %w", d.typ.Name(), f.GoName, err)
		}
		snap[f.Column] = b
	}
	return snap, nil
}

// Snapshot holds encoded column values keyed by column name.
type Snapshot map[string][]byte

// Changed returns the non-key columns whose values differ from other.
func (s Snapshot) Changed(other Snapshot, fields []*Field) []string {
	var cols []string
	for _, f := range fields {
		if f.IsPK {
			continue
		}
		if string(s[f.Column]) != string(other[f.Column]) {
			cols = append(cols, f.Column)
		}
	}
	return cols
}
