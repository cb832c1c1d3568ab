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

package demo

import (
	"github.com/tomoncle/datagrid/registry"
	"github.com/tomoncle/datagrid/types"
	"github.com/uptrace/bun"
)

type Department struct {
	bun.BaseModel `bun:"table:departments,alias:d"`

	ID        int64       `bun:"id,pk,autoincrement" json:"id"`
	Name      string      `bun:"name,notnull" json:"name" validate:"required,max=100"`
	Employees []*Employee `bun:"rel:has-many,join:id=department_id" json:"employees,omitempty" validate:"-"`
}

type Employee struct {
	bun.BaseModel `bun:"table:employees,alias:e"`

	ID           int64            `bun:"id,pk,autoincrement" json:"id"`
	Name         string           `bun:"name,notnull" json:"name" validate:"required,max=100"`
	Email        string           `bun:"email" json:"email,omitempty" validate:"omitempty,email"`
	DepartmentID *int64           `bun:"department_id" json:"departmentId,omitempty"`
	Department   *Department      `bun:"rel:belongs-to,join:department_id=id" json:"department,omitempty" validate:"-"`
	Attributes   types.JsonObject `bun:"attributes,type:text" json:"attributes,omitempty"`
}

// Register binds the demo entities. Departments come first so that their
// table is created before employees.
func Register(reg *registry.Registry) error {
	if err := registry.Register[Department](reg); err != nil {
		return err
	}
	return registry.Register[Employee](reg)
}
