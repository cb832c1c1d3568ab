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
	"context"
	"fmt"

	"github.com/tomoncle/datagrid"
	"github.com/tomoncle/datagrid/registry"
	"github.com/tomoncle/datagrid/types"
)

type EmployeeService interface {
	GetAllEmployees(ctx context.Context) ([]*Employee, error)
	ListEmployees(ctx context.Context, opts types.QueryOptions) ([]*Employee, error)
	GetAllEmployeesByID(ctx context.Context, id int64) ([]*Employee, error)
	GetEmployeeByID(ctx context.Context, id int64) (*Employee, error)
	FindEmployees(ctx context.Context, predicate *types.Predicate) ([]*Employee, error)
	EmployeeExists(ctx context.Context, predicate *types.Predicate) (bool, error)
	AddEmployee(ctx context.Context, employee *Employee) (bool, error)
	AddEmployeeAndReturnID(ctx context.Context, employee *Employee) (int64, error)
	UpdateEmployee(ctx context.Context, employee *Employee) (bool, error)
	DeleteEmployee(ctx context.Context, id int64) (bool, error)
	GetPagedEmployees(ctx context.Context, req *types.DataTableRequest) (*types.DataTableResponse[Employee], error)
	GetFirstOrDefaultEmployee(ctx context.Context, predicate *types.Predicate, includes ...string) (*Employee, error)
	RemoveEmployeesRange(ctx context.Context, employees []*Employee) error
	RemoveEmployee(ctx context.Context, employee *Employee) error
}

type employeeService struct {
	employees datagrid.Service[Employee]
}

// NewEmployeeService returns an EmployeeService bound to scope. The grid
// search only matches employee names.
func NewEmployeeService(scope *registry.Scope) EmployeeService {
	return &employeeService{
		employees: datagrid.NewService[Employee](scope, datagrid.WithSearchColumns("name")),
	}
}

func (s *employeeService) GetAllEmployees(ctx context.Context) ([]*Employee, error) {
	return s.employees.All(ctx)
}

func (s *employeeService) ListEmployees(ctx context.Context, opts types.QueryOptions) ([]*Employee, error) {
	return s.employees.List(ctx, opts)
}

func (s *employeeService) GetAllEmployeesByID(ctx context.Context, id int64) ([]*Employee, error) {
	repo, err := s.employees.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetAllByID(ctx, id)
}

func (s *employeeService) GetEmployeeByID(ctx context.Context, id int64) (*Employee, error) {
	return s.employees.Get(ctx, id)
}

func (s *employeeService) FindEmployees(ctx context.Context, predicate *types.Predicate) ([]*Employee, error) {
	return s.employees.Find(ctx, predicate)
}

func (s *employeeService) EmployeeExists(ctx context.Context, predicate *types.Predicate) (bool, error) {
	return s.employees.Exists(ctx, predicate)
}

func (s *employeeService) AddEmployee(ctx context.Context, employee *Employee) (bool, error) {
	return s.employees.Save(ctx, employee)
}

func (s *employeeService) AddEmployeeAndReturnID(ctx context.Context, employee *Employee) (int64, error) {
	id, err := s.employees.SaveAndReturnID(ctx, employee)
	if err != nil {
		return 0, err
	}
	n, ok := id.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected employee id type %T", id)
	}
	return n, nil
}

func (s *employeeService) UpdateEmployee(ctx context.Context, employee *Employee) (bool, error) {
	return s.employees.Update(ctx, employee)
}

func (s *employeeService) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	return s.employees.Delete(ctx, id)
}

func (s *employeeService) GetPagedEmployees(ctx context.Context, req *types.DataTableRequest) (*types.DataTableResponse[Employee], error) {
	return s.employees.Paged(ctx, req)
}

func (s *employeeService) GetFirstOrDefaultEmployee(ctx context.Context, predicate *types.Predicate, includes ...string) (*Employee, error) {
	return s.employees.First(ctx, predicate, includes...)
}

func (s *employeeService) RemoveEmployeesRange(ctx context.Context, employees []*Employee) error {
	return s.employees.RemoveRange(ctx, employees)
}

func (s *employeeService) RemoveEmployee(ctx context.Context, employee *Employee) error {
	return s.employees.Remove(ctx, employee)
}
