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

	"github.com/stretchr/testify/mock"
	"github.com/tomoncle/datagrid/types"
)

type MockEmployeeService struct {
	mock.Mock
}

func (m *MockEmployeeService) GetAllEmployees(ctx context.Context) ([]*Employee, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Employee), args.Error(1)
}

func (m *MockEmployeeService) ListEmployees(ctx context.Context, opts types.QueryOptions) ([]*Employee, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Employee), args.Error(1)
}

func (m *MockEmployeeService) GetAllEmployeesByID(ctx context.Context, id int64) ([]*Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Employee), args.Error(1)
}

func (m *MockEmployeeService) GetEmployeeByID(ctx context.Context, id int64) (*Employee, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Employee), args.Error(1)
}

func (m *MockEmployeeService) FindEmployees(ctx context.Context, predicate *types.Predicate) ([]*Employee, error) {
	args := m.Called(ctx, predicate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Employee), args.Error(1)
}

func (m *MockEmployeeService) EmployeeExists(ctx context.Context, predicate *types.Predicate) (bool, error) {
	args := m.Called(ctx, predicate)
	return args.Bool(0), args.Error(1)
}

func (m *MockEmployeeService) AddEmployee(ctx context.Context, employee *Employee) (bool, error) {
	args := m.Called(ctx, employee)
	return args.Bool(0), args.Error(1)
}

func (m *MockEmployeeService) AddEmployeeAndReturnID(ctx context.Context, employee *Employee) (int64, error) {
	args := m.Called(ctx, employee)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEmployeeService) UpdateEmployee(ctx context.Context, employee *Employee) (bool, error) {
	args := m.Called(ctx, employee)
	return args.Bool(0), args.Error(1)
}

func (m *MockEmployeeService) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockEmployeeService) GetPagedEmployees(ctx context.Context, req *types.DataTableRequest) (*types.DataTableResponse[Employee], error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DataTableResponse[Employee]), args.Error(1)
}

func (m *MockEmployeeService) GetFirstOrDefaultEmployee(ctx context.Context, predicate *types.Predicate, includes ...string) (*Employee, error) {
	args := m.Called(ctx, predicate, includes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Employee), args.Error(1)
}

func (m *MockEmployeeService) RemoveEmployeesRange(ctx context.Context, employees []*Employee) error {
	args := m.Called(ctx, employees)
	return args.Error(0)
}

func (m *MockEmployeeService) RemoveEmployee(ctx context.Context, employee *Employee) error {
	args := m.Called(ctx, employee)
	return args.Error(0)
}
