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
	"context"

	"github.com/tomoncle/datagrid/store"
	"github.com/tomoncle/datagrid/types"
)

// QueryRepository defines read operations for a generic entity type.
type QueryRepository[T any] interface {
	GetAll(ctx context.Context) ([]*T, error)

	// List filters, then orders, then materializes. Both steps are optional.
	List(ctx context.Context, opts types.QueryOptions) ([]*T, error)

	GetAllByID(ctx context.Context, id any) ([]*T, error)

	// GetByID returns nil when no entity has the identity.
	GetByID(ctx context.Context, id any) (*T, error)

	Find(ctx context.Context, predicate *types.Predicate) ([]*T, error)

	Exists(ctx context.Context, predicate *types.Predicate) (bool, error)

	Count(ctx context.Context, predicate *types.Predicate) (int, error)

	// FirstOrDefault eagerly loads the named relations and returns the first
	// match, or nil.
	FirstOrDefault(ctx context.Context, predicate *types.Predicate, includes ...string) (*T, error)
}

// CrudRepository defines write operations. Boolean results report whether
// anything changed; false is normal control flow, not a failure.
type CrudRepository[T any] interface {
	Add(ctx context.Context, entity *T) (bool, error)

	AddAndReturnID(ctx context.Context, entity *T) (any, error)

	Update(ctx context.Context, entity *T) (bool, error)

	Delete(ctx context.Context, id any) (bool, error)

	Remove(ctx context.Context, entity *T) error

	RemoveRange(ctx context.Context, entities []*T) error
}

// PageQueryRepository defines grid pagination.
type PageQueryRepository[T any] interface {
	GetPagedData(ctx context.Context, req *types.DataTableRequest, opts types.PageOptions) (*types.DataTableResponse[T], error)
}

// Repository combines query, CRUD and pagination operations and exposes the
// store adapter for advanced use cases.
type Repository[T any] interface {
	QueryRepository[T]
	CrudRepository[T]
	PageQueryRepository[T]
	Store() store.Store[T]
}
