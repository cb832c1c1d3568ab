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
	"database/sql"
	"errors"
	"sync"

	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/store"
	"github.com/tomoncle/datagrid/types"
)

type baseRepositoryImpl[T any] struct {
	store  store.Store[T]
	logger database.Logger
	// serializes staging and flushing on the shared unit of work
	mu sync.Mutex
}

// NewRepository returns a generic repository backed by the provided store.
// Mutating calls are serialized per repository, so one instance may be
// shared by concurrent callers.
func NewRepository[T any](s store.Store[T], logger database.Logger) Repository[T] {
	if logger == nil {
		logger = database.GetLogger()
	}
	return &baseRepositoryImpl[T]{store: s, logger: logger}
}

func (r *baseRepositoryImpl[T]) Store() store.Store[T] { return r.store }

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.List(ctx, types.QueryOptions{})
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, opts types.QueryOptions) ([]*T, error) {
	order, err := r.resolve(opts.OrderBy)
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	query := opts.Filter.Apply(r.store.NewSelect().Model(&entities))
	query = order.Apply(query, !opts.Descending)
	if err := query.Scan(ctx); err != nil {
		return nil, r.fail("list", err)
	}
	r.store.Track(entities...)
	return entities, nil
}

func (r *baseRepositoryImpl[T]) GetAllByID(ctx context.Context, id any) ([]*T, error) {
	pk, err := r.store.Descriptor().Identity()
	if err != nil {
		return nil, err
	}
	return r.List(ctx, types.QueryOptions{Filter: types.Eq(pk.Column, id)})
}

func (r *baseRepositoryImpl[T]) GetByID(ctx context.Context, id any) (*T, error) {
	entity, err := r.store.Find(ctx, id)
	if err != nil {
		return nil, r.fail("get", err)
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, predicate *types.Predicate) ([]*T, error) {
	if predicate == nil {
		return nil, types.ErrNullPredicate
	}
	return r.List(ctx, types.QueryOptions{Filter: predicate})
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, predicate *types.Predicate) (bool, error) {
	if predicate == nil {
		return false, types.ErrNullPredicate
	}
	exists, err := predicate.Apply(r.store.NewSelect().Model((*T)(nil))).Exists(ctx)
	if err != nil {
		return false, r.fail("exists", err)
	}
	return exists, nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, predicate *types.Predicate) (int, error) {
	count, err := predicate.Apply(r.store.NewSelect().Model((*T)(nil))).Count(ctx)
	if err != nil {
		return 0, r.fail("count", err)
	}
	return count, nil
}

func (r *baseRepositoryImpl[T]) FirstOrDefault(ctx context.Context, predicate *types.Predicate, includes ...string) (*T, error) {
	if predicate == nil {
		return nil, types.ErrNullPredicate
	}
	desc := r.store.Descriptor()
	var entity T
	query := r.store.NewSelect().Model(&entity)
	for _, include := range includes {
		if err := desc.Relation(include); err != nil {
			return nil, err
		}
		query = query.Relation(include)
	}
	err := predicate.Apply(query).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail("first", err)
	}
	r.store.Track(&entity)
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) Add(ctx context.Context, entity *T) (bool, error) {
	if entity == nil {
		return false, types.ErrNullEntity
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Add(entity)
	affected, err := r.store.SaveChanges(ctx)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *baseRepositoryImpl[T]) AddAndReturnID(ctx context.Context, entity *T) (any, error) {
	if entity == nil {
		return nil, types.ErrNullEntity
	}
	pk, err := r.store.Descriptor().Identity()
	if err != nil {
		return nil, err
	}
	if _, err := r.Add(ctx, entity); err != nil {
		return nil, err
	}
	return r.store.Descriptor().Value(entity, pk)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) (bool, error) {
	if entity == nil {
		return false, types.ErrNullEntity
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.store.Attach(ctx, entity)
	if err != nil {
		return r.recoverConflict(err)
	}
	if state == store.Unchanged {
		return false, nil
	}
	affected, err := r.store.SaveChanges(ctx)
	if err != nil {
		return r.recoverConflict(err)
	}
	return affected > 0, nil
}

// recoverConflict turns a write conflict into a "nothing changed" result.
func (r *baseRepositoryImpl[T]) recoverConflict(err error) (bool, error) {
	if errors.Is(err, types.ErrConcurrentWriteConflict) {
		r.logger.Warn("Update skipped after write conflict", "table", r.store.Descriptor().Table(), "error", err)
		return false, nil
	}
	return false, err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, err := r.store.Find(ctx, id)
	if err != nil {
		return false, r.fail("delete", err)
	}
	if entity == nil {
		return false, nil
	}
	if err := r.store.Remove(entity); err != nil {
		return false, err
	}
	affected, err := r.store.SaveChanges(ctx)
	if err != nil {
		// a row removed by someone else is the same as a row never found
		if errors.Is(err, types.ErrConcurrentWriteConflict) {
			return false, nil
		}
		return false, err
	}
	return affected > 0, nil
}

func (r *baseRepositoryImpl[T]) Remove(ctx context.Context, entity *T) error {
	if entity == nil {
		return types.ErrNullEntity
	}
	return r.RemoveRange(ctx, []*T{entity})
}

func (r *baseRepositoryImpl[T]) RemoveRange(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		if entity == nil {
			return types.ErrNullEntity
		}
	}
	if len(entities) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entity := range entities {
		if err := r.store.Remove(entity); err != nil {
			r.store.DiscardChanges()
			return err
		}
	}
	_, err := r.store.SaveChanges(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) GetPagedData(ctx context.Context, req *types.DataTableRequest, opts types.PageOptions) (*types.DataTableResponse[T], error) {
	if req == nil {
		req = &types.DataTableRequest{}
	}
	order, err := r.resolve(opts.OrderBy)
	if err != nil {
		return nil, err
	}

	entities := make([]*T, 0)
	query := opts.Search.Apply(r.store.NewSelect().Model(&entities))

	// Both counts are taken after the search filter; there is no separate
	// unfiltered total.
	total, err := query.Count(ctx)
	if err != nil {
		return nil, r.fail("count", err)
	}
	response := types.NewDataTableResponse[T](req)
	response.RecordsTotal = total
	response.RecordsFiltered = total

	length := req.GetLength()
	if length == 0 || total == 0 {
		return response, nil
	}

	err = order.Apply(query, req.Ascending()).
		Offset(req.GetStart()).
		Limit(length).
		Scan(ctx)
	if err != nil {
		return nil, r.fail("page", err)
	}
	r.store.Track(entities...)
	response.Data = entities
	return response, nil
}

// resolve turns a field selector into a column projection using the
// entity's field table.
func (r *baseRepositoryImpl[T]) resolve(sel *types.Selector) (*types.Selector, error) {
	if !sel.IsField() {
		return sel, nil
	}
	field, err := r.store.Descriptor().Field(sel.Field())
	if err != nil {
		return nil, err
	}
	return types.Column(field.Column), nil
}

func (r *baseRepositoryImpl[T]) fail(op string, err error) error {
	if errors.Is(err, types.ErrMissingIdentityField) || errors.Is(err, types.ErrUnknownField) {
		return err
	}
	var storeErr *types.StoreError
	if !errors.As(err, &storeErr) {
		err = store.Wrap(op, err)
	}
	r.logger.Error("Repository operation failed", "op", op, "table", r.store.Descriptor().Table(), "error", err)
	return err
}
