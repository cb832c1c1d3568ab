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

package datagrid

import (
	"context"
	"sync"

	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/registry"
	"github.com/tomoncle/datagrid/repository"
	"github.com/tomoncle/datagrid/types"
)

// Service is a thin application service over the repository of T.
type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities matching the options.
	List(ctx context.Context, opts types.QueryOptions) ([]*T, error)

	Find(ctx context.Context, predicate *types.Predicate) ([]*T, error)

	Exists(ctx context.Context, predicate *types.Predicate) (bool, error)

	Count(ctx context.Context, predicate *types.Predicate) (int, error)

	// First returns the first match with the named relations loaded, or nil.
	First(ctx context.Context, predicate *types.Predicate, includes ...string) (*T, error)

	// Save inserts a new entity.
	Save(ctx context.Context, model *T) (bool, error)

	// SaveAndReturnID inserts a new entity and returns its generated identity.
	SaveAndReturnID(ctx context.Context, model *T) (any, error)

	// Update persists changed fields; false means nothing changed.
	Update(ctx context.Context, model *T) (bool, error)

	// Delete removes an entity by its identifier; false means it was not found.
	Delete(ctx context.Context, id any) (bool, error)

	Remove(ctx context.Context, model *T) error

	RemoveRange(ctx context.Context, models []*T) error

	// Paged answers a DataTables request: the global search value is matched
	// as a substring of string fields and rows are ordered by the first sort
	// directive when its column is orderable.
	Paged(ctx context.Context, req *types.DataTableRequest) (*types.DataTableResponse[T], error)

	// Repository exposes the underlying repository.
	Repository() (repository.Repository[T], error)
}

type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	searchColumns []string
}

// WithSearchColumns fixes the fields searched by Paged. Without it the
// request's searchable columns are used.
func WithSearchColumns(fields ...string) ServiceOption {
	return func(o *serviceOptions) { o.searchColumns = fields }
}

type baseServiceImpl[T any] struct {
	scope *registry.Scope
	opts  serviceOptions

	once sync.Once
	repo repository.Repository[T]
	err  error
}

// NewService returns a Service whose repository is resolved from scope on
// first use.
func NewService[T any](scope *registry.Scope, opts ...ServiceOption) Service[T] {
	s := &baseServiceImpl[T]{scope: scope}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

func (s *baseServiceImpl[T]) Repository() (repository.Repository[T], error) {
	s.once.Do(func() { s.repo, s.err = registry.Resolve[T](s.scope) })
	return s.repo, s.err
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, opts types.QueryOptions) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, opts)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, predicate *types.Predicate) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Find(ctx, predicate)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, predicate *types.Predicate) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	return repo.Exists(ctx, predicate)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, predicate *types.Predicate) (int, error) {
	repo, err := s.Repository()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, predicate)
}

func (s *baseServiceImpl[T]) First(ctx context.Context, predicate *types.Predicate, includes ...string) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.FirstOrDefault(ctx, predicate, includes...)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model *T) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	return repo.Add(ctx, model)
}

func (s *baseServiceImpl[T]) SaveAndReturnID(ctx context.Context, model *T) (any, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.AddAndReturnID(ctx, model)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) (bool, error) {
	repo, err := s.Repository()
	if err != nil {
		return false, err
	}
	return repo.Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Remove(ctx context.Context, model *T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.Remove(ctx, model)
}

func (s *baseServiceImpl[T]) RemoveRange(ctx context.Context, models []*T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.RemoveRange(ctx, models)
}

func (s *baseServiceImpl[T]) Paged(ctx context.Context, req *types.DataTableRequest) (*types.DataTableResponse[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &types.DataTableRequest{}
	}
	opts := types.PageOptions{
		Search: s.searchPredicate(repo, req),
	}
	if column := req.OrderableColumn(); column != "" {
		opts.OrderBy = types.By(column)
	}
	return repo.GetPagedData(ctx, req, opts)
}

// searchPredicate ORs a substring match over every searchable column that
// maps to a string field. Unknown and non-string columns are skipped.
func (s *baseServiceImpl[T]) searchPredicate(repo repository.Repository[T], req *types.DataTableRequest) *types.Predicate {
	value := req.SearchValue()
	if value == "" {
		return nil
	}
	columns := s.opts.searchColumns
	if len(columns) == 0 {
		columns = req.SearchableColumns()
	}

	desc := repo.Store().Descriptor()
	matches := make([]*types.Predicate, 0, len(columns))
	for _, name := range columns {
		field, err := desc.Field(name)
		if err != nil {
			database.GetLogger().Debug("Search column skipped", "column", name, "table", desc.Table())
			continue
		}
		if !field.Textual {
			database.GetLogger().Debug("Non-text search column skipped", "column", name, "table", desc.Table())
			continue
		}
		matches = append(matches, types.Contains(field.Column, value))
	}
	if len(matches) == 0 {
		return types.Not(nil)
	}
	return types.Or(matches...)
}
