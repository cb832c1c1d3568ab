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

package registry

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/entity"
	"github.com/tomoncle/datagrid/repository"
	"github.com/tomoncle/datagrid/store"
	"github.com/tomoncle/datagrid/types"
	"github.com/uptrace/bun"
)

// Registry holds the entity bindings of one database.
type Registry struct {
	db       *bun.DB
	lifetime types.Lifetime
	logger   database.Logger
	models   database.ModelRegistry

	mu       sync.RWMutex
	bindings map[reflect.Type]any
}

type Option func(*Registry)

// WithLogger sets the logger handed to stores and repositories.
func WithLogger(logger database.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithModels records registered types in models instead of the
// process-wide model registry.
func WithModels(models database.ModelRegistry) Option {
	return func(r *Registry) { r.models = models }
}

// New returns an empty registry. Scoped is the usual lifetime.
func New(db *bun.DB, lifetime types.Lifetime, opts ...Option) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("registry requires a database")
	}
	if !lifetime.IsValid() {
		return nil, fmt.Errorf("unsupported repository lifetime: %d", lifetime)
	}
	r := &Registry{
		db:       db,
		lifetime: lifetime,
		logger:   database.GetLogger(),
		models:   database.DefaultModels(),
		bindings: make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Registry) Lifetime() types.Lifetime { return r.lifetime }

func (r *Registry) DB() *bun.DB { return r.db }

type binding[T any] struct {
	desc *entity.Descriptor[T]

	once      sync.Once
	singleton repository.Repository[T]
}

func (b *binding[T]) newRepository(r *Registry) repository.Repository[T] {
	var opts []store.Option
	if r.lifetime == types.Singleton {
		// A process-wide store outlives every session that writes around it.
		opts = append(opts, store.WithReadThrough())
	}
	return repository.NewRepository(store.NewBunStore(r.db, b.desc, r.logger, opts...), r.logger)
}

// Register binds T. The descriptor is built immediately so that a malformed
// model fails at startup. Registering a type twice is a no-op.
func Register[T any](r *Registry) error {
	typ := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bindings[typ]; ok {
		return nil
	}
	desc, err := entity.Describe[T](r.db)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", typ, err)
	}
	r.bindings[typ] = &binding[T]{desc: desc}
	r.models.Register(database.NewModelAdapter((*T)(nil), len(r.bindings)))
	r.logger.Debug("Entity registered", "type", typ.String(), "table", desc.Table(), "lifetime", r.lifetime.Name())
	return nil
}

func lookup[T any](r *Registry) (*binding[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.RLock()
	b, ok := r.bindings[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotRegistered, typ)
	}
	return b.(*binding[T]), nil
}

// Scope is one logical session. With the Scoped lifetime every repository
// resolved from the same scope shares one store and its unit of work.
type Scope struct {
	id       string
	registry *Registry

	mu     sync.Mutex
	repos  map[reflect.Type]any
	closed bool
}

// NewScope opens a logical session.
func (r *Registry) NewScope() *Scope {
	return &Scope{
		id:       uuid.NewString(),
		registry: r,
		repos:    make(map[reflect.Type]any),
	}
}

func (s *Scope) ID() string { return s.id }

func (s *Scope) Registry() *Registry { return s.registry }

// Close drops the repositories of the session. Staged changes that were never
// flushed are discarded.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, repo := range s.repos {
		if d, ok := repo.(interface{ discard() }); ok {
			d.discard()
		}
	}
	s.repos = nil
	s.closed = true
}

type scopedRepository[T any] struct {
	repository.Repository[T]
}

func (s scopedRepository[T]) discard() { s.Store().DiscardChanges() }

// Resolve returns the repository for T according to the registry lifetime.
func Resolve[T any](s *Scope) (repository.Repository[T], error) {
	r := s.registry
	b, err := lookup[T](r)
	if err != nil {
		return nil, err
	}

	switch r.lifetime {
	case types.Transient:
		return b.newRepository(r), nil
	case types.Singleton:
		b.once.Do(func() { b.singleton = b.newRepository(r) })
		return b.singleton, nil
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("scope %s is closed", s.id)
	}
	if repo, ok := s.repos[typ]; ok {
		return repo.(scopedRepository[T]).Repository, nil
	}
	repo := scopedRepository[T]{Repository: b.newRepository(r)}
	s.repos[typ] = repo
	return repo.Repository, nil
}

type scopeKey struct{}

// WithScope returns a context carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the scope carried by ctx, if any.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}
