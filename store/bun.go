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

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/entity"
	"github.com/tomoncle/datagrid/types"

	"github.com/uptrace/bun"
)

type trackedEntry[T any] struct {
	entity   *T
	snapshot entity.Snapshot
}

type change[T any] struct {
	state   EntryState
	entity  *T
	key     string
	columns []string
}

// DefaultMaxTracked bounds the identity map of a read-through store.
const DefaultMaxTracked = 1024

type options struct {
	readThrough bool
	maxTracked  int
}

// Option configures a store.
type Option func(*options)

// WithReadThrough makes Find and Attach consult the database on every call
// instead of the identity map, and bounds the map to DefaultMaxTracked
// entries unless WithMaxTracked says otherwise. Long-lived stores shared
// across sessions need it to observe writes made elsewhere.
func WithReadThrough() Option {
	return func(o *options) {
		o.readThrough = true
		if o.maxTracked == 0 {
			o.maxTracked = DefaultMaxTracked
		}
	}
}

// WithMaxTracked caps the identity map, evicting the least recently used
// entry when full. Zero means unbounded.
func WithMaxTracked(n int) Option {
	return func(o *options) { o.maxTracked = n }
}

type bunStore[T any] struct {
	db      *bun.DB
	desc    *entity.Descriptor[T]
	logger  database.Logger
	opts    options
	mu      sync.Mutex
	tracked *lru.Cache
	pending []change[T]
}

// NewBunStore returns a store for T backed by db. Each store owns its own
// unit of work; the underlying connection pool is not owned.
func NewBunStore[T any](db *bun.DB, desc *entity.Descriptor[T], logger database.Logger, opts ...Option) Store[T] {
	if logger == nil {
		logger = database.GetLogger()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &bunStore[T]{
		db:      db,
		desc:    desc,
		logger:  logger,
		opts:    o,
		tracked: lru.New(o.maxTracked),
	}
}

func (s *bunStore[T]) entry(key string) (*trackedEntry[T], bool) {
	v, ok := s.tracked.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*trackedEntry[T]), true
}

func (s *bunStore[T]) Descriptor() *entity.Descriptor[T] { return s.desc }

func (s *bunStore[T]) NewSelect() *bun.SelectQuery { return s.db.NewSelect() }

func (s *bunStore[T]) Find(ctx context.Context, id interface{}) (*T, error) {
	pk, err := s.desc.Identity()
	if err != nil {
		return nil, err
	}
	key := s.desc.Key(id)
	if !s.opts.readThrough {
		s.mu.Lock()
		e, ok := s.entry(key)
		s.mu.Unlock()
		if ok {
			return e.entity, nil
		}
	}

	found, err := s.load(ctx, pk, id)
	if err != nil {
		return nil, err
	}
	if found == nil {
		s.forget(key)
		return nil, nil
	}
	s.Track(found)
	return found, nil
}

func (s *bunStore[T]) load(ctx context.Context, pk *entity.Field, id interface{}) (*T, error) {
	var out T
	err := s.db.NewSelect().
		Model(&out).
		Where("?TableAlias.? = ?", bun.Ident(pk.Column), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap("find", err)
	}
	return &out, nil
}

func (s *bunStore[T]) Track(entities ...*T) {
	if _, err := s.desc.Identity(); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		if e == nil {
			continue
		}
		s.trackLocked(e)
	}
}

func (s *bunStore[T]) trackLocked(e *T) {
	id, err := s.desc.IdentityValue(e)
	if err != nil {
		return
	}
	snap, err := s.desc.Snapshot(e)
	if err != nil {
		s.logger.Warn("Skip tracking entity", "table", s.desc.Table(), "error", err)
		return
	}
	s.tracked.Add(s.desc.Key(id), &trackedEntry[T]{entity: e, snapshot: snap})
}

func (s *bunStore[T]) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked.Remove(key)
}

func (s *bunStore[T]) Add(e *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, change[T]{state: Added, entity: e})
}

func (s *bunStore[T]) Remove(e *T) error {
	id, err := s.desc.IdentityValue(e)
	if err != nil {
		return err
	}
	key := s.desc.Key(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entry(key); !ok {
		return fmt.Errorf("%w: %s %s", types.ErrEntityNotTracked, s.desc.Table(), key)
	}
	s.pending = append(s.pending, change[T]{state: Deleted, entity: e, key: key})
	return nil
}

func (s *bunStore[T]) Attach(ctx context.Context, e *T) (EntryState, error) {
	pk, err := s.desc.Identity()
	if err != nil {
		return Detached, err
	}
	id, err := s.desc.Value(e, pk)
	if err != nil {
		return Detached, err
	}
	key := s.desc.Key(id)
	current, err := s.desc.Snapshot(e)
	if err != nil {
		return Detached, err
	}

	var (
		entry *trackedEntry[T]
		ok    bool
	)
	if !s.opts.readThrough {
		s.mu.Lock()
		entry, ok = s.entry(key)
		s.mu.Unlock()
	}

	var base entity.Snapshot
	if ok {
		base = entry.snapshot
	} else {
		persisted, err := s.load(ctx, pk, id)
		if err != nil {
			return Detached, err
		}
		if persisted == nil {
			s.forget(key)
			return Detached, fmt.Errorf("%w: %s %s no longer exists", types.ErrConcurrentWriteConflict, s.desc.Table(), key)
		}
		if base, err = s.desc.Snapshot(persisted); err != nil {
			return Detached, err
		}
	}

	columns := base.Changed(current, s.desc.Fields())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked.Add(key, &trackedEntry[T]{entity: e, snapshot: base})
	if len(columns) == 0 {
		return Unchanged, nil
	}
	s.pending = append(s.pending, change[T]{state: Modified, entity: e, key: key, columns: columns})
	return Modified, nil
}

func (s *bunStore[T]) SaveChanges(ctx context.Context) (int64, error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return 0, nil
	}

	var affected int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, c := range pending {
			n, err := s.apply(ctx, tx, c)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		s.discard(pending)
		if !errors.Is(err, types.ErrConcurrentWriteConflict) {
			var storeErr *types.StoreError
			if !errors.As(err, &storeErr) {
				err = Wrap("commit", err)
			}
			s.logger.Error("Failed to save changes", "table", s.desc.Table(), "changes", len(pending), "error", err)
		}
		return 0, err
	}

	s.accept(pending)
	s.logger.Debug("Saved changes", "table", s.desc.Table(), "changes", len(pending), "affected", affected)
	return affected, nil
}

func (s *bunStore[T]) apply(ctx context.Context, tx bun.Tx, c change[T]) (int64, error) {
	switch c.state {
	case Added:
		res, err := tx.NewInsert().Model(c.entity).Exec(ctx)
		if err != nil {
			return 0, Wrap("insert", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			// Some drivers cannot report affected rows for RETURNING inserts.
			return 1, nil
		}
		return n, nil
	case Modified:
		res, err := tx.NewUpdate().Model(c.entity).Column(c.columns...).WherePK().Exec(ctx)
		if err != nil {
			return 0, Wrap("update", err)
		}
		return s.expectRows(res, c)
	case Deleted:
		res, err := tx.NewDelete().Model(c.entity).WherePK().Exec(ctx)
		if err != nil {
			return 0, Wrap("delete", err)
		}
		return s.expectRows(res, c)
	}
	return 0, nil
}

func (s *bunStore[T]) expectRows(res sql.Result, c change[T]) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, Wrap(c.state.String(), err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s %s was changed or removed by another writer", types.ErrConcurrentWriteConflict, s.desc.Table(), c.key)
	}
	return n, nil
}

func (s *bunStore[T]) DiscardChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// accept folds flushed changes into the identity map.
func (s *bunStore[T]) accept(changes []change[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		switch c.state {
		case Deleted:
			s.tracked.Remove(c.key)
		default:
			s.trackLocked(c.entity)
		}
	}
}

// discard forgets entries whose persisted state is no longer known.
func (s *bunStore[T]) discard(changes []change[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		if c.key != "" {
			s.tracked.Remove(c.key)
		}
	}
}

// Wrap turns a driver error into a *types.StoreError. Rejected statements
// (constraint violations, bad columns) are kept apart from transport failures.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	statement, _ := database.IsSqlError(err)
	return types.NewStoreError(op, err, types.IsTransient(err) || !statement)
}
