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
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/entity"
	"github.com/tomoncle/datagrid/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Name  string `bun:"name,notnull" json:"name"`
	Email string `bun:"email" json:"email"`
}

type queryRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *queryRecorder) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (r *queryRecorder) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, event.Query)
}

func (r *queryRecorder) with(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, q := range r.queries {
		if strings.HasPrefix(q, prefix) {
			out = append(out, q)
		}
	}
	return out
}

func newTestDB(t *testing.T) (*bun.DB, *queryRecorder) {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.CreateTables(context.Background(), db, (*account)(nil)))
	recorder := &queryRecorder{}
	db.AddQueryHook(recorder)
	return db, recorder
}

func newTestStore(t *testing.T, db *bun.DB) Store[account] {
	t.Helper()
	desc, err := entity.Describe[account](db)
	require.NoError(t, err)
	return NewBunStore(db, desc, nil)
}

func seed(t *testing.T, s Store[account], names ...string) []*account {
	t.Helper()
	out := make([]*account, 0, len(names))
	for _, name := range names {
		a := &account{Name: name, Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"}
		s.Add(a)
		out = append(out, a)
	}
	n, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, len(names), n)
	return out
}

func TestAddAndFind(t *testing.T) {
	ctx := context.Background()
	db, recorder := newTestDB(t)
	s := newTestStore(t, db)

	added := seed(t, s, "John Doe")
	require.NotZero(t, added[0].ID)

	found, err := s.Find(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Same(t, added[0], found, "identity map returns the tracked instance")
	assert.Empty(t, recorder.with("SELECT"))

	other := newTestStore(t, db)
	loaded, err := other.Find(ctx, added[0].ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "John Doe", loaded.Name)

	missing, err := other.Find(ctx, int64(404))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveChangesWithoutPendingChanges(t *testing.T) {
	db, _ := newTestDB(t)
	n, err := newTestStore(t, db).SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAttachUnchanged(t *testing.T) {
	ctx := context.Background()
	db, recorder := newTestDB(t)
	s := newTestStore(t, db)
	a := seed(t, s, "Jane Doe")[0]

	state, err := s.Attach(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, state)

	copyOf := *a
	state, err = newTestStore(t, db).Attach(ctx, &copyOf)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, state, "untracked entity is compared with the stored row")

	n, err := s.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, recorder.with("UPDATE"))
}

func TestAttachUpdatesChangedColumnsOnly(t *testing.T) {
	ctx := context.Background()
	db, recorder := newTestDB(t)
	s := newTestStore(t, db)
	a := seed(t, s, "Jane Doe")[0]

	a.Name = "Jane Smith"
	state, err := s.Attach(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, Modified, state)

	n, err := s.SaveChanges(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	updates := recorder.with("UPDATE")
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0], `"name"`)
	assert.NotContains(t, updates[0], `"email"`)

	state, err = s.Attach(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, state, "flushed changes become the new baseline")
}

func TestAttachMissingRowIsConflict(t *testing.T) {
	db, _ := newTestDB(t)
	_, err := newTestStore(t, db).Attach(context.Background(), &account{ID: 42, Name: "ghost"})
	assert.ErrorIs(t, err, types.ErrConcurrentWriteConflict)
}

func TestRemoveUntracked(t *testing.T) {
	db, _ := newTestDB(t)
	err := newTestStore(t, db).Remove(&account{ID: 1})
	assert.ErrorIs(t, err, types.ErrEntityNotTracked)
	assert.ErrorIs(t, err, types.ErrConcurrentWriteConflict)
}

func TestConcurrentWriterConflict(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	first := newTestStore(t, db)
	a := seed(t, first, "Jim Doe")[0]

	second := newTestStore(t, db)
	theirs, err := second.Find(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, second.Remove(theirs))
	_, err = second.SaveChanges(ctx)
	require.NoError(t, err)

	a.Name = "Jim Smith"
	state, err := first.Attach(ctx, a)
	require.NoError(t, err)
	require.Equal(t, Modified, state)

	_, err = first.SaveChanges(ctx)
	assert.ErrorIs(t, err, types.ErrConcurrentWriteConflict)

	_, err = first.Attach(ctx, a)
	assert.ErrorIs(t, err, types.ErrConcurrentWriteConflict, "failed entries are no longer tracked")
}

func TestDiscardChanges(t *testing.T) {
	db, recorder := newTestDB(t)
	s := newTestStore(t, db)
	s.Add(&account{Name: "dropped"})
	s.DiscardChanges()

	n, err := s.SaveChanges(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, recorder.with("INSERT"))
}

func newMockStore(t *testing.T) (Store[account], sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return newTestStore(t, db), mock
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("read tcp 10.0.0.1:5432: connection reset by peer"))

	_, err := s.Find(context.Background(), int64(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectedStatementIsNotUnavailable(t *testing.T) {
	s, mock := newMockStore(t)
	a := &account{ID: 1, Name: "Jane"}
	s.Track(a)
	require.NoError(t, s.Remove(a))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE").WillReturnError(errors.New("FOREIGN KEY constraint failed"))
	mock.ExpectRollback()

	_, err := s.SaveChanges(context.Background())
	require.Error(t, err)

	var storeErr *types.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "delete", storeErr.Op)
	assert.NotErrorIs(t, err, types.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, types.ErrConcurrentWriteConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryStateString(t *testing.T) {
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "modified", Modified.String())
}

func TestReadThroughFindObservesDeletes(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	desc, err := entity.Describe[account](db)
	require.NoError(t, err)
	shared := NewBunStore(db, desc, nil, WithReadThrough())
	jane := seed(t, shared, "Jane Doe")[0]

	other := newTestStore(t, db)
	loaded, err := other.Find(ctx, jane.ID)
	require.NoError(t, err)
	require.NoError(t, other.Remove(loaded))
	_, err = other.SaveChanges(ctx)
	require.NoError(t, err)

	found, err := shared.Find(ctx, jane.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.ErrorIs(t, shared.Remove(jane), types.ErrEntityNotTracked)
}

func TestReadThroughAttachDiffsPersistedRow(t *testing.T) {
	ctx := context.Background()
	db, _ := newTestDB(t)
	desc, err := entity.Describe[account](db)
	require.NoError(t, err)
	shared := NewBunStore(db, desc, nil, WithReadThrough())
	john := seed(t, shared, "John Doe")[0]

	other := newTestStore(t, db)
	renamed := &account{ID: john.ID, Name: "Bob", Email: john.Email}
	state, err := other.Attach(ctx, renamed)
	require.NoError(t, err)
	require.Equal(t, Modified, state)
	_, err = other.SaveChanges(ctx)
	require.NoError(t, err)

	restored := &account{ID: john.ID, Name: "John Doe", Email: john.Email}
	state, err = shared.Attach(ctx, restored)
	require.NoError(t, err)
	assert.Equal(t, Modified, state)
	n, err := shared.SaveChanges(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	reloaded, err := newTestStore(t, db).Find(ctx, john.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "John Doe", reloaded.Name)
}

func TestMaxTrackedEvictsLeastRecentlyUsed(t *testing.T) {
	db, _ := newTestDB(t)
	desc, err := entity.Describe[account](db)
	require.NoError(t, err)
	s := NewBunStore(db, desc, nil, WithMaxTracked(2))
	added := seed(t, s, "John Doe", "Jane Doe", "Jim Beam")

	assert.Equal(t, 2, s.(*bunStore[account]).tracked.Len())
	assert.ErrorIs(t, s.Remove(added[0]), types.ErrEntityNotTracked)
	assert.NoError(t, s.Remove(added[2]))
}

func TestReadThroughIsBoundedByDefault(t *testing.T) {
	db, _ := newTestDB(t)
	desc, err := entity.Describe[account](db)
	require.NoError(t, err)

	bs := NewBunStore(db, desc, nil, WithReadThrough()).(*bunStore[account])
	assert.Equal(t, DefaultMaxTracked, bs.tracked.MaxEntries)

	unbounded := newTestStore(t, db).(*bunStore[account])
	assert.Zero(t, unbounded.tracked.MaxEntries)
}
