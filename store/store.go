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

	"github.com/tomoncle/datagrid/entity"

	"github.com/uptrace/bun"
)

// EntryState is the unit-of-work state of an entity instance.
type EntryState int

const (
	Detached EntryState = iota
	Unchanged
	Added
	Modified
	Deleted
)

func (s EntryState) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "detached"
	}
}

// Store is the persistent collection of one entity type plus its unit of
// work. Implementations are safe for concurrent reads; staging and flushing
// must be serialized by the caller.
type Store[T any] interface {
	// Descriptor returns the entity's field table.
	Descriptor() *entity.Descriptor[T]

	// NewSelect starts a query over every persisted instance.
	NewSelect() *bun.SelectQuery

	// Find looks an entity up by identity, consulting the identity map
	// before the database unless the store reads through. It returns nil
	// when nothing matches.
	Find(ctx context.Context, id interface{}) (*T, error)

	// Track records loaded instances in the identity map.
	Track(entities ...*T)

	// Add stages an insert.
	Add(entity *T)

	// Remove stages a delete of a tracked instance.
	Remove(entity *T) error

	// Attach compares entity with its tracked state, or with the persisted
	// row when untracked or reading through, and stages an update of the
	// changed columns.
	Attach(ctx context.Context, entity *T) (EntryState, error)

	// SaveChanges flushes staged changes in one transaction and returns
	// the number of affected rows.
	SaveChanges(ctx context.Context) (int64, error)

	// DiscardChanges drops staged changes without flushing them.
	DiscardChanges()
}
