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

package types

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNullEntity is returned when a write operation receives a nil entity.
	ErrNullEntity = errors.New("entity cannot be nil")

	// ErrNullPredicate is returned when a lookup requires a predicate and none was given.
	ErrNullPredicate = errors.New("predicate cannot be nil")

	// ErrMissingIdentityField is returned when an identity-dependent operation
	// is used on a type without a single primary key column.
	ErrMissingIdentityField = errors.New("entity has no identity field")

	// ErrUnknownField is returned when a field or relation name does not exist
	// on the entity type.
	ErrUnknownField = errors.New("unknown entity field")

	// ErrConcurrentWriteConflict is returned when a row changed or vanished
	// underneath a pending update or delete.
	ErrConcurrentWriteConflict = errors.New("concurrent write conflict")

	// ErrEntityNotTracked is returned when removing an instance the unit of
	// work does not know. It matches ErrConcurrentWriteConflict.
	ErrEntityNotTracked = fmt.Errorf("entity is not tracked: %w", ErrConcurrentWriteConflict)

	// ErrStoreUnavailable matches store failures caused by transport,
	// timeout or connectivity problems.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotRegistered is returned when resolving a repository for a type
	// that was never registered.
	ErrNotRegistered = errors.New("entity type not registered")
)

// StoreError wraps a failure reported by the backing store.
type StoreError struct {
	Op          string
	Err         error
	Unavailable bool
}

// NewStoreError wraps err for operation op. Errors classified as constraint
// or statement errors by the caller should pass unavailable=false.
func NewStoreError(op string, err error, unavailable bool) *StoreError {
	return &StoreError{Op: op, Err: err, Unavailable: unavailable}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports ErrStoreUnavailable for transport failures.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable && e.Unavailable
}

// IsTransient reports whether err looks like a connectivity or timeout
// failure rather than a rejected statement.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
