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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifetime(t *testing.T) {
	assert.Equal(t, Transient, ParseLifetime("transient"))
	assert.Equal(t, Scoped, ParseLifetime(" Scoped "))
	assert.Equal(t, Singleton, ParseLifetime("SINGLETON"))

	invalid := ParseLifetime("request")
	assert.False(t, invalid.IsValid())
	assert.Equal(t, IllegalName, invalid.Name())
	assert.Equal(t, IllegalDesc, invalid.Desc())

	assert.True(t, Scoped.IsValid())
	assert.Equal(t, 1, Scoped.Number())
	assert.Equal(t, "scoped", Scoped.String())
}

func TestStoreErrorMatching(t *testing.T) {
	cause := errors.New("connection reset")
	unavailable := NewStoreError("find", cause, true)
	assert.ErrorIs(t, unavailable, ErrStoreUnavailable)
	assert.ErrorIs(t, unavailable, cause)
	assert.Equal(t, "store find: connection reset", unavailable.Error())

	rejected := NewStoreError("insert", cause, false)
	assert.NotErrorIs(t, rejected, ErrStoreUnavailable)

	wrapped := fmt.Errorf("repository: %w", unavailable)
	var storeErr *StoreError
	require.ErrorAs(t, wrapped, &storeErr)
	assert.Equal(t, "find", storeErr.Op)
}

func TestEntityNotTrackedIsConflict(t *testing.T) {
	assert.ErrorIs(t, ErrEntityNotTracked, ErrConcurrentWriteConflict)
	assert.NotErrorIs(t, ErrConcurrentWriteConflict, ErrEntityNotTracked)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("query: %w", context.Canceled)))
	assert.True(t, IsTransient(driver.ErrBadConn))
	assert.False(t, IsTransient(errors.New("UNIQUE constraint failed")))
}

func TestJsonObject(t *testing.T) {
	obj := JsonObject{"level": "senior"}
	v, err := obj.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"level":"senior"}`, v)

	var nilObj JsonObject
	v, err = nilObj.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	var scanned JsonObject
	require.NoError(t, scanned.Scan(`{"a":1}`))
	assert.Equal(t, float64(1), scanned["a"])
	require.NoError(t, scanned.Scan([]byte(`{"b":true}`)))
	assert.Equal(t, true, scanned["b"])
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
	assert.Error(t, scanned.Scan(42))
}
