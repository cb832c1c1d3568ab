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

package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) SetLevel(LogLevel)            {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Error(string, ...interface{}) {}

func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func connectSQLite(t *testing.T) *bun.DB {
	t.Helper()
	cfg := sqliteConfig()
	cfg.SlowQueryTime = 0
	manager := NewDatabaseManagerWithModels(cfg, NewModelRegistry())
	require.NoError(t, manager.Connect(context.Background()))
	t.Cleanup(func() { _ = manager.Disconnect() })
	db := manager.GetDB()
	require.NoError(t, CreateTables(context.Background(), db, (*note)(nil)))
	return db
}

func TestSlowQueryHook(t *testing.T) {
	ctx := context.Background()
	db := connectSQLite(t)

	fast := &recordingLogger{}
	db.AddQueryHook(NewSlowQueryHook(time.Hour, fast))
	slow := &recordingLogger{}
	db.AddQueryHook(NewSlowQueryHook(time.Nanosecond, slow))

	_, err := db.NewSelect().Model((*note)(nil)).Count(ctx)
	require.NoError(t, err)

	assert.Zero(t, fast.count())
	assert.Equal(t, 1, slow.count())
}

func queryCount(t *testing.T, reg *prometheus.Registry, operation, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != "datagrid_db_queries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == operation && labels["status"] == status {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func TestMetricsHook(t *testing.T) {
	ctx := context.Background()
	db := connectSQLite(t)

	reg := prometheus.NewRegistry()
	hook, err := NewMetricsHook(reg)
	require.NoError(t, err)
	db.AddQueryHook(hook)

	_, err = db.NewInsert().Model(&note{Body: "hello"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewSelect().Model((*note)(nil)).Count(ctx)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	assert.Equal(t, float64(1), queryCount(t, reg, "insert", "ok"))
	assert.Equal(t, float64(1), queryCount(t, reg, "select", "ok"))
	assert.Equal(t, float64(1), queryCount(t, reg, "select", "error"))

	_, err = NewMetricsHook(reg)
	assert.Error(t, err, "collectors are registered once per registry")
	assert.Same(t, DefaultMetricsHook(), DefaultMetricsHook())
}
