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
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var (
	slowTag = color.New(color.FgYellow, color.Bold).SprintFunc()

	operationColors = map[string]*color.Color{
		"SELECT": color.New(color.FgGreen),
		"INSERT": color.New(color.FgBlue),
		"UPDATE": color.New(color.FgYellow),
		"DELETE": color.New(color.FgMagenta),
	}
	defaultOperationColor = color.New(color.FgRed)
)

func colorizeQuery(event *bun.QueryEvent) string {
	c, ok := operationColors[event.Operation()]
	if !ok {
		c = defaultOperationColor
	}
	return c.Sprint(event.Query)
}

// SlowQueryHook logs queries that run longer than a threshold.
type SlowQueryHook struct {
	threshold time.Duration
	logger    Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

// NewSlowQueryHook returns a hook that warns about queries slower than threshold.
func NewSlowQueryHook(threshold time.Duration, logger Logger) *SlowQueryHook {
	if logger == nil {
		logger = GetLogger()
	}
	return &SlowQueryHook{threshold: threshold, logger: logger}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if duration := time.Since(event.StartTime); duration > h.threshold {
		h.logger.Warn(slowTag("Database slow query detected"),
			"duration", duration.Round(time.Microsecond),
			"threshold", h.threshold,
			"query", colorizeQuery(event),
		)
	}
}

// MetricsHook records query counts and latencies per operation and table.
type MetricsHook struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ bun.QueryHook = (*MetricsHook)(nil)

var (
	defaultMetricsHook     *MetricsHook
	defaultMetricsHookOnce sync.Once
)

// NewMetricsHook creates the query collectors and registers them with reg.
func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	h := &MetricsHook{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datagrid_db_queries_total",
				Help: "Total number of database queries executed.",
			},
			[]string{"operation", "table", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datagrid_db_query_duration_seconds",
				Help:    "Database query latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
	}
	if err := reg.Register(h.queries); err != nil {
		return nil, err
	}
	if err := reg.Register(h.duration); err != nil {
		return nil, err
	}
	return h, nil
}

// DefaultMetricsHook returns a hook registered with the default Prometheus
// registerer. Every connection shares the same collectors.
func DefaultMetricsHook() *MetricsHook {
	defaultMetricsHookOnce.Do(func() {
		h, err := NewMetricsHook(prometheus.DefaultRegisterer)
		if err != nil {
			GetLogger().Warn("Failed to register query metrics", "error", err)
			h, _ = NewMetricsHook(prometheus.NewRegistry())
		}
		defaultMetricsHook = h
	})
	return defaultMetricsHook
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	operation := strings.ToLower(event.Operation())
	table := queryTable(event)

	status := "ok"
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		status = "error"
	}
	h.queries.WithLabelValues(operation, table, status).Inc()
	h.duration.WithLabelValues(operation, table).Observe(time.Since(event.StartTime).Seconds())
}

func queryTable(event *bun.QueryEvent) string {
	named, ok := event.IQuery.(interface{ GetTableName() string })
	if !ok || named.GetTableName() == "" {
		return "unknown"
	}
	return strings.Trim(named.GetTableName(), "\"`")
}
