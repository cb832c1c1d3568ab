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
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var sqlOpen = sql.Open

type defaultDatabaseManager struct {
	config          *ConnectionConfig
	models          ModelRegistry
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	healthStatus    *HealthStatus
	reconnectTries  int
	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once
	tracedDriver    string
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// A nil config falls back to DefaultConnectionConfig; tables are bootstrapped
// from the default model registry.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	return NewDatabaseManagerWithModels(config, defaultRegistry)
}

// NewDatabaseManagerWithModels is NewDatabaseManager with an explicit model registry.
func NewDatabaseManagerWithModels(config *ConnectionConfig, models ModelRegistry) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	if models == nil {
		models = defaultRegistry
	}
	return &defaultDatabaseManager{
		config:          config,
		models:          models,
		logger:          GetLogger(),
		healthStatus:    &HealthStatus{},
		stopHealthCheck: make(chan struct{}, 1),
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}

	sqlDB, db, err := dm.open()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.sqlDB, dm.db = sqlDB, db
	dm.configureConnectionPool()

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := dm.db.PingContext(pingCtx); err != nil {
		dm.lastError = err
		_ = dm.db.Close()
		dm.db, dm.sqlDB = nil, nil
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}
	dm.logger.Info("Database connected", "type", dm.config.Type, "driver", dm.driverName(), "dbname", dm.config.DBName)
	return nil
}

func (dm *defaultDatabaseManager) open() (*sql.DB, *bun.DB, error) {
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	dsn, err := dm.dsn()
	if err != nil {
		return nil, nil, err
	}
	driverName := dm.driverName()
	if dm.config.EnableTracing {
		if driverName, err = dm.traceDriver(driverName); err != nil {
			return nil, nil, err
		}
	}
	sqlDB, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, nil, err
	}

	var db *bun.DB
	switch dm.config.Type {
	case "mysql":
		db = bun.NewDB(sqlDB, mysqldialect.New())
	case "postgres", "postgresql":
		db = bun.NewDB(sqlDB, pgdialect.New())
	default:
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	}
	dm.installHooks(db)
	return sqlDB, db, nil
}

func (dm *defaultDatabaseManager) installHooks(db *bun.DB) {
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}
	if dm.config.EnableMetrics {
		db.AddQueryHook(DefaultMetricsHook())
	}
}

func (dm *defaultDatabaseManager) driverName() string {
	switch dm.config.Type {
	case "mysql":
		return "mysql"
	case "postgres", "postgresql":
		if dm.config.Driver == "pgx" {
			return "pgx"
		}
		return "postgres"
	default:
		return sqliteshim.ShimName
	}
}

// traceDriver registers an otelsql wrapper around the driver once per
// manager, so reconnects reuse it.
func (dm *defaultDatabaseManager) traceDriver(name string) (string, error) {
	if dm.tracedDriver != "" {
		return dm.tracedDriver, nil
	}
	traced, err := otelsql.Register(name,
		otelsql.WithAttributes(dm.dbSystem()),
		otelsql.WithSpanOptions(otelsql.SpanOptions{OmitConnResetSession: true}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to register otelsql: %w", err)
	}
	dm.tracedDriver = traced
	return traced, nil
}

func (dm *defaultDatabaseManager) dbSystem() attribute.KeyValue {
	switch dm.config.Type {
	case "mysql":
		return semconv.DBSystemMySQL
	case "postgres", "postgresql":
		return semconv.DBSystemPostgreSQL
	default:
		return semconv.DBSystemSqlite
	}
}

func (dm *defaultDatabaseManager) dsn() (string, error) {
	c := dm.config
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Type {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
			c.Username, c.Password, c.Host, c.Port, c.DBName,
			c.ConnectTimeout, c.ReadTimeout, c.WriteTimeout), nil
	case "postgres", "postgresql":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		u := &url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:   c.DBName,
			User:   url.UserPassword(c.Username, c.Password),
		}
		q := u.Query()
		q.Set("sslmode", sslMode)
		q.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
		u.RawQuery = q.Encode()
		return u.String(), nil
	case "sqlite", "sqlite3":
		if c.DBName == "" || c.DBName == ":memory:" {
			return "file::memory:?cache=shared", nil
		}
		if strings.HasSuffix(c.DBName, ".db") {
			return c.DBName, nil
		}
		return c.DBName + ".db", nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.Type)
	}
}

func (dm *defaultDatabaseManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}
	if dm.config.MaxIdleConns > 0 {
		dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	}
	if dm.config.MaxOpenConns > 0 {
		dm.sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	}
	dm.sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	select {
	case dm.stopHealthCheck <- struct{}{}:
	default:
	}

	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	dm.connected = false
	if err != nil {
		dm.logger.Error("Failed to close database connection", "error", err)
	} else {
		dm.logger.Info("Database connection closed")
	}
	return err
}

func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("Attempting to reconnect to the database")
	if err := dm.Disconnect(); err != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start, Connected: dm.connected}
	if dm.db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := dm.db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}
	dm.lastError = err

	stats := dm.sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	dm.healthStatus = status
	return status
}

func (dm *defaultDatabaseManager) startHealthCheck() {
	dm.healthCheckOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(dm.config.HealthCheckInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					status := dm.HealthCheck(ctx)
					cancel()
					if !status.Healthy && dm.config.EnableReconnect {
						dm.handleReconnect()
					}
				case <-dm.stopHealthCheck:
					return
				}
			}
		}()
	})
}

func (dm *defaultDatabaseManager) handleReconnect() {
	if dm.reconnectTries >= dm.config.MaxReconnectTries {
		dm.logger.Error("Max reconnect attempts reached", "tries", dm.reconnectTries)
		return
	}
	dm.reconnectTries++
	time.Sleep(dm.config.ReconnectInterval)

	ctx, cancel := context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
	defer cancel()
	if err := dm.Reconnect(ctx); err != nil {
		dm.logger.Error("Reconnect failed", "error", err, "try", dm.reconnectTries)
		return
	}
	dm.reconnectTries = 0
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// EnsureSchema creates the tables of every registered model that does not
// exist yet. Existing tables are left untouched.
func (dm *defaultDatabaseManager) EnsureSchema(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return CreateTables(ctx, db, dm.models.Instances()...)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
