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
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/tomoncle/datagrid/utils"

	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// BaseDatabaseFactory creates and owns a configured database manager.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	models  ModelRegistry
	logger  Logger
}

// NewDatabaseFactory returns a factory bootstrapping the process-wide models.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return NewDatabaseFactoryWithModels(defaultRegistry)
}

// NewDatabaseFactoryWithModels returns a factory bootstrapping the given models.
func NewDatabaseFactoryWithModels(models ModelRegistry) *BaseDatabaseFactory {
	return &BaseDatabaseFactory{models: models, logger: GetLogger()}
}

// CreateFromConfig validates cfg, applies DB_* environment overrides and
// builds the manager.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	OverrideFromEnv(cfg)
	if !slices.Contains(supportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes)
	}
	if cfg.Driver != "" && cfg.Driver != "pq" && cfg.Driver != "pgx" {
		return nil, fmt.Errorf("unsupported postgres driver: %s", cfg.Driver)
	}

	manager := NewDatabaseManagerWithModels(cfg, f.models)
	manager.SetLogger(f.logger)
	f.manager = manager
	return manager, nil
}

// OverrideFromEnv overrides connection settings from DB_* environment variables.
func OverrideFromEnv(cfg *ConnectionConfig) {
	cfg.Type = utils.EnvDefaultString("DB_TYPE", cfg.Type)
	cfg.Driver = utils.EnvDefaultString("DB_DRIVER", cfg.Driver)
	cfg.DSN = utils.EnvDefaultString("DB_DSN", cfg.DSN)
	cfg.Host = utils.EnvDefaultString("DB_HOST", cfg.Host)
	cfg.Port = utils.EnvDefaultInt("DB_PORT", cfg.Port)
	cfg.Username = utils.EnvDefaultString("DB_USERNAME", cfg.Username)
	cfg.Password = utils.EnvDefaultString("DB_PASSWORD", cfg.Password)
	cfg.DBName = utils.EnvDefaultString("DB_NAME", cfg.DBName)
	cfg.SSLMode = utils.EnvDefaultString("DB_SSLMODE", cfg.SSLMode)

	cfg.MaxIdleConns = utils.EnvDefaultInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	cfg.MaxOpenConns = utils.EnvDefaultInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	if v, err := strconv.Atoi(os.Getenv("DB_CONN_MAX_LIFETIME")); err == nil {
		cfg.ConnMaxLifetime = time.Duration(v) * time.Second
	}

	cfg.EnableReconnect = utils.EnvDefaultBool("DB_ENABLE_RECONNECT", cfg.EnableReconnect)
	if v, err := strconv.Atoi(os.Getenv("DB_RECONNECT_INTERVAL")); err == nil {
		cfg.ReconnectInterval = time.Duration(v) * time.Second
	}
	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
	cfg.EnableMetrics = utils.EnvDefaultBool("DB_ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = utils.EnvDefaultBool("DB_ENABLE_TRACING", cfg.EnableTracing)
}

// InitializeDatabase connects and optionally creates the registered tables.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, ensureSchema bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if ensureSchema {
		if err := f.manager.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	f.logger.Info("Database initialization completed")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "Database manager not initialized", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
