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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Body string `bun:"body"`
}

func sqliteConfig() *ConnectionConfig {
	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.MaxOpenConns = 1
	cfg.HealthCheckInterval = 0
	return cfg
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	models := NewModelRegistry()
	models.Register(NewModelAdapter((*note)(nil), 1))

	manager := NewDatabaseManagerWithModels(sqliteConfig(), models)
	assert.Error(t, manager.EnsureSchema(ctx), "schema needs a connection")
	assert.False(t, manager.HealthCheck(ctx).Healthy)

	require.NoError(t, manager.Connect(ctx))
	require.NoError(t, manager.Connect(ctx), "connecting twice is a no-op")
	require.NoError(t, manager.Ping(ctx))
	require.NoError(t, manager.EnsureSchema(ctx))
	require.NoError(t, manager.EnsureSchema(ctx), "existing tables are kept")

	db := manager.GetDB()
	_, err := db.NewInsert().Model(&note{Body: "hello"}).Exec(ctx)
	require.NoError(t, err)
	count, err := db.NewSelect().Model((*note)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	status := manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 1, manager.GetStats().MaxOpenConns)

	require.NoError(t, manager.Disconnect())
	assert.Nil(t, manager.GetDB())
	assert.Nil(t, manager.GetSQLDB())
	assert.Error(t, manager.Ping(ctx))
	assert.Equal(t, &DBStats{}, manager.GetStats())
}

func TestManagerConnectPingFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	prevOpen := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return sqlDB, nil }
	t.Cleanup(func() { sqlOpen = prevOpen })

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	cfg := DefaultConnectionConfig()
	cfg.Type = "postgres"
	cfg.Host = "localhost"
	cfg.Port = 5432
	cfg.HealthCheckInterval = 0
	cfg.ConnectTimeout = time.Second

	manager := NewDatabaseManagerWithModels(cfg, NewModelRegistry())
	err = manager.Connect(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	assert.Nil(t, manager.GetDB())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ConnectionConfig
		want string
	}{
		{
			name: "explicit dsn",
			cfg:  ConnectionConfig{Type: "mysql", DSN: "root@tcp(db)/grid"},
			want: "root@tcp(db)/grid",
		},
		{
			name: "postgres",
			cfg: ConnectionConfig{Type: "postgres", Host: "db", Port: 5432, Username: "grid",
				Password: "p@ss", DBName: "grid", ConnectTimeout: 10 * time.Second},
			want: "postgres://grid:p%40ss@db:5432/grid?connect_timeout=10&sslmode=disable",
		},
		{
			name: "sqlite memory",
			cfg:  ConnectionConfig{Type: "sqlite"},
			want: "file::memory:?cache=shared",
		},
		{
			name: "sqlite file",
			cfg:  ConnectionConfig{Type: "sqlite3", DBName: "grid"},
			want: "grid.db",
		},
		{
			name: "sqlite file with suffix",
			cfg:  ConnectionConfig{Type: "sqlite", DBName: "data/grid.db"},
			want: "data/grid.db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm := NewDatabaseManager(&tt.cfg).(*defaultDatabaseManager)
			dsn, err := dm.dsn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
		})
	}

	dm := NewDatabaseManager(&ConnectionConfig{Type: "mysql", Host: "db", Port: 3306, Username: "grid", Password: "pw", DBName: "grid"}).(*defaultDatabaseManager)
	dsn, err := dm.dsn()
	require.NoError(t, err)
	assert.Contains(t, dsn, "grid:pw@tcp(db:3306)/grid?charset=utf8mb4&parseTime=True")

	_, err = NewDatabaseManager(&ConnectionConfig{Type: "oracle"}).(*defaultDatabaseManager).dsn()
	assert.Error(t, err)
}

func TestManagerDriverName(t *testing.T) {
	driver := func(cfg ConnectionConfig) string {
		return NewDatabaseManager(&cfg).(*defaultDatabaseManager).driverName()
	}
	assert.Equal(t, "mysql", driver(ConnectionConfig{Type: "mysql"}))
	assert.Equal(t, "postgres", driver(ConnectionConfig{Type: "postgres"}))
	assert.Equal(t, "pgx", driver(ConnectionConfig{Type: "postgresql", Driver: "pgx"}))
	assert.Equal(t, sqliteshim.ShimName, driver(ConnectionConfig{Type: "sqlite"}))
}

func TestGlobalConnection(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, EnsureSchema(ctx))
	assert.Nil(t, GetDB())

	cfg := DefaultConfig()
	cfg.ConnectionConfig = *sqliteConfig()
	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	assert.NoError(t, EnsureSchema(ctx))
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(ctx).Healthy)
}

func TestManagerTracedDriver(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig()
	cfg.EnableTracing = true

	manager := NewDatabaseManagerWithModels(cfg, NewModelRegistry())
	require.NoError(t, manager.Connect(ctx))
	traced := manager.(*defaultDatabaseManager).tracedDriver
	assert.Contains(t, traced, "otelsql")

	require.NoError(t, CreateTables(ctx, manager.GetDB(), (*note)(nil)))
	_, err := manager.GetDB().NewInsert().Model(&note{Body: "traced"}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, manager.Reconnect(ctx))
	assert.Equal(t, traced, manager.(*defaultDatabaseManager).tracedDriver)
	require.NoError(t, manager.Disconnect())
}
