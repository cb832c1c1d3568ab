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

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/demo"
	"github.com/tomoncle/datagrid/registry"
	"github.com/tomoncle/datagrid/utils"
)

var log = utils.NewLogger("DEMO-API")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("failed to load .env: %v", err)
	}
	configPath := flag.String("config", utils.EnvDefaultString("CONFIG_FILE", "configs/config.yaml"), "path to the YAML configuration")
	addr := flag.String("addr", utils.EnvDefaultString("HTTP_ADDR", ":8080"), "listen address")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	lifetime, err := cfg.GetLifetime()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := demo.InitTracing(ctx, "datagrid-demo")
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Errorf("failed to flush traces: %v", err)
		}
	}()

	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.Errorf("failed to close database: %v", err)
		}
	}()

	reg, err := registry.New(db, lifetime)
	if err != nil {
		log.Fatalf("failed to create registry: %v", err)
	}
	if err := demo.Register(reg); err != nil {
		log.Fatalf("failed to register entities: %v", err)
	}
	if cfg.RepositoryConfig.EnsureSchema {
		if err := database.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to create tables: %v", err)
		}
	}

	metrics, err := demo.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: demo.ErrorHandler()})
	app.Use(otelfiber.Middleware())
	app.Use(demo.RequestID())
	app.Use(demo.Logger(nil))
	app.Use(metrics.Handler())
	app.Get("/metrics", metrics.Endpoint())
	app.Get("/health", demo.HealthCheck(database.GetHealthStatus))

	api := app.Group("", demo.Scope(reg))
	demo.RegisterRoutes(api, demo.ScopedServices(), demo.NewValidator())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Errorf("failed to shut down server: %v", err)
		}
	}()

	log.Infof("listening on %s (repository lifetime %s)", *addr, lifetime.Name())
	if err := app.Listen(*addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// loadConfig reads the YAML file when present and falls back to an in-memory
// SQLite database otherwise. DB_* variables override either.
func loadConfig(path string) (*database.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := database.DefaultConfig()
		cfg.ConnectionConfig.Type = "sqlite"
		cfg.ConnectionConfig.DBName = ":memory:"
		cfg.RepositoryConfig.EnsureSchema = true
		return cfg, nil
	}
	return database.LoadConfig(path)
}
