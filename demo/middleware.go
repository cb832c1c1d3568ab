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

package demo

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/registry"
)

const (
	RequestIDHeader   = "X-Request-ID"
	RequestIDLocalKey = "request_id"
)

// RequestID propagates X-Request-ID, generating one when missing.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

func requestIDFromCtx(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDLocalKey).(string); ok {
		return id
	}
	return ""
}

// Scope opens one registry scope per request and attaches it to the user
// context. The scope is closed when the request completes.
func Scope(reg *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope := reg.NewScope()
		defer scope.Close()
		c.SetUserContext(registry.WithScope(c.UserContext(), scope))
		return c.Next()
	}
}

// Logger writes one line per request through the database logger.
func Logger(logger database.Logger) fiber.Handler {
	if logger == nil {
		logger = database.GetLogger()
	}
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		scopeID := ""
		if scope, ok := registry.ScopeFrom(c.UserContext()); ok {
			scopeID = scope.ID()
		}
		logger.Info("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"request_id", requestIDFromCtx(c),
			"scope", scopeID,
		)
		return err
	}
}

// ServiceFactory builds the employee service for a request context.
type ServiceFactory func(ctx context.Context) (EmployeeService, error)

// ScopedServices resolves employee services from the request scope.
func ScopedServices() ServiceFactory {
	return func(ctx context.Context) (EmployeeService, error) {
		scope, ok := registry.ScopeFrom(ctx)
		if !ok {
			return nil, fiber.NewError(fiber.StatusInternalServerError, "request scope missing")
		}
		return NewEmployeeService(scope), nil
	}
}
