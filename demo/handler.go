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
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tomoncle/datagrid/database"
	"github.com/tomoncle/datagrid/types"
)

type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// writeServiceError maps repository failures onto HTTP statuses without
// leaking internal details.
func writeServiceError(c *fiber.Ctx, err error) error {
	var fieldErrs ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		return c.Status(fiber.StatusBadRequest).JSON(errorPayload{
			RequestID: requestIDFromCtx(c),
			Error:     errorEnvelope{Code: "VALIDATION_FAILED", Message: "validation failed", Fields: fieldErrs},
		})
	case errors.Is(err, types.ErrNullEntity), errors.Is(err, types.ErrNullPredicate):
		return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", "bad request")
	case errors.Is(err, types.ErrUnknownField):
		return writeError(c, fiber.StatusBadRequest, "INVALID_COLUMN", "unknown column")
	case errors.Is(err, types.ErrConcurrentWriteConflict):
		return writeError(c, fiber.StatusConflict, "CONFLICT", "entity was modified concurrently")
	case errors.Is(err, types.ErrStoreUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeError(c, fe.Code, "ERROR", fe.Message)
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler standardizes errors that escape the handlers.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}

// RegisterRoutes attaches the employee API to app.
func RegisterRoutes(app fiber.Router, services ServiceFactory, v *Validator) {
	api := app.Group("/api/employees")
	api.Get("/datatable", EmployeeDataTable(services))
	api.Post("/datatable", EmployeeDataTable(services))
	api.Get("/", ListEmployees(services))
	api.Get("/:id", GetEmployee(services))
	api.Post("/", AddEmployee(services, v))
	api.Put("/:id", UpdateEmployee(services, v))
	api.Delete("/:id", DeleteEmployee(services))
}

func ListEmployees(services ServiceFactory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc, err := services(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		employees, err := svc.GetAllEmployees(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(employees)
	}
}

func GetEmployee(services ServiceFactory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := employeeID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id")
		}
		svc, err := services(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		employee, err := svc.GetEmployeeByID(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if employee == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "employee not found")
		}
		return c.JSON(employee)
	}
}

func AddEmployee(services ServiceFactory, v *Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var employee Employee
		if err := c.BodyParser(&employee); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := v.Validate(&employee); err != nil {
			return writeServiceError(c, err)
		}
		svc, err := services(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		added, err := svc.AddEmployee(c.UserContext(), &employee)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !added {
			return writeError(c, fiber.StatusBadRequest, "NOT_CREATED", "employee was not created")
		}
		c.Location("/api/employees/" + strconv.FormatInt(employee.ID, 10))
		return c.Status(fiber.StatusCreated).JSON(&employee)
	}
}

func UpdateEmployee(services ServiceFactory, v *Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := employeeID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id")
		}
		var employee Employee
		if err := c.BodyParser(&employee); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if employee.ID != id {
			return writeError(c, fiber.StatusBadRequest, "ID_MISMATCH", "id does not match body")
		}
		if err := v.Validate(&employee); err != nil {
			return writeServiceError(c, err)
		}
		svc, err := services(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		updated, err := svc.UpdateEmployee(c.UserContext(), &employee)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !updated {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "employee not found or unchanged")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func DeleteEmployee(services ServiceFactory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := employeeID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id")
		}
		svc, err := services(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		deleted, err := svc.DeleteEmployee(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !deleted {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "employee not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// EmployeeDataTable serves DataTables server-side processing. GET requests
// carry the protocol in the query string (columns[0][data]=name), POST
// requests as a form or a JSON body.
func EmployeeDataTable(services ServiceFactory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req types.DataTableRequest
		var err error
		if c.Method() == fiber.MethodGet {
			err = c.QueryParser(&req)
		} else {
			err = c.BodyParser(&req)
		}
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_REQUEST", "invalid datatable request")
		}
		svc, err := services(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		page, err := svc.GetPagedEmployees(c.UserContext(), &req)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(page)
	}
}

// HealthCheck reports database connectivity.
func HealthCheck(check func(ctx context.Context) *database.HealthStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		status := check(ctx)
		if !status.Healthy {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.JSON(fiber.Map{"status": "healthy", "response_time": status.ResponseTime.String()})
	}
}

func employeeID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
