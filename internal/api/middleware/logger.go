// Package middleware provides the middleware for the Echo instance
package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupLoggerMiddleware configures and adds middleware to the Echo instance.
// Each request gets an id so log lines can be tied back to a single call.
func SetupLoggerMiddleware(e *echo.Echo) {
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}: request_id=${id}, ip=${remote_ip}, req=${method}, uri=${uri}, status=${status}, error=${error}, latency=${latency_human}\n",
	}))
	e.Use(middleware.Recover())
}
