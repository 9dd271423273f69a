// Package response contains response utility functions and types
package response

import (
	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON shape for error responses
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody is the JSON shape for plain message responses
type MessageBody struct {
	Message string `json:"message"`
}

// Error sends an error JSON response
func Error(c echo.Context, httpStatus int, message string) error {
	return c.JSON(httpStatus, ErrorBody{Error: message})
}

// Message sends a plain message JSON response
func Message(c echo.Context, httpStatus int, message string) error {
	return c.JSON(httpStatus, MessageBody{Message: message})
}
