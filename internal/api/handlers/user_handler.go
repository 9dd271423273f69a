// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/repository"
	"github.com/tigerpop/marketplaceapi/pkg/utils/response"
)

// UserHandler is the handler for the user API
type UserHandler struct {
	userRepo *repository.UserRepository
}

// NewUserHandler creates a new handler for the user API
func NewUserHandler(userRepo *repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// UserResponseData is the response data for the Get endpoint
type UserResponseData struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// Get handles GET /api/users/:id
func (h *UserHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid user id")
	}

	user, err := h.userRepo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.Message(c, http.StatusNotFound, "User not found")
		}
		return response.Error(c, http.StatusInternalServerError, "Failed to fetch user")
	}

	return c.JSON(http.StatusOK, UserResponseData{
		Username: user.Username,
		Email:    user.Email,
	})
}
