// Package middleware provides the middleware for the Echo instance
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tigerpop/marketplaceapi/internal/service"
	"github.com/tigerpop/marketplaceapi/pkg/utils/response"
)

// RequireAuth gates a route behind a valid bearer token. Every failure
// (missing or malformed header, bad signature, expired token, deleted user)
// collapses to the same 401 so callers cannot probe which check failed.
// On success the user, user_id and netid land in the echo context.
func RequireAuth(authService *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return response.Error(c, http.StatusUnauthorized, "Authentication required")
			}

			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				return response.Error(c, http.StatusUnauthorized, "Authentication required")
			}

			user, netid, err := authService.VerifyToken(parts[1])
			if err != nil {
				return response.Error(c, http.StatusUnauthorized, "Authentication required")
			}

			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("netid", netid)

			return next(c)
		}
	}
}
