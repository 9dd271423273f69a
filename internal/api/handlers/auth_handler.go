// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/models"
	"github.com/tigerpop/marketplaceapi/internal/service"
	"github.com/tigerpop/marketplaceapi/pkg/utils/response"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

// AuthHandler is the handler for token-based auth endpoints
type AuthHandler struct {
	cfg         *config.Config
	casService  *service.CASService
	authService *service.AuthService
}

// NewAuthHandler creates a new handler for the auth API
func NewAuthHandler(cfg *config.Config, casService *service.CASService, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		casService:  casService,
		authService: authService,
	}
}

// ValidateResponseData is the response data for the Validate endpoint
type ValidateResponseData struct {
	NetID       string `json:"netid"`
	UserID      uint   `json:"user_id"`
	AccessToken string `json:"access_token"`
}

// Validate redeems a CAS ticket for a bearer token without the redirect
// dance. Expected query params: ticket (required), service (optional).
func (h *AuthHandler) Validate(c echo.Context) error {
	ticket := c.QueryParam("ticket")
	if ticket == "" {
		return response.Error(c, http.StatusBadRequest, "ticket is required")
	}
	serviceURL := c.QueryParam("service")

	netid, err := h.casService.ValidateTicket(c.Request().Context(), ticket, serviceURL)
	if err != nil {
		return response.Error(c, http.StatusUnauthorized, "Invalid ticket")
	}

	user, err := h.authService.ResolveOrCreateUser(netid)
	if err != nil {
		zaplogger.Error("Validate failed at user resolution", zaplogger.Fields{
			"netid": netid,
			"error": err.Error(),
		})
		return response.Error(c, http.StatusInternalServerError, "Failed to create or fetch user")
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		return response.Error(c, http.StatusInternalServerError, "Failed to issue token")
	}

	return c.JSON(http.StatusOK, ValidateResponseData{
		NetID:       user.NetIDString(),
		UserID:      user.ID,
		AccessToken: token,
	})
}

// VerifyResponseData is the response data for the Verify endpoint
type VerifyResponseData struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	UserID   uint    `json:"user_id"`
	NetID    string  `json:"netid"`
}

// Verify returns consolidated user info for a valid bearer token. The auth
// middleware has already re-fetched the user and netid claim.
func (h *AuthHandler) Verify(c echo.Context) error {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Invalid token")
	}
	netid, _ := c.Get("netid").(string)

	return c.JSON(http.StatusOK, VerifyResponseData{
		Username: user.Username,
		Email:    user.Email,
		UserID:   user.ID,
		NetID:    netid,
	})
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponseData is the response data for the Signup endpoint
type SignupResponseData struct {
	Message string `json:"message"`
	UserID  uint   `json:"user_id"`
}

// Signup registers a password user
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return response.Error(c, http.StatusBadRequest, "Username, email and password are required")
	}

	user, err := h.authService.Signup(req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateUser) {
			return response.Error(c, http.StatusConflict, "Username or email already taken")
		}
		zaplogger.Error("Signup failed", zaplogger.Fields{"username": req.Username, "error": err.Error()})
		return response.Error(c, http.StatusInternalServerError, "Failed to create user")
	}

	return c.JSON(http.StatusCreated, SignupResponseData{
		Message: "User created successfully!",
		UserID:  user.ID,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponseData is the response data for the Login endpoint
type LoginResponseData struct {
	AccessToken string        `json:"access_token"`
	User        loginUserData `json:"user"`
}

type loginUserData struct {
	ID       uint    `json:"id"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// Login checks password credentials and returns a bearer token
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return response.Error(c, http.StatusBadRequest, "Username and password are required")
	}

	user, token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return response.Error(c, http.StatusUnauthorized, "Invalid username or password")
		}
		zaplogger.Error("Login failed", zaplogger.Fields{"username": req.Username, "error": err.Error()})
		return response.Error(c, http.StatusInternalServerError, "An error occurred during login")
	}

	return c.JSON(http.StatusOK, LoginResponseData{
		AccessToken: token,
		User: loginUserData{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}
