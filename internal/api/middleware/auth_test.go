package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/models"
	"github.com/tigerpop/marketplaceapi/internal/service"
)

type stubUserStore struct {
	user *models.User
}

func (s *stubUserStore) GetByID(id uint) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) GetByNetID(netid string) (*models.User, error) {
	if s.user != nil && s.user.NetID != nil && *s.user.NetID == netid {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) GetByUsername(username string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) Create(user *models.User) error {
	user.ID = 1
	s.user = user
	return nil
}

func authMiddlewareFixture(t *testing.T) (*service.AuthService, string) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
		NetIDMin:  2,
		NetIDMax:  12,
	}
	authService := service.NewAuthService(&stubUserStore{}, cfg)

	user, err := authService.ResolveOrCreateUser("abc123")
	require.NoError(t, err)
	token, err := authService.IssueToken(user)
	require.NoError(t, err)
	return authService, token
}

func protectedEcho(authService *service.AuthService) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"user_id": c.Get("user_id"),
			"netid":   c.Get("netid"),
		})
	}, RequireAuth(authService))
	return e
}

func TestRequireAuth_ValidToken(t *testing.T) {
	authService, token := authMiddlewareFixture(t)
	e := protectedEcho(authService)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":1,"netid":"abc123"}`, rec.Body.String())
}

func TestRequireAuth_CaseInsensitiveScheme(t *testing.T) {
	authService, token := authMiddlewareFixture(t)
	e := protectedEcho(authService)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_Rejections(t *testing.T) {
	authService, token := authMiddlewareFixture(t)
	e := protectedEcho(authService)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"empty bearer", "Bearer "},
		{"wrong scheme", "Basic " + token},
		{"no scheme", token},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())
		})
	}
}
