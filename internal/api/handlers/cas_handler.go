// Package handlers contains the handlers for the API
package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/service"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

// Error codes carried on the failure redirect
const (
	errCodeInvalidTicket      = "invalid_ticket"
	errCodeUserCreationFailed = "user_creation_failed"
	errCodeServerError        = "server_error"
)

var embeddedTicketPattern = regexp.MustCompile(`ticket=([^&]+)`)

// SessionState records the netid of a logged-in user as a secondary,
// non-authoritative signal alongside the bearer token.
type SessionState interface {
	SetNetID(ctx context.Context, userID uint, netid string, ttl time.Duration) error
	GetNetID(ctx context.Context, userID uint) (string, error)
	ClearNetID(ctx context.Context, userID uint) error
}

// CASHandler drives the SSO login redirect flow
type CASHandler struct {
	cfg          *config.Config
	casService   *service.CASService
	authService  *service.AuthService
	sessionState SessionState
}

// NewCASHandler creates a new handler for the CAS login flow
func NewCASHandler(cfg *config.Config, casService *service.CASService, authService *service.AuthService, sessionState SessionState) *CASHandler {
	return &CASHandler{
		cfg:          cfg,
		casService:   casService,
		authService:  authService,
		sessionState: sessionState,
	}
}

// Login handles GET /api/auth/cas/login. Without a ticket it bounces the
// browser to the CAS login page; with one it runs validate, resolve, issue,
// redirect, strictly in that order, short-circuiting to an error redirect on
// any failure. The browser never sees a raw failure.
func (h *CASHandler) Login(c echo.Context) error {
	ticket := extractTicket(c)

	if ticket == "" {
		loginURL := h.casService.LoginURL(h.cfg.CASServiceURL)
		zaplogger.Info("No ticket, redirecting to CAS login")
		return c.Redirect(http.StatusFound, loginURL)
	}

	netid, err := h.casService.ValidateTicket(c.Request().Context(), ticket, h.cfg.CASServiceURL)
	if err != nil {
		return h.errorRedirect(c, errCodeInvalidTicket)
	}

	user, err := h.authService.ResolveOrCreateUser(netid)
	if err != nil {
		zaplogger.Error("CAS login failed at user resolution", zaplogger.Fields{
			"netid": netid,
			"error": err.Error(),
		})
		if errors.Is(err, service.ErrInvalidNetID) {
			return h.errorRedirect(c, errCodeUserCreationFailed)
		}
		return h.errorRedirect(c, errCodeServerError)
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		zaplogger.Error("CAS login failed at token issuance", zaplogger.Fields{
			"netid":   netid,
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return h.errorRedirect(c, errCodeServerError)
	}

	if err := h.sessionState.SetNetID(c.Request().Context(), user.ID, netid, h.cfg.JWTExpiry); err != nil {
		// Session state is non-authoritative; the token already proves login.
		zaplogger.Warn("Failed to record session netid", zaplogger.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	return c.Redirect(http.StatusFound, h.cfg.FrontendURL+"/auth/callback?token="+token)
}

// Logout handles GET /api/auth/cas/logout. It clears the server-side session
// state for the caller before bouncing to the CAS logout page.
func (h *CASHandler) Logout(c echo.Context) error {
	h.clearSession(c)

	redirectURI := c.QueryParam("redirect_uri")
	if redirectURI == "" {
		redirectURI = h.cfg.FrontendURL
	}
	return c.Redirect(http.StatusFound, h.casService.LogoutURL(redirectURI))
}

// clearSession drops the session netid for the caller. Browser navigations
// carry no Authorization header, so the token may also arrive as a query
// parameter. Logout redirects regardless of the outcome here.
func (h *CASHandler) clearSession(c echo.Context) {
	token := bearerToken(c)
	if token == "" {
		token = c.QueryParam("token")
	}
	if token == "" {
		return
	}

	user, _, err := h.authService.VerifyToken(token)
	if err != nil {
		return
	}

	ctx := c.Request().Context()
	netid, _ := h.sessionState.GetNetID(ctx, user.ID)
	if err := h.sessionState.ClearNetID(ctx, user.ID); err != nil {
		zaplogger.Warn("Failed to clear session netid", zaplogger.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return
	}
	zaplogger.Info("Cleared session netid", zaplogger.Fields{
		"user_id": user.ID,
		"netid":   netid,
	})
}

func (h *CASHandler) errorRedirect(c echo.Context, code string) error {
	return c.Redirect(http.StatusFound, h.cfg.FrontendURL+"/login?error="+code)
}

// bearerToken returns the token from the Authorization header, or ""
func bearerToken(c echo.Context) string {
	parts := strings.SplitN(c.Request().Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// extractTicket pulls the ticket from the query string, or from a
// redirect_uri forwarded by an identity-provider intermediary.
func extractTicket(c echo.Context) string {
	if ticket := c.QueryParam("ticket"); ticket != "" {
		return ticket
	}
	if redirectURI := c.QueryParam("redirect_uri"); redirectURI != "" {
		if m := embeddedTicketPattern.FindStringSubmatch(redirectURI); m != nil {
			return m[1]
		}
	}
	return ""
}
