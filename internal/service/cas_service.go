// Package service contains the service layer for the Marketplace API
package service

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

// Ticket validation failures
var (
	ErrInvalidTicket  = errors.New("invalid ticket")
	ErrCASTimeout     = errors.New("cas server timeout")
	ErrCASUnreachable = errors.New("cas server unreachable")
)

// devTicketPrefix marks tickets accepted without contacting the CAS server,
// only when MP_API_CAS_DEV_MODE is true.
const devTicketPrefix = "ST-"

const casValidateTimeout = 10 * time.Second

// casServiceResponse is the serviceValidate XML envelope. A success carries
// an authenticationSuccess element with the netid in its user child; any
// other shape is a validation failure.
type casServiceResponse struct {
	XMLName xml.Name    `xml:"serviceResponse"`
	Success *casSuccess `xml:"authenticationSuccess"`
}

type casSuccess struct {
	User string `xml:"user"`
}

// CASService validates SSO tickets against the CAS server
type CASService struct {
	cfg    *config.Config
	client *http.Client
}

// NewCASService creates a new service for CAS ticket validation
func NewCASService(cfg *config.Config) *CASService {
	return &CASService{
		cfg:    cfg,
		client: &http.Client{Timeout: casValidateTimeout},
	}
}

// ValidateTicket redeems a ticket with the CAS server and returns the netid.
// It performs no state mutation on any path.
func (s *CASService) ValidateTicket(ctx context.Context, ticket, serviceURL string) (string, error) {
	if serviceURL == "" {
		serviceURL = s.cfg.CASServiceURL
	}

	if s.cfg.CASDevEnabled && strings.HasPrefix(ticket, devTicketPrefix) {
		zaplogger.Info("CAS dev mode: accepting ticket without validation", zaplogger.Fields{
			"netid": s.cfg.CASDevNetID,
		})
		return s.cfg.CASDevNetID, nil
	}

	validateURL := s.cfg.CASServerURL + "/serviceValidate"
	params := url.Values{}
	params.Set("ticket", ticket)
	params.Set("service", serviceURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validateURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCASUnreachable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			zaplogger.Error("CAS validation timeout", zaplogger.Fields{"ticket_prefix": ticketPrefix(ticket)})
			return "", ErrCASTimeout
		}
		zaplogger.Error("CAS validation request failed", zaplogger.Fields{
			"ticket_prefix": ticketPrefix(ticket),
			"error":         err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrCASUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zaplogger.Error("CAS validation failed", zaplogger.Fields{"status": resp.StatusCode})
		return "", ErrInvalidTicket
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCASUnreachable, err)
	}

	netid, err := extractNetID(body)
	if err != nil {
		zaplogger.Error("CAS response rejected", zaplogger.Fields{
			"ticket_prefix": ticketPrefix(ticket),
			"error":         err.Error(),
		})
		return "", ErrInvalidTicket
	}

	zaplogger.Info("Validated CAS ticket", zaplogger.Fields{"netid": netid})
	return netid, nil
}

// LoginURL builds the CAS login redirect with a URL-encoded service parameter
func (s *CASService) LoginURL(serviceURL string) string {
	return s.cfg.CASServerURL + "/login?service=" + url.QueryEscape(serviceURL)
}

// LogoutURL builds the CAS logout redirect
func (s *CASService) LogoutURL(serviceURL string) string {
	return s.cfg.CASServerURL + "/logout?service=" + url.QueryEscape(serviceURL)
}

// extractNetID parses the serviceValidate envelope and pulls out the netid
func extractNetID(body []byte) (string, error) {
	if len(body) == 0 {
		return "", errors.New("empty response body")
	}

	var envelope casServiceResponse
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("malformed XML: %v", err)
	}
	if envelope.Success == nil {
		return "", errors.New("no authentication success element")
	}

	netid := strings.TrimSpace(envelope.Success.User)
	if netid == "" {
		return "", errors.New("no user element in authentication success")
	}
	return netid, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func ticketPrefix(ticket string) string {
	if len(ticket) > 10 {
		return ticket[:10]
	}
	return ticket
}
