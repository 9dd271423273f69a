// Package service contains the service layer for the Marketplace API
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/models"
)

const defaultMailAPIURL = "https://api.postmarkapp.com/email"

// Mailer sends seller notifications
type Mailer interface {
	SendBuyRequest(listing *models.Listing, seller, buyer *models.User, message, contact string) error
}

// MailService sends transactional mail through a JSON HTTP API
type MailService struct {
	cfg        *config.Config
	apiURL     string
	httpClient *http.Client
}

// MailOption configures a MailService
type MailOption func(*MailService)

// WithMailAPIURL overrides the mail API endpoint
func WithMailAPIURL(apiURL string) MailOption {
	return func(s *MailService) {
		s.apiURL = apiURL
	}
}

// WithMailHTTPClient overrides the HTTP client
func WithMailHTTPClient(client *http.Client) MailOption {
	return func(s *MailService) {
		s.httpClient = client
	}
}

// NewMailService creates a new service for transactional mail
func NewMailService(cfg *config.Config, opts ...MailOption) *MailService {
	s := &MailService{
		cfg:        cfg,
		apiURL:     defaultMailAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type mailPayload struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendBuyRequest notifies the seller that a buyer wants their listing.
// Recipient is the seller's email, falling back to netid@mail-domain.
func (s *MailService) SendBuyRequest(listing *models.Listing, seller, buyer *models.User, message, contact string) error {
	recipient := s.recipientFor(seller)
	if recipient == "" {
		return fmt.Errorf("seller %d has no email address", seller.ID)
	}

	buyerContact := s.recipientFor(buyer)
	if buyerContact == "" {
		buyerContact = contact
	}
	if buyerContact == "" {
		buyerContact = "No contact provided"
	}
	if message == "" {
		message = "No message provided"
	}

	listingURL := fmt.Sprintf("%s/listings/%d", s.cfg.FrontendURL, listing.ID)
	textBody := fmt.Sprintf(
		"Someone is interested in your listing %q.\n\nMessage from buyer: %s\nContact: %s\n\nManage your listing: %s",
		listing.Title, message, buyerContact, listingURL,
	)
	htmlBody := fmt.Sprintf(
		`<h2>Someone is interested in your listing!</h2>`+
			`<p><strong>Title:</strong> %s</p>`+
			`<p><strong>Price:</strong> $%.2f</p>`+
			`<p><strong>Category:</strong> %s</p>`+
			`<hr>`+
			`<p><strong>Message from buyer:</strong> %s</p>`+
			`<p><strong>Buyer contact:</strong> %s</p>`+
			`<p>You can <a href="%s">view and manage your listing here</a>.</p>`,
		listing.Title, listing.Price, listing.Category, message, buyerContact, listingURL,
	)

	payload := mailPayload{
		From:     s.cfg.MailFromEmail,
		To:       recipient,
		Subject:  fmt.Sprintf("New Interest in Your Listing - %s", listing.Title),
		HtmlBody: htmlBody,
		TextBody: textBody,
	}
	return s.send(payload)
}

func (s *MailService) recipientFor(user *models.User) string {
	if user == nil {
		return ""
	}
	if user.Email != nil && *user.Email != "" {
		return *user.Email
	}
	if user.NetID != nil && *user.NetID != "" {
		return *user.NetID + "@" + s.cfg.MailDomain
	}
	return ""
}

func (s *MailService) send(payload mailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.cfg.MailServerToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
