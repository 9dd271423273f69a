package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/models"
)

func mailTestConfig() *config.Config {
	return &config.Config{
		FrontendURL:     "https://frontend.example.com",
		MailServerToken: "server-token",
		MailFromEmail:   "marketplace@example.com",
		MailDomain:      "example.edu",
	}
}

func mailTestUsers() (seller, buyer *models.User) {
	sellerNetID := "seller1"
	sellerEmail := "seller1@example.com"
	buyerNetID := "buyer1"
	seller = &models.User{ID: 1, NetID: &sellerNetID, Email: &sellerEmail}
	buyer = &models.User{ID: 2, NetID: &buyerNetID}
	return seller, buyer
}

func TestSendBuyRequest(t *testing.T) {
	var gotToken string
	var gotPayload mailPayload
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"ErrorCode":0,"Message":"OK"}`))
	}))
	defer stub.Close()

	svc := NewMailService(mailTestConfig(), WithMailAPIURL(stub.URL), WithMailHTTPClient(stub.Client()))
	seller, buyer := mailTestUsers()
	listing := &models.Listing{ID: 7, Title: "Desk lamp", Price: 15, Category: "furniture"}

	err := svc.SendBuyRequest(listing, seller, buyer, "Still available?", "555-0100")
	require.NoError(t, err)

	assert.Equal(t, "server-token", gotToken)
	assert.Equal(t, "marketplace@example.com", gotPayload.From)
	assert.Equal(t, "seller1@example.com", gotPayload.To)
	assert.Equal(t, "New Interest in Your Listing - Desk lamp", gotPayload.Subject)
	assert.Contains(t, gotPayload.TextBody, "Still available?")
	assert.Contains(t, gotPayload.TextBody, "https://frontend.example.com/listings/7")
	assert.Contains(t, gotPayload.HtmlBody, "Desk lamp")
	assert.Contains(t, gotPayload.HtmlBody, "$15.00")
}

func TestSendBuyRequest_NetIDFallback(t *testing.T) {
	var gotPayload mailPayload
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"ErrorCode":0,"Message":"OK"}`))
	}))
	defer stub.Close()

	svc := NewMailService(mailTestConfig(), WithMailAPIURL(stub.URL), WithMailHTTPClient(stub.Client()))
	seller, buyer := mailTestUsers()
	seller.Email = nil
	listing := &models.Listing{ID: 7, Title: "Desk lamp", Price: 15}

	err := svc.SendBuyRequest(listing, seller, buyer, "", "")
	require.NoError(t, err)

	assert.Equal(t, "seller1@example.edu", gotPayload.To)
	assert.Contains(t, gotPayload.TextBody, "buyer1@example.edu", "buyer contact falls back to netid address")
	assert.Contains(t, gotPayload.TextBody, "No message provided")
}

func TestSendBuyRequest_NoRecipient(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected when the seller has no address")
	}))
	defer stub.Close()

	svc := NewMailService(mailTestConfig(), WithMailAPIURL(stub.URL), WithMailHTTPClient(stub.Client()))
	_, buyer := mailTestUsers()
	seller := &models.User{ID: 1}
	listing := &models.Listing{ID: 7, Title: "Desk lamp", Price: 15}

	err := svc.SendBuyRequest(listing, seller, buyer, "", "")
	assert.Error(t, err)
}

func TestSendBuyRequest_APIError(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer stub.Close()

	svc := NewMailService(mailTestConfig(), WithMailAPIURL(stub.URL), WithMailHTTPClient(stub.Client()))
	seller, buyer := mailTestUsers()
	listing := &models.Listing{ID: 7, Title: "Desk lamp", Price: 15}

	err := svc.SendBuyRequest(listing, seller, buyer, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}
