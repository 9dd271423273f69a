// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/models"
	"github.com/tigerpop/marketplaceapi/internal/repository"
	"github.com/tigerpop/marketplaceapi/internal/service"
	"github.com/tigerpop/marketplaceapi/pkg/utils/response"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

// ListingHandler is the handler for the listing API
type ListingHandler struct {
	listingService *service.ListingService
	uploadService  *service.UploadService
}

// NewListingHandler creates a new handler for the listing API
func NewListingHandler(listingService *service.ListingService, uploadService *service.UploadService) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		uploadService:  uploadService,
	}
}

// ListingResponseData is the JSON shape for a listing
type ListingResponseData struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	UserID      uint     `json:"user_id"`
	BuyerID     *uint    `json:"buyer_id,omitempty"`
	OwnerNetID  string   `json:"user_netid,omitempty"`
	CreatedAt   string   `json:"created_at"`
	Images      []string `json:"images"`
	Condition   string   `json:"condition"`
}

func toListingResponse(l *models.Listing) ListingResponseData {
	return ListingResponseData{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Category:    l.Category,
		Status:      l.Status,
		UserID:      l.UserID,
		BuyerID:     l.BuyerID,
		CreatedAt:   l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Images:      l.ImageURLs(),
		Condition:   l.Condition,
	}
}

func toListingResponses(listings []models.Listing) []ListingResponseData {
	out := make([]ListingResponseData, 0, len(listings))
	for i := range listings {
		out = append(out, toListingResponse(&listings[i]))
	}
	return out
}

// currentUser returns the authenticated user set by the auth middleware
func currentUser(c echo.Context) (*models.User, bool) {
	user, ok := c.Get("user").(*models.User)
	return user, ok
}

// List handles GET /api/listings with optional max_price and category filters
func (h *ListingHandler) List(c echo.Context) error {
	var filter repository.ListingFilter

	if maxPriceStr := c.QueryParam("max_price"); maxPriceStr != "" {
		maxPrice, err := strconv.ParseFloat(maxPriceStr, 64)
		if err != nil {
			return response.Error(c, http.StatusBadRequest, "Invalid max_price format")
		}
		filter.MaxPrice = &maxPrice
	}
	filter.Category = c.QueryParam("category")

	listings, err := h.listingService.List(filter)
	if err != nil {
		zaplogger.Error("Failed to fetch listings", zaplogger.Fields{"error": err.Error()})
		return response.Error(c, http.StatusInternalServerError, "Failed to fetch listings")
	}
	return c.JSON(http.StatusOK, toListingResponses(listings))
}

// Categories handles GET /api/listings/categories
func (h *ListingHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, models.ListingCategories)
}

// Get handles GET /api/listings/:id
func (h *ListingHandler) Get(c echo.Context) error {
	id, err := listingID(c)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid listing id")
	}

	listing, err := h.listingService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			return response.Error(c, http.StatusNotFound, "Listing not found")
		}
		return response.Error(c, http.StatusInternalServerError, "Failed to fetch listing")
	}

	data := toListingResponse(listing)
	data.OwnerNetID = h.listingService.OwnerNetID(listing)
	return c.JSON(http.StatusOK, data)
}

type createListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Images      []string `json:"images"`
}

// Create handles POST /api/listings; the owner is the authenticated caller
func (h *ListingHandler) Create(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}

	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" || req.Description == "" || req.Price == 0 {
		return response.Error(c, http.StatusBadRequest, "Missing required fields")
	}

	listing, err := h.listingService.Create(user.ID, service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Condition:   req.Condition,
		ImageURLs:   req.Images,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidPrice) {
			return response.Error(c, http.StatusBadRequest, "Price must be greater than 0")
		}
		zaplogger.Error("Failed to create listing", zaplogger.Fields{"user_id": user.ID, "error": err.Error()})
		return response.Error(c, http.StatusInternalServerError, "Failed to create listing")
	}

	return c.JSON(http.StatusCreated, toListingResponse(listing))
}

type updateListingRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Condition   *string  `json:"condition"`
	Images      []string `json:"images"`
}

// Update handles PUT /api/listings/:id, owner only
func (h *ListingHandler) Update(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}
	id, err := listingID(c)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid listing id")
	}

	var req updateListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid request body")
	}

	listing, err := h.listingService.Update(id, user.ID, service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Condition:   req.Condition,
		ImageURLs:   req.Images,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			return response.Error(c, http.StatusNotFound, "Listing not found")
		case errors.Is(err, service.ErrNotListingOwner):
			return response.Error(c, http.StatusForbidden, "Unauthorized")
		case errors.Is(err, service.ErrInvalidPrice):
			return response.Error(c, http.StatusBadRequest, "Price must be greater than 0")
		}
		zaplogger.Error("Failed to update listing", zaplogger.Fields{"listing_id": id, "error": err.Error()})
		return response.Error(c, http.StatusInternalServerError, "Failed to update listing")
	}

	return c.JSON(http.StatusOK, toListingResponse(listing))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// StatusResponseData is the response data for the UpdateStatus endpoint
type StatusResponseData struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /api/listings/:id/status, owner only
func (h *ListingHandler) UpdateStatus(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}
	id, err := listingID(c)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid listing id")
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return response.Error(c, http.StatusBadRequest, "Status is required")
	}

	listing, err := h.listingService.UpdateStatus(id, user.ID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			return response.Error(c, http.StatusNotFound, "Listing not found")
		case errors.Is(err, service.ErrNotListingOwner):
			return response.Error(c, http.StatusForbidden, "Unauthorized")
		case errors.Is(err, service.ErrInvalidStatus):
			return response.Error(c, http.StatusBadRequest, "Unknown status")
		}
		return response.Error(c, http.StatusInternalServerError, "Failed to update listing status")
	}

	return c.JSON(http.StatusOK, StatusResponseData{ID: listing.ID, Status: listing.Status})
}

// Delete handles DELETE /api/listings/:id, owner only
func (h *ListingHandler) Delete(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}
	id, err := listingID(c)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid listing id")
	}

	if err := h.listingService.Delete(id, user.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			return response.Error(c, http.StatusNotFound, "Listing not found")
		case errors.Is(err, service.ErrNotListingOwner):
			return response.Error(c, http.StatusForbidden, "Unauthorized")
		}
		return response.Error(c, http.StatusInternalServerError, "Failed to delete listing")
	}

	return c.NoContent(http.StatusNoContent)
}

// ByUser handles GET /api/listings/user?user_id=...|netid=...
func (h *ListingHandler) ByUser(c echo.Context) error {
	userID, errResp := h.resolveQueryUser(c, "user_id")
	if errResp != nil {
		return errResp
	}

	listings, err := h.listingService.ListByOwner(userID)
	if err != nil {
		return response.Error(c, http.StatusInternalServerError, "Failed to fetch user listings")
	}
	return c.JSON(http.StatusOK, toListingResponses(listings))
}

// ByBuyer handles GET /api/listings/buyer?buyer_id=...|netid=...
func (h *ListingHandler) ByBuyer(c echo.Context) error {
	buyerID, errResp := h.resolveQueryUser(c, "buyer_id")
	if errResp != nil {
		return errResp
	}

	listings, err := h.listingService.ListByBuyer(buyerID)
	if err != nil {
		return response.Error(c, http.StatusInternalServerError, "Failed to fetch buyer listings")
	}
	return c.JSON(http.StatusOK, toListingResponses(listings))
}

// resolveQueryUser reads a numeric id param with a netid fallback
func (h *ListingHandler) resolveQueryUser(c echo.Context, idParam string) (uint, error) {
	idStr := c.QueryParam(idParam)
	netid := c.QueryParam("netid")

	if idStr == "" && netid == "" {
		return 0, response.Error(c, http.StatusBadRequest, "`"+idParam+"` is required (or provide netid to look up)")
	}

	if idStr == "" {
		userID, err := h.listingService.ResolveUserID(netid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, response.Error(c, http.StatusBadRequest, "No user found for provided netid")
			}
			return 0, response.Error(c, http.StatusInternalServerError, "Failed to look up user")
		}
		return userID, nil
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, response.Error(c, http.StatusBadRequest, "Invalid `"+idParam+"` format")
	}
	return uint(id), nil
}

type buyRequest struct {
	Message string `json:"message"`
	Contact string `json:"contact_info"`
}

// BuyResponseData is the response data for the BuyRequest endpoint
type BuyResponseData struct {
	Message string             `json:"message"`
	Error   string             `json:"error,omitempty"`
	Listing StatusResponseData `json:"listing"`
}

// BuyRequest handles POST /api/listings/:id/buy. The buyer is the
// authenticated caller. A mail failure still records the request; the
// 207 response reports both.
func (h *ListingHandler) BuyRequest(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}
	id, err := listingID(c)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid listing id")
	}

	var req buyRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid request body")
	}

	result, err := h.listingService.BuyRequest(id, user, req.Message, req.Contact)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			return response.Error(c, http.StatusNotFound, "Listing not found")
		case errors.Is(err, service.ErrListingNotAvailable):
			return response.Error(c, http.StatusBadRequest, "Listing is not available")
		}
		zaplogger.Error("Buy request failed", zaplogger.Fields{"listing_id": id, "error": err.Error()})
		return response.Error(c, http.StatusInternalServerError, "Failed to record purchase request")
	}

	listingData := StatusResponseData{ID: result.Listing.ID, Status: result.Listing.Status}
	if result.MailErr != nil {
		return c.JSON(http.StatusMultiStatus, BuyResponseData{
			Message: "Purchase request recorded, but failed to send email",
			Error:   result.MailErr.Error(),
			Listing: listingData,
		})
	}
	return c.JSON(http.StatusOK, BuyResponseData{
		Message: "Purchase request sent successfully",
		Listing: listingData,
	})
}

// Heart handles POST /api/listings/:id/heart
func (h *ListingHandler) Heart(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}
	id, err := listingID(c)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid listing id")
	}

	if err := h.listingService.Heart(id, user.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrListingNotFound):
			return response.Error(c, http.StatusNotFound, "Listing not found")
		case errors.Is(err, service.ErrListingNotAvailable):
			return response.Error(c, http.StatusBadRequest, "Listing is not available")
		case errors.Is(err, service.ErrAlreadyHearted):
			return response.Error(c, http.StatusBadRequest, "Listing already hearted")
		}
		return response.Error(c, http.StatusInternalServerError, "Failed to heart listing")
	}

	return response.Message(c, http.StatusOK, "Listing hearted successfully")
}

// Unheart handles DELETE /api/listings/:id/heart
func (h *ListingHandler) Unheart(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}
	id, err := listingID(c)
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid listing id")
	}

	if err := h.listingService.Unheart(id, user.ID); err != nil {
		if errors.Is(err, service.ErrNotHearted) {
			return response.Error(c, http.StatusNotFound, "Listing not hearted")
		}
		return response.Error(c, http.StatusInternalServerError, "Failed to unheart listing")
	}

	return response.Message(c, http.StatusOK, "Listing unhearted successfully")
}

// Hearted handles GET /api/listings/hearted
func (h *ListingHandler) Hearted(c echo.Context) error {
	user, ok := currentUser(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "Authentication required")
	}

	listings, err := h.listingService.ListHearted(user.ID)
	if err != nil {
		return response.Error(c, http.StatusInternalServerError, "Failed to fetch hearted listings")
	}
	return c.JSON(http.StatusOK, toListingResponses(listings))
}

type uploadRequest struct {
	Count int `json:"count"`
}

// Upload handles POST /api/listings/upload: presigned URL pairs for images
func (h *ListingHandler) Upload(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Count < 1 || req.Count > 10 {
		return response.Error(c, http.StatusBadRequest, "`count` must be between 1 and 10")
	}

	targets, err := h.uploadService.PresignUploads(c.Request().Context(), req.Count)
	if err != nil {
		zaplogger.Error("Failed to presign uploads", zaplogger.Fields{"error": err.Error()})
		return response.Error(c, http.StatusInternalServerError, "Failed to prepare upload")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"uploads": targets})
}

func listingID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
