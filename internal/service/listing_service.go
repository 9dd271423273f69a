// Package service contains the service layer for the Marketplace API
package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/models"
	"github.com/tigerpop/marketplaceapi/internal/repository"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

// Listing operation failures
var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrListingNotAvailable = errors.New("listing is not available")
	ErrAlreadyHearted      = errors.New("listing already hearted")
	ErrNotHearted          = errors.New("listing not hearted")
	ErrNotListingOwner     = errors.New("not the listing owner")
	ErrInvalidPrice        = errors.New("price must be greater than 0")
	ErrInvalidStatus       = errors.New("unknown listing status")
)

// ListingStore is the part of the listing repository the service needs
type ListingStore interface {
	List(filter repository.ListingFilter) ([]models.Listing, error)
	GetByID(id uint) (*models.Listing, error)
	ListByOwner(userID uint) ([]models.Listing, error)
	ListByBuyer(buyerID uint) ([]models.Listing, error)
	Create(listing *models.Listing) error
	Save(listing *models.Listing) error
	Delete(listing *models.Listing) error
	ReplaceImages(listingID uint, urls []string) error
	GetHeart(userID, listingID uint) (*models.HeartedListing, error)
	CreateHeart(heart *models.HeartedListing) error
	DeleteHeart(userID, listingID uint) (int64, error)
	ListHearted(userID uint) ([]models.Listing, error)
	ReleasePendingBefore(cutoff time.Time) (int64, error)
}

// ListingService implements marketplace listing operations
type ListingService struct {
	listings ListingStore
	users    UserStore
	mailer   Mailer
}

// NewListingService creates a new service for listings
func NewListingService(listings ListingStore, users UserStore, mailer Mailer) *ListingService {
	return &ListingService{
		listings: listings,
		users:    users,
		mailer:   mailer,
	}
}

// List returns the public feed, optionally filtered
func (s *ListingService) List(filter repository.ListingFilter) ([]models.Listing, error) {
	return s.listings.List(filter)
}

// Get returns a single listing
func (s *ListingService) Get(id uint) (*models.Listing, error) {
	listing, err := s.listings.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

// OwnerNetID returns the listing owner's netid, or "" when unknown
func (s *ListingService) OwnerNetID(listing *models.Listing) string {
	owner, err := s.users.GetByID(listing.UserID)
	if err != nil {
		return ""
	}
	return owner.NetIDString()
}

// ListByOwner returns a seller's listings
func (s *ListingService) ListByOwner(userID uint) ([]models.Listing, error) {
	return s.listings.ListByOwner(userID)
}

// ListByBuyer returns listings where the user is the buyer
func (s *ListingService) ListByBuyer(buyerID uint) ([]models.Listing, error) {
	return s.listings.ListByBuyer(buyerID)
}

// ResolveUserID maps a netid to a user id, for the netid query fallbacks
func (s *ListingService) ResolveUserID(netid string) (uint, error) {
	user, err := s.users.GetByNetID(netid)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// CreateInput carries the fields for a new listing
type CreateInput struct {
	Title       string
	Description string
	Price       float64
	Category    string
	Condition   string
	ImageURLs   []string
}

// Create makes a new available listing owned by the given user
func (s *ListingService) Create(ownerID uint, in CreateInput) (*models.Listing, error) {
	if in.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if in.Category == "" {
		in.Category = "other"
	}
	if in.Condition == "" {
		in.Condition = "good"
	}

	listing := &models.Listing{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Status:      models.ListingStatusAvailable,
		UserID:      ownerID,
		Condition:   in.Condition,
	}
	for _, url := range in.ImageURLs {
		listing.Images = append(listing.Images, models.ListingImage{Filename: url})
	}

	if err := s.listings.Create(listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return listing, nil
}

// UpdateInput carries the optional fields for a listing update
type UpdateInput struct {
	Title       *string
	Description *string
	Price       *float64
	Category    *string
	Condition   *string
	ImageURLs   []string
}

// Update applies an owner's changes to a listing
func (s *ListingService) Update(id, callerID uint, in UpdateInput) (*models.Listing, error) {
	listing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if listing.UserID != callerID {
		return nil, ErrNotListingOwner
	}

	if in.Title != nil {
		listing.Title = *in.Title
	}
	if in.Description != nil {
		listing.Description = *in.Description
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, ErrInvalidPrice
		}
		listing.Price = *in.Price
	}
	if in.Category != nil {
		listing.Category = *in.Category
	}
	if in.Condition != nil {
		listing.Condition = *in.Condition
	}

	// Save without touching the image association; images are replaced
	// separately so stale rows never linger.
	images := listing.Images
	listing.Images = nil
	if err := s.listings.Save(listing); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	listing.Images = images

	if in.ImageURLs != nil {
		if err := s.listings.ReplaceImages(listing.ID, in.ImageURLs); err != nil {
			return nil, fmt.Errorf("failed to replace images: %w", err)
		}
		return s.Get(id)
	}
	return listing, nil
}

// UpdateStatus sets a listing's status, owner only
func (s *ListingService) UpdateStatus(id, callerID uint, status string) (*models.Listing, error) {
	if !models.IsValidListingStatus(status) {
		return nil, ErrInvalidStatus
	}

	listing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if listing.UserID != callerID {
		return nil, ErrNotListingOwner
	}

	listing.Status = status
	if status == models.ListingStatusAvailable {
		listing.BuyerID = nil
	}
	if err := s.listings.Save(listing); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return listing, nil
}

// Delete removes a listing, owner only
func (s *ListingService) Delete(id, callerID uint) error {
	listing, err := s.Get(id)
	if err != nil {
		return err
	}
	if listing.UserID != callerID {
		return ErrNotListingOwner
	}
	return s.listings.Delete(listing)
}

// BuyResult reports a recorded buy request. MailErr is set when the seller
// notification failed after the status change was already saved.
type BuyResult struct {
	Listing *models.Listing
	MailErr error
}

// BuyRequest marks a listing pending for the buyer and notifies the seller.
// A mail failure does not undo the status change; it rides back in the
// result so the handler can report partial success.
func (s *ListingService) BuyRequest(id uint, buyer *models.User, message, contact string) (*BuyResult, error) {
	listing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingStatusAvailable {
		return nil, ErrListingNotAvailable
	}

	buyerID := buyer.ID
	listing.BuyerID = &buyerID
	listing.Status = models.ListingStatusPending
	if err := s.listings.Save(listing); err != nil {
		return nil, fmt.Errorf("failed to record buy request: %w", err)
	}

	seller, err := s.users.GetByID(listing.UserID)
	if err != nil {
		zaplogger.Error("Buy request recorded but seller lookup failed", zaplogger.Fields{
			"listing_id": listing.ID,
			"seller_id":  listing.UserID,
		})
		return &BuyResult{Listing: listing, MailErr: fmt.Errorf("seller lookup failed: %w", err)}, nil
	}

	if mailErr := s.mailer.SendBuyRequest(listing, seller, buyer, message, contact); mailErr != nil {
		zaplogger.Error("Failed to send buy request email", zaplogger.Fields{
			"listing_id": listing.ID,
			"error":      mailErr.Error(),
		})
		return &BuyResult{Listing: listing, MailErr: mailErr}, nil
	}
	return &BuyResult{Listing: listing}, nil
}

// Heart marks a buyer's interest in an available listing
func (s *ListingService) Heart(listingID, userID uint) error {
	listing, err := s.Get(listingID)
	if err != nil {
		return err
	}
	if listing.Status != models.ListingStatusAvailable {
		return ErrListingNotAvailable
	}

	heart := &models.HeartedListing{UserID: userID, ListingID: listingID}
	if err := s.listings.CreateHeart(heart); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyHearted
		}
		return fmt.Errorf("failed to heart listing: %w", err)
	}
	return nil
}

// Unheart removes a buyer's interest
func (s *ListingService) Unheart(listingID, userID uint) error {
	rows, err := s.listings.DeleteHeart(userID, listingID)
	if err != nil {
		return fmt.Errorf("failed to unheart listing: %w", err)
	}
	if rows == 0 {
		return ErrNotHearted
	}
	return nil
}

// ListHearted returns the listings a user has hearted
func (s *ListingService) ListHearted(userID uint) ([]models.Listing, error) {
	return s.listings.ListHearted(userID)
}

// ReleaseStalePending reverts listings pending longer than maxAge
func (s *ListingService) ReleaseStalePending(maxAge time.Duration) (int64, error) {
	return s.listings.ReleasePendingBefore(time.Now().Add(-maxAge))
}
