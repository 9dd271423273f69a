// Package repository contains the repository layer for the Marketplace API
package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/models"
)

// ListingFilter narrows the public listing feed
type ListingFilter struct {
	MaxPrice *float64
	Category string
}

// ListingRepository is the database repository for listings
type ListingRepository struct {
	DB *gorm.DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{DB: db}
}

// List returns listings newest first, optionally filtered
func (r *ListingRepository) List(filter ListingFilter) ([]models.Listing, error) {
	query := r.DB.Preload("Images")
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.Category != "" {
		query = query.Where("category ILIKE ?", filter.Category)
	}

	var listings []models.Listing
	err := query.Order("created_at DESC").Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// GetByID gets a listing with its images
func (r *ListingRepository) GetByID(id uint) (*models.Listing, error) {
	var listing models.Listing
	err := r.DB.Preload("Images").First(&listing, id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListByOwner returns a seller's listings newest first
func (r *ListingRepository) ListByOwner(userID uint) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.DB.Preload("Images").Where("user_id = ?", userID).Order("created_at DESC").Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ListByBuyer returns listings where the given user is the buyer
func (r *ListingRepository) ListByBuyer(buyerID uint) ([]models.Listing, error) {
	var listings []models.Listing
	err := r.DB.Preload("Images").Where("buyer_id = ?", buyerID).Order("created_at DESC").Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// Create inserts a listing and its images
func (r *ListingRepository) Create(listing *models.Listing) error {
	return r.DB.Create(listing).Error
}

// Save persists changes to a listing
func (r *ListingRepository) Save(listing *models.Listing) error {
	return r.DB.Save(listing).Error
}

// Delete removes a listing; associated images go with the cascade constraint
func (r *ListingRepository) Delete(listing *models.Listing) error {
	return r.DB.Select("Images").Delete(listing).Error
}

// ReplaceImages drops a listing's images and inserts the given URLs in order
func (r *ListingRepository) ReplaceImages(listingID uint, urls []string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Delete(&models.ListingImage{}).Error; err != nil {
			return err
		}
		for _, url := range urls {
			image := models.ListingImage{Filename: url, ListingID: listingID}
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetHeart gets a user's heart on a listing
func (r *ListingRepository) GetHeart(userID, listingID uint) (*models.HeartedListing, error) {
	var heart models.HeartedListing
	err := r.DB.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&heart).Error
	if err != nil {
		return nil, err
	}
	return &heart, nil
}

// CreateHeart inserts a heart; a duplicate surfaces as gorm.ErrDuplicatedKey
func (r *ListingRepository) CreateHeart(heart *models.HeartedListing) error {
	return r.DB.Create(heart).Error
}

// DeleteHeart removes a user's heart on a listing, reporting rows affected
func (r *ListingRepository) DeleteHeart(userID, listingID uint) (int64, error) {
	result := r.DB.Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&models.HeartedListing{})
	return result.RowsAffected, result.Error
}

// ListHearted returns the listings a user has hearted
func (r *ListingRepository) ListHearted(userID uint) ([]models.Listing, error) {
	var hearts []models.HeartedListing
	if err := r.DB.Where("user_id = ?", userID).Find(&hearts).Error; err != nil {
		return nil, err
	}
	if len(hearts) == 0 {
		return []models.Listing{}, nil
	}

	ids := make([]uint, 0, len(hearts))
	for _, h := range hearts {
		ids = append(ids, h.ListingID)
	}

	var listings []models.Listing
	err := r.DB.Preload("Images").Where("id IN ?", ids).Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// ReleasePendingBefore reverts listings stuck in pending since before the
// cutoff back to available, clearing the buyer.
func (r *ListingRepository) ReleasePendingBefore(cutoff time.Time) (int64, error) {
	result := r.DB.Model(&models.Listing{}).
		Where("status = ? AND updated_at < ?", models.ListingStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":   models.ListingStatusAvailable,
			"buyer_id": nil,
		})
	return result.RowsAffected, result.Error
}
