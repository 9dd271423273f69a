// Package models contains the models for the Marketplace API
package models

import (
	"time"
)

const (
	ListingsTableName        = "listings"
	ListingImagesTableName   = "listing_images"
	HeartedListingsTableName = "hearted_listings"
)

// Listing statuses
const (
	ListingStatusAvailable = "available"
	ListingStatusPending   = "pending"
	ListingStatusSold      = "sold"
)

// ListingCategories is the fixed category set served by /api/listings/categories
var ListingCategories = []string{
	"tops", "bottoms", "dresses", "shoes",
	"furniture", "appliances", "books", "other",
}

type Listing struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:100;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"not null" json:"price"`
	Category    string         `gorm:"size:50" json:"category"`
	Status      string         `gorm:"size:20;default:available" json:"status"`
	UserID      uint           `gorm:"index" json:"user_id"`
	BuyerID     *uint          `gorm:"index" json:"buyer_id"`
	Condition   string         `gorm:"size:50" json:"condition"`
	Images      []ListingImage `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"-"`
}

func (Listing) TableName() string {
	return ListingsTableName
}

// ImageURLs returns the stored image URLs in insertion order.
func (l *Listing) ImageURLs() []string {
	urls := make([]string, 0, len(l.Images))
	for _, img := range l.Images {
		urls = append(urls, img.Filename)
	}
	return urls
}

// IsValidListingStatus reports whether s is one of the known statuses.
func IsValidListingStatus(s string) bool {
	switch s {
	case ListingStatusAvailable, ListingStatusPending, ListingStatusSold:
		return true
	}
	return false
}

// ListingImage stores one uploaded image URL for a listing.
type ListingImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"size:255;not null" json:"filename"`
	ListingID uint      `gorm:"index;not null" json:"listing_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (ListingImage) TableName() string {
	return ListingImagesTableName
}

// HeartedListing marks a buyer's interest in a listing. The composite unique
// index keeps a user from hearting the same listing twice.
type HeartedListing struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_listing,priority:1" json:"user_id"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_user_listing,priority:2" json:"listing_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (HeartedListing) TableName() string {
	return HeartedListingsTableName
}
