// Package repository contains the repository layer for the Marketplace API
package repository

import (
	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/models"
)

// UserRepository is the database repository for users
type UserRepository struct {
	DB *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// GetByID gets a user by id
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByNetID gets a user by netid, exact match as stored
func (r *UserRepository) GetByNetID(netid string) (*models.User, error) {
	var user models.User
	err := r.DB.Where("netid = ?", netid).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername gets a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.DB.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a user. A unique-index collision surfaces as
// gorm.ErrDuplicatedKey; the single-statement insert leaves no partial row.
func (r *UserRepository) Create(user *models.User) error {
	return r.DB.Create(user).Error
}
