// Package models contains the models for the Marketplace API
package models

import (
	"time"
)

const UsersTableName = "users"

// User is a marketplace account. CAS-created users carry only a netid;
// password-created users carry username, email and a bcrypt hash.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     *string   `gorm:"size:80;uniqueIndex" json:"username"`
	Email        *string   `gorm:"size:120;uniqueIndex" json:"email"`
	PasswordHash *string   `gorm:"size:255" json:"-"`
	NetID        *string   `gorm:"size:80;uniqueIndex;column:netid" json:"netid"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return UsersTableName
}

// NetIDString returns the netid or "" when unset.
func (u *User) NetIDString() string {
	if u.NetID == nil {
		return ""
	}
	return *u.NetID
}

// UsernameString returns the username or "" when unset.
func (u *User) UsernameString() string {
	if u.Username == nil {
		return ""
	}
	return *u.Username
}

// EmailString returns the email or "" when unset.
func (u *User) EmailString() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}
