// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultBio is assigned to new accounts that have not written a bio yet.
	DefaultBio = "✨ Just a magical being"
	// DefaultAvatar is the sentinel avatar filename. It is never deleted from disk.
	DefaultAvatar = "default_avatar.png"
)

// User represents a registered author.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:32;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:256;not null" json:"-"`
	Bio          string    `gorm:"size:160" json:"bio"`
	Avatar       string    `gorm:"size:256" json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Posts        []Post    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}

// BeforeCreate fills the profile defaults.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.Bio == "" {
		u.Bio = DefaultBio
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar
	}
	return nil
}

// HasCustomAvatar reports whether the user uploaded their own avatar.
func (u *User) HasCustomAvatar() bool {
	return u.Avatar != "" && u.Avatar != DefaultAvatar
}
