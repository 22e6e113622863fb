package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the subject of every authorization decision.
// UsernameKey and EmailKey hold case-folded copies so the unique indexes
// are case-insensitive.
type User struct {
	ID           uuid.UUID  `gorm:"type:text;primary_key" json:"id"`
	Username     string     `gorm:"not null" json:"username"`
	UsernameKey  string     `gorm:"uniqueIndex;not null" json:"-"`
	Email        string     `gorm:"not null" json:"email"`
	EmailKey     string     `gorm:"uniqueIndex;not null" json:"-"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsSystem     bool       `gorm:"not null;default:false" json:"is_system"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	Lifecycle
}

// BeforeCreate hook to generate UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SystemProtected reports whether the user is exempt from deletion.
func (u User) SystemProtected() bool {
	return u.IsSystem
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
