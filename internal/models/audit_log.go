package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog represents a record of administrative actions
type AuditLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uuid.UUID `gorm:"type:text;index" json:"user_id"`
	Action      string    `gorm:"not null;index" json:"action"`  // e.g., "assign_role", "soft_delete"
	Resource    string    `gorm:"not null" json:"resource"`      // e.g., "role:12", "user:<uuid>"
	DetailsJSON string    `gorm:"type:text" json:"details_json"` // Additional context in JSON
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}
