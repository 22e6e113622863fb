package models

import (
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every administrable record that carries a Lifecycle.
type Entity interface {
	Deleted() bool
	SystemProtected() bool
}

// Lifecycle is the soft-delete and audit envelope embedded in every
// administrable entity. Unique indexes on the owning table cover deleted
// rows too, so a soft-deleted key stays reserved until the row is purged.
type Lifecycle struct {
	IsDeleted        bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt        time.Time  `json:"created_at"`
	ModifiedAt       time.Time  `gorm:"autoUpdateTime" json:"modified_at"`
	CreatedByUserID  *uuid.UUID `gorm:"type:text" json:"created_by_user_id,omitempty"`
	ModifiedByUserID *uuid.UUID `gorm:"type:text" json:"modified_by_user_id,omitempty"`
}

// Deleted reports whether the record is in the recycle bin.
func (l Lifecycle) Deleted() bool {
	return l.IsDeleted
}

// Stamp records actor as creator and last modifier. A zero actor leaves the
// attribution empty (bootstrap and self-registration).
func (l *Lifecycle) Stamp(actor uuid.UUID) {
	if actor == uuid.Nil {
		return
	}
	a := actor
	l.CreatedByUserID = &a
	l.ModifiedByUserID = &a
}

// ActorRef converts an actor id into the nullable column value.
func ActorRef(actor uuid.UUID) *uuid.UUID {
	if actor == uuid.Nil {
		return nil
	}
	return &actor
}
