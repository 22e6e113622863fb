package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
)

// LogAction records an audit log entry
func LogAction(ctx context.Context, db *gorm.DB, userID uuid.UUID, action, resource string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	log := models.AuditLog{
		UserID:      userID,
		Action:      action,
		Resource:    resource,
		DetailsJSON: string(detailsJSON),
		Timestamp:   time.Now().UTC(),
	}

	return db.WithContext(ctx).Create(&log).Error
}

// Filter narrows an audit log listing. Zero fields match everything.
type Filter struct {
	UserID   uuid.UUID
	Action   string
	Resource string
	Since    time.Time
	Skip     int
	Take     int
}

// List returns matching entries, newest first, and the total match count.
func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.AuditLog, int64, error) {
	q := db.WithContext(ctx).Model(&models.AuditLog{})
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Resource != "" {
		q = q.Where("resource = ?", f.Resource)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	take := f.Take
	if take <= 0 || take > 200 {
		take = 50
	}
	skip := max(f.Skip, 0)

	logs := make([]models.AuditLog, 0)
	if err := q.Order("timestamp DESC, id DESC").Offset(skip).Limit(take).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Audit actions constants
const (
	ActionLogin            = "login"
	ActionLoginFailed      = "login_failed"
	ActionLogout           = "logout"
	ActionCreateUser       = "create_user"
	ActionUpdateUser       = "update_user"
	ActionActivateUser     = "activate_user"
	ActionDeactivateUser   = "deactivate_user"
	ActionCreateRole       = "create_role"
	ActionUpdateRole       = "update_role"
	ActionCreatePermission = "create_permission"
	ActionUpdatePermission = "update_permission"
	ActionSoftDelete       = "soft_delete"
	ActionRestore          = "restore"
	ActionPurge            = "purge"
	ActionAssignRole       = "assign_role"
	ActionUnassignRole     = "unassign_role"
	ActionGrantPermission  = "grant_permission"
	ActionRevokePermission = "revoke_permission"
)
