package models

import "github.com/google/uuid"

// UserRole links a user to a role, optionally scoped to a module.
// (UserID, RoleID, Module) is unique; Module "" is the global scope.
type UserRole struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	UserID           uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_user_role_scope" json:"user_id"`
	RoleID           uint      `gorm:"not null;uniqueIndex:idx_user_role_scope;index" json:"role_id"`
	Module           string    `gorm:"not null;default:'';uniqueIndex:idx_user_role_scope" json:"module"`
	IsSystemAssigned bool      `gorm:"not null;default:false" json:"is_system_assigned"`
	Role             *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Lifecycle
}

// SystemProtected reports whether the assignment was made by the system and
// so cannot be removed.
func (ur UserRole) SystemProtected() bool {
	return ur.IsSystemAssigned
}

// RolePermission links a role to a permission, optionally scoped to a module.
// (RoleID, PermissionID, Module) is unique.
type RolePermission struct {
	ID                 uint        `gorm:"primarykey" json:"id"`
	RoleID             uint        `gorm:"not null;uniqueIndex:idx_role_permission_scope" json:"role_id"`
	PermissionID       uint        `gorm:"not null;uniqueIndex:idx_role_permission_scope;index" json:"permission_id"`
	Module             string      `gorm:"not null;default:'';uniqueIndex:idx_role_permission_scope" json:"module"`
	IsSystemPermission bool        `gorm:"not null;default:false" json:"is_system_permission"`
	Permission         *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
	Lifecycle
}

// SystemProtected reports whether the grant is a system grant.
func (rp RolePermission) SystemProtected() bool {
	return rp.IsSystemPermission
}
