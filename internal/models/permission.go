package models

// Permission is a named capability unit, e.g. "manage_users".
type Permission struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Module      string `gorm:"not null;default:'';index" json:"module"`
	IsSystem    bool   `gorm:"not null;default:false" json:"is_system"`
	Lifecycle
}

// SystemProtected reports whether the permission is exempt from deletion.
func (p Permission) SystemProtected() bool {
	return p.IsSystem
}

// Well-known permission names.
const (
	// PermissionFullAdminAccess short-circuits every live check to granted.
	PermissionFullAdminAccess = "full_admin_access"
	// PermissionAccessAdminPanel is the default requirement of the admin area.
	PermissionAccessAdminPanel  = "access_admin_panel"
	PermissionManageUsers       = "manage_users"
	PermissionManageRoles       = "manage_roles"
	PermissionManagePermissions = "manage_permissions"
	PermissionViewAuditLog      = "view_audit_log"
)
