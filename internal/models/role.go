package models

// Role is a named access grouping. An empty Module makes the role global.
type Role struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Name         string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description"`
	Module       string `gorm:"not null;default:'';index" json:"module"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
	IsSystem     bool   `gorm:"not null;default:false" json:"is_system"`
	DisplayOrder *int   `json:"display_order,omitempty"`
	Lifecycle
}

// SystemProtected reports whether the role is exempt from deletion.
func (r Role) SystemProtected() bool {
	return r.IsSystem
}

// AdministratorRole is the seeded role holding the superuser permission.
const AdministratorRole = "administrator"
