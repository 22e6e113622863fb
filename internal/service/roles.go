package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
)

var technicalName = regexp.MustCompile(`^[a-z][a-z0-9_.:-]{1,99}$`)

// CreateRoleRequest holds parameters for creating a role.
type CreateRoleRequest struct {
	Name         string
	DisplayName  string `validate:"max=128"`
	Description  string `validate:"max=512"`
	Module       string `validate:"max=64"`
	IsSystem     bool
	DisplayOrder *int
}

// UpdateRoleRequest holds the mutable role attributes. Nil fields are kept;
// the technical name never changes.
type UpdateRoleRequest struct {
	DisplayName  *string `validate:"omitempty,max=128"`
	Description  *string `validate:"omitempty,max=512"`
	Module       *string `validate:"omitempty,max=64"`
	IsActive     *bool
	DisplayOrder *int
}

var roleListSpec = listSpec{
	searchColumns: []string{"name", "display_name", "description"},
	sortColumns: map[string]string{
		"name":          "name",
		"module":        "module",
		"display_order": "display_order",
		"created_at":    "created_at",
	},
	defaultSort: "name",
}

// RoleService is the role half of the catalog.
type RoleService struct {
	db        *gorm.DB
	logger    *slog.Logger
	Lifecycle *Lifecycle[models.Role]
}

// NewRoleService creates a RoleService. Purging a role drops every edge
// that references it.
func NewRoleService(db *gorm.DB, logger *slog.Logger) *RoleService {
	if logger == nil {
		logger = slog.Default()
	}
	purge := func(ctx context.Context, tx *gorm.DB, id any) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error
	}
	return &RoleService{
		db:        db,
		logger:    logger,
		Lifecycle: NewLifecycle[models.Role](db, "role", purge, logger),
	}
}

// Create adds an active role. The name must not be used by any role,
// including soft-deleted ones.
func (s *RoleService) Create(ctx context.Context, req CreateRoleRequest, actor uuid.UUID) (*models.Role, error) {
	name, err := checkTechnicalName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	role := models.Role{
		Name:         name,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Description:  strings.TrimSpace(req.Description),
		Module:       strings.TrimSpace(req.Module),
		IsActive:     true,
		IsSystem:     req.IsSystem,
		DisplayOrder: req.DisplayOrder,
	}
	role.Stamp(actor)

	db := GetDB(ctx, s.db)
	if err := nameFree(db, &models.Role{}, "role", name); err != nil {
		return nil, err
	}
	if err := db.Create(&role).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, nameTaken("role", name)
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.Info("Created role", "role_id", role.ID, "name", role.Name, "module", role.Module)
	return &role, nil
}

// Get returns a role that is not in the recycle bin.
func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := GetDB(ctx, s.db).Where("is_deleted = ?", false).First(&role, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// GetByName returns a live role by its technical name.
func (s *RoleService) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := GetDB(ctx, s.db).Where("is_deleted = ? AND name = ?", false, name).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// List returns live roles.
func (s *RoleService) List(ctx context.Context, opts QueryOptions) (*Page[models.Role], error) {
	q := GetDB(ctx, s.db).Model(&models.Role{}).Where("is_deleted = ?", false)
	return list[models.Role](q, roleListSpec, opts)
}

// Update changes the descriptive attributes of a role.
func (s *RoleService) Update(ctx context.Context, id uint, req UpdateRoleRequest, actor uuid.UUID) (*models.Role, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive && role.IsSystem {
		return nil, ErrSystemProtected
	}

	updates := map[string]any{
		"modified_at":         time.Now().UTC(),
		"modified_by_user_id": models.ActorRef(actor),
	}
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Module != nil {
		updates["module"] = strings.TrimSpace(*req.Module)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.DisplayOrder != nil {
		updates["display_order"] = *req.DisplayOrder
	}

	if err := GetDB(ctx, s.db).Model(&models.Role{}).Where("id = ?", role.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return s.Get(ctx, id)
}

func checkTechnicalName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if !technicalName.MatchString(name) {
		return "", &ValidationError{Message: fmt.Sprintf("invalid name %q: use lower-case letters, digits and _ . : -", raw)}
	}
	return name, nil
}

// nameFree checks the name column over the full table, deleted rows included.
func nameFree(db *gorm.DB, model any, kind, name string) error {
	var count int64
	if err := db.Model(model).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("check %s name: %w", kind, err)
	}
	if count > 0 {
		return nameTaken(kind, name)
	}
	return nil
}

func nameTaken(kind, name string) error {
	return &ConflictError{Message: fmt.Sprintf("%s name %q is already taken (possibly by a deleted %s)", kind, name, kind)}
}
