package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
)

// CreatePermissionRequest holds parameters for creating a permission.
type CreatePermissionRequest struct {
	Name        string
	DisplayName string `validate:"max=128"`
	Description string `validate:"max=512"`
	Module      string `validate:"max=64"`
	IsSystem    bool
}

// UpdatePermissionRequest holds the mutable permission attributes.
type UpdatePermissionRequest struct {
	DisplayName *string `validate:"omitempty,max=128"`
	Description *string `validate:"omitempty,max=512"`
	Module      *string `validate:"omitempty,max=64"`
}

var permissionListSpec = listSpec{
	searchColumns: []string{"name", "display_name", "description"},
	sortColumns: map[string]string{
		"name":       "name",
		"module":     "module",
		"created_at": "created_at",
	},
	defaultSort: "name",
}

// PermissionService is the permission half of the catalog.
type PermissionService struct {
	db        *gorm.DB
	logger    *slog.Logger
	Lifecycle *Lifecycle[models.Permission]
}

// NewPermissionService creates a PermissionService. Purging a permission
// drops the role edges that grant it.
func NewPermissionService(db *gorm.DB, logger *slog.Logger) *PermissionService {
	if logger == nil {
		logger = slog.Default()
	}
	purge := func(ctx context.Context, tx *gorm.DB, id any) error {
		return tx.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error
	}
	return &PermissionService{
		db:        db,
		logger:    logger,
		Lifecycle: NewLifecycle[models.Permission](db, "permission", purge, logger),
	}
}

// Create adds a permission whose name is unused, deleted rows included.
func (s *PermissionService) Create(ctx context.Context, req CreatePermissionRequest, actor uuid.UUID) (*models.Permission, error) {
	name, err := checkTechnicalName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	perm := models.Permission{
		Name:        name,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Description: strings.TrimSpace(req.Description),
		Module:      strings.TrimSpace(req.Module),
		IsSystem:    req.IsSystem,
	}
	perm.Stamp(actor)

	db := GetDB(ctx, s.db)
	if err := nameFree(db, &models.Permission{}, "permission", name); err != nil {
		return nil, err
	}
	if err := db.Create(&perm).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, nameTaken("permission", name)
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}

	s.logger.Info("Created permission", "permission_id", perm.ID, "name", perm.Name)
	return &perm, nil
}

// Get returns a permission that is not in the recycle bin.
func (s *PermissionService) Get(ctx context.Context, id uint) (*models.Permission, error) {
	var perm models.Permission
	if err := GetDB(ctx, s.db).Where("is_deleted = ?", false).First(&perm, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &perm, nil
}

// GetByName returns a live permission by its technical name.
func (s *PermissionService) GetByName(ctx context.Context, name string) (*models.Permission, error) {
	var perm models.Permission
	if err := GetDB(ctx, s.db).Where("is_deleted = ? AND name = ?", false, name).First(&perm).Error; err != nil {
		return nil, notFound(err)
	}
	return &perm, nil
}

// List returns live permissions.
func (s *PermissionService) List(ctx context.Context, opts QueryOptions) (*Page[models.Permission], error) {
	q := GetDB(ctx, s.db).Model(&models.Permission{}).Where("is_deleted = ?", false)
	return list[models.Permission](q, permissionListSpec, opts)
}

// Update changes the descriptive attributes of a permission.
func (s *PermissionService) Update(ctx context.Context, id uint, req UpdatePermissionRequest, actor uuid.UUID) (*models.Permission, error) {
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
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

	if err := GetDB(ctx, s.db).Model(&models.Permission{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update permission: %w", err)
	}
	return s.Get(ctx, id)
}
