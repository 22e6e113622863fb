// Package rbac stores the user-role and role-permission assignment graph
// and answers the queries the decision engine is built on.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"github.com/nebari-dev/bastion/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Graph is the assignment graph. Module "" is the unscoped scope; module
// comparisons are exact. Removed edges go to the recycle bin like any other
// record and are revived by a later assignment or restore.
type Graph struct {
	db         *gorm.DB
	logger     *slog.Logger
	roleEdges  *service.Lifecycle[models.UserRole]
	grantEdges *service.Lifecycle[models.RolePermission]
}

// NewGraph creates a Graph over db.
func NewGraph(db *gorm.DB, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		db:         db,
		logger:     logger,
		roleEdges:  service.NewLifecycle[models.UserRole](db, "role assignment", nil, logger),
		grantEdges: service.NewLifecycle[models.RolePermission](db, "permission grant", nil, logger),
	}
}

// AssignRole grants roleID to userID within module. Re-assigning is a no-op,
// a soft-deleted matching edge is restored, and a concurrent insert of the
// same edge is treated as already assigned.
func (g *Graph) AssignRole(ctx context.Context, userID uuid.UUID, roleID uint, module string, isSystemAssigned bool, actor uuid.UUID) error {
	return service.RunInTx(ctx, g.db, func(txCtx context.Context) error {
		db := service.GetDB(txCtx, g.db)
		if err := exists(db, &models.User{}, userID); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		if err := exists(db, &models.Role{}, roleID); err != nil {
			return fmt.Errorf("role %d: %w", roleID, err)
		}

		var existing models.UserRole
		err := db.Where("user_id = ? AND role_id = ? AND module = ?", userID, roleID, module).First(&existing).Error
		switch {
		case err == nil:
			return g.revive(db, &models.UserRole{}, existing.ID, existing.IsDeleted, actor)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup role assignment: %w", err)
		}

		edge := models.UserRole{UserID: userID, RoleID: roleID, Module: module, IsSystemAssigned: isSystemAssigned}
		edge.Stamp(actor)
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		if result.Error != nil {
			if service.IsUniqueViolation(result.Error) {
				return nil
			}
			return fmt.Errorf("assign role: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			g.logger.Info("Assigned role", "user_id", userID, "role_id", roleID, "module", module, "actor", actor)
		}
		return nil
	})
}

// UnassignRole moves the matching edge to the recycle bin. Missing or
// already removed edges are a no-op; system assignments are refused with
// service.ErrSystemProtected.
func (g *Graph) UnassignRole(ctx context.Context, userID uuid.UUID, roleID uint, module string, actor uuid.UUID) error {
	edge, err := g.userRole(ctx, userID, roleID, module)
	if errors.Is(err, service.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return g.roleEdges.SoftDelete(ctx, edge.ID, actor)
}

// RestoreRoleAssignment brings a removed edge back. The user and the role
// must both be live.
func (g *Graph) RestoreRoleAssignment(ctx context.Context, userID uuid.UUID, roleID uint, module string, actor uuid.UUID) error {
	return service.RunInTx(ctx, g.db, func(txCtx context.Context) error {
		edge, err := g.userRole(txCtx, userID, roleID, module)
		if err != nil {
			return err
		}
		db := service.GetDB(txCtx, g.db)
		if err := exists(db, &models.User{}, userID); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		if err := exists(db, &models.Role{}, roleID); err != nil {
			return fmt.Errorf("role %d: %w", roleID, err)
		}
		return g.roleEdges.Restore(txCtx, edge.ID, actor)
	})
}

// PurgeRoleAssignment permanently removes an edge that is already in the
// recycle bin.
func (g *Graph) PurgeRoleAssignment(ctx context.Context, userID uuid.UUID, roleID uint, module string) error {
	edge, err := g.userRole(ctx, userID, roleID, module)
	if err != nil {
		return err
	}
	return g.roleEdges.HardDelete(ctx, edge.ID)
}

// DeletedUserRoles lists the removed role edges of a user.
func (g *Graph) DeletedUserRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error) {
	return g.roleEdges.ListDeletedWhere(ctx, "user_id = ?", userID)
}

// UserRoleEdge returns the live edge for (userID, roleID, module).
func (g *Graph) UserRoleEdge(ctx context.Context, userID uuid.UUID, roleID uint, module string) (*models.UserRole, error) {
	return findEdge[models.UserRole](ctx, g.db,
		"user_id = ? AND role_id = ? AND module = ? AND is_deleted = ?", userID, roleID, module, false)
}

// userRole returns the edge for (userID, roleID, module) in any state.
func (g *Graph) userRole(ctx context.Context, userID uuid.UUID, roleID uint, module string) (*models.UserRole, error) {
	return findEdge[models.UserRole](ctx, g.db, "user_id = ? AND role_id = ? AND module = ?", userID, roleID, module)
}

// RoleIDsForUser returns the distinct roles a user effectively holds across
// all modules. Inactive or deleted users hold none; inactive or deleted roles
// and deleted edges are skipped.
func (g *Graph) RoleIDsForUser(ctx context.Context, userID uuid.UUID) ([]uint, error) {
	ids := make([]uint, 0)
	err := service.GetDB(ctx, g.db).Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.user_id = ? AND user_roles.is_deleted = ?", userID, false).
		Where("roles.is_deleted = ? AND roles.is_active = ?", false, true).
		Where("users.is_deleted = ? AND users.is_active = ?", false, true).
		Distinct().
		Order("user_roles.role_id").
		Pluck("user_roles.role_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("role ids for user: %w", err)
	}
	return ids, nil
}

// PermissionNamesForRoles returns the distinct permission names granted to
// any of roleIDs, regardless of module.
func (g *Graph) PermissionNamesForRoles(ctx context.Context, roleIDs []uint) ([]string, error) {
	names := make([]string, 0)
	if len(roleIDs) == 0 {
		return names, nil
	}
	err := g.grants(ctx, roleIDs).
		Distinct().
		Order("permissions.name").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("permission names for roles: %w", err)
	}
	return names, nil
}

// AnyRoleHasPermission reports whether at least one of roleIDs is granted the
// named permission in exactly module. It never queries for empty roleIDs.
func (g *Graph) AnyRoleHasPermission(ctx context.Context, roleIDs []uint, name, module string) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	var count int64
	err := g.grants(ctx, roleIDs).
		Where("permissions.name = ? AND role_permissions.module = ?", name, module).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check permission %s: %w", name, err)
	}
	return count > 0, nil
}

// AssignPermission grants permissionID to roleID within module, with the
// same idempotence as AssignRole.
func (g *Graph) AssignPermission(ctx context.Context, roleID, permissionID uint, actor uuid.UUID, module string, isSystemPermission bool) error {
	return service.RunInTx(ctx, g.db, func(txCtx context.Context) error {
		db := service.GetDB(txCtx, g.db)
		if err := exists(db, &models.Role{}, roleID); err != nil {
			return fmt.Errorf("role %d: %w", roleID, err)
		}
		if err := exists(db, &models.Permission{}, permissionID); err != nil {
			return fmt.Errorf("permission %d: %w", permissionID, err)
		}

		var existing models.RolePermission
		err := db.Where("role_id = ? AND permission_id = ? AND module = ?", roleID, permissionID, module).First(&existing).Error
		switch {
		case err == nil:
			return g.revive(db, &models.RolePermission{}, existing.ID, existing.IsDeleted, actor)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup permission grant: %w", err)
		}

		edge := models.RolePermission{RoleID: roleID, PermissionID: permissionID, Module: module, IsSystemPermission: isSystemPermission}
		edge.Stamp(actor)
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		if result.Error != nil {
			if service.IsUniqueViolation(result.Error) {
				return nil
			}
			return fmt.Errorf("assign permission: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			g.logger.Info("Granted permission", "role_id", roleID, "permission_id", permissionID, "module", module, "actor", actor)
		}
		return nil
	})
}

// RevokePermission moves the matching grant to the recycle bin. Missing or
// already revoked grants are a no-op; system grants are refused with
// service.ErrSystemProtected.
func (g *Graph) RevokePermission(ctx context.Context, roleID, permissionID uint, module string, actor uuid.UUID) error {
	edge, err := g.rolePermission(ctx, roleID, permissionID, module)
	if errors.Is(err, service.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return g.grantEdges.SoftDelete(ctx, edge.ID, actor)
}

// RestorePermissionGrant brings a revoked grant back. The role and the
// permission must both be live.
func (g *Graph) RestorePermissionGrant(ctx context.Context, roleID, permissionID uint, module string, actor uuid.UUID) error {
	return service.RunInTx(ctx, g.db, func(txCtx context.Context) error {
		edge, err := g.rolePermission(txCtx, roleID, permissionID, module)
		if err != nil {
			return err
		}
		db := service.GetDB(txCtx, g.db)
		if err := exists(db, &models.Role{}, roleID); err != nil {
			return fmt.Errorf("role %d: %w", roleID, err)
		}
		if err := exists(db, &models.Permission{}, permissionID); err != nil {
			return fmt.Errorf("permission %d: %w", permissionID, err)
		}
		return g.grantEdges.Restore(txCtx, edge.ID, actor)
	})
}

// PurgePermissionGrant permanently removes a grant that is already in the
// recycle bin.
func (g *Graph) PurgePermissionGrant(ctx context.Context, roleID, permissionID uint, module string) error {
	edge, err := g.rolePermission(ctx, roleID, permissionID, module)
	if err != nil {
		return err
	}
	return g.grantEdges.HardDelete(ctx, edge.ID)
}

// DeletedRolePermissions lists the revoked grants of a role.
func (g *Graph) DeletedRolePermissions(ctx context.Context, roleID uint) ([]models.RolePermission, error) {
	return g.grantEdges.ListDeletedWhere(ctx, "role_id = ?", roleID)
}

// RolePermissionEdge returns the live edge for (roleID, permissionID, module).
func (g *Graph) RolePermissionEdge(ctx context.Context, roleID, permissionID uint, module string) (*models.RolePermission, error) {
	return findEdge[models.RolePermission](ctx, g.db,
		"role_id = ? AND permission_id = ? AND module = ? AND is_deleted = ?", roleID, permissionID, module, false)
}

// rolePermission returns the grant for (roleID, permissionID, module) in any state.
func (g *Graph) rolePermission(ctx context.Context, roleID, permissionID uint, module string) (*models.RolePermission, error) {
	return findEdge[models.RolePermission](ctx, g.db,
		"role_id = ? AND permission_id = ? AND module = ?", roleID, permissionID, module)
}

// UserRoles lists the live role edges of a user with their roles loaded.
func (g *Graph) UserRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRole, error) {
	edges := make([]models.UserRole, 0)
	err := service.GetDB(ctx, g.db).
		Preload("Role").
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("role_id, module").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return edges, nil
}

// RolePermissions lists the live permission edges of a role with their
// permissions loaded.
func (g *Graph) RolePermissions(ctx context.Context, roleID uint) ([]models.RolePermission, error) {
	edges := make([]models.RolePermission, 0)
	err := service.GetDB(ctx, g.db).
		Preload("Permission").
		Where("role_id = ? AND is_deleted = ?", roleID, false).
		Order("permission_id, module").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return edges, nil
}

// grants selects live role-permission edges of roleIDs joined to live
// permissions.
func (g *Graph) grants(ctx context.Context, roleIDs []uint) *gorm.DB {
	return service.GetDB(ctx, g.db).Model(&models.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id IN ? AND role_permissions.is_deleted = ?", roleIDs, false).
		Where("permissions.is_deleted = ?", false)
}

// revive clears the deleted flag of an existing edge; live edges are left as is.
func (g *Graph) revive(db *gorm.DB, model any, id uint, deleted bool, actor uuid.UUID) error {
	if !deleted {
		return nil
	}
	err := db.Model(model).Where("id = ?", id).Updates(map[string]any{
		"is_deleted":          false,
		"modified_at":         time.Now().UTC(),
		"modified_by_user_id": models.ActorRef(actor),
	}).Error
	if err != nil {
		return fmt.Errorf("restore edge: %w", err)
	}
	return nil
}

func findEdge[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var edge T
	if err := service.GetDB(ctx, db).Where(query, args...).First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &edge, nil
}

// exists checks that a live record with id is present.
func exists(db *gorm.DB, model any, id any) error {
	var count int64
	if err := db.Model(model).Where("id = ? AND is_deleted = ?", id, false).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return service.ErrNotFound
	}
	return nil
}
