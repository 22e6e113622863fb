package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
)

func TestSoftDeleteAndRestore(t *testing.T) {
	db := testDB(t)
	users := NewUserService(db, nil)
	ctx := context.Background()
	actor := uuid.New()

	u := createUser(t, users, "alice")

	if err := users.Lifecycle.SoftDelete(ctx, u.ID, actor); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := users.GetByID(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted user to be hidden, got %v", err)
	}

	bin, err := users.Lifecycle.ListDeleted(ctx)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(bin) != 1 || bin[0].ID != u.ID {
		t.Fatalf("expected alice in recycle bin, got %+v", bin)
	}
	if bin[0].ModifiedByUserID == nil || *bin[0].ModifiedByUserID != actor {
		t.Errorf("expected modifier to be stamped with actor")
	}

	// Second soft delete is a no-op.
	if err := users.Lifecycle.SoftDelete(ctx, u.ID, actor); err != nil {
		t.Fatalf("repeat soft delete: %v", err)
	}

	if err := users.Lifecycle.Restore(ctx, u.ID, actor); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get restored: %v", err)
	}
	if got.Deleted() {
		t.Error("restored user still flagged deleted")
	}

	// Restoring an active record changes nothing.
	if err := users.Lifecycle.Restore(ctx, u.ID, actor); err != nil {
		t.Fatalf("restore active: %v", err)
	}
}

func TestSoftDeleteMissingIsNoop(t *testing.T) {
	db := testDB(t)
	roles := NewRoleService(db, nil)

	if err := roles.Lifecycle.SoftDelete(context.Background(), 4242, uuid.Nil); err != nil {
		t.Fatalf("expected nil for missing record, got %v", err)
	}
	if err := roles.Lifecycle.Restore(context.Background(), 4242, uuid.Nil); err != nil {
		t.Fatalf("expected nil for missing record, got %v", err)
	}
}

func TestSystemRecordsAreProtected(t *testing.T) {
	db := testDB(t)
	roles := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := roles.Create(ctx, CreateRoleRequest{Name: "administrator", IsSystem: true}, uuid.Nil)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	if err := roles.Lifecycle.SoftDelete(ctx, role.ID, uuid.Nil); !errors.Is(err, ErrSystemProtected) {
		t.Fatalf("expected ErrSystemProtected on soft delete, got %v", err)
	}

	// Force the flag to simulate a deleted system row; purge must still refuse.
	db.Model(&models.Role{}).Where("id = ?", role.ID).Update("is_deleted", true)
	if err := roles.Lifecycle.HardDelete(ctx, role.ID); !errors.Is(err, ErrSystemProtected) {
		t.Fatalf("expected ErrSystemProtected on purge, got %v", err)
	}
}

func TestHardDeleteRequiresSoftDelete(t *testing.T) {
	db := testDB(t)
	perms := NewPermissionService(db, nil)
	ctx := context.Background()

	perm, err := perms.Create(ctx, CreatePermissionRequest{Name: "edit_pages"}, uuid.Nil)
	if err != nil {
		t.Fatalf("create permission: %v", err)
	}

	if err := perms.Lifecycle.HardDelete(ctx, perm.ID); !errors.Is(err, ErrNotSoftDeleted) {
		t.Fatalf("expected ErrNotSoftDeleted, got %v", err)
	}
	if err := perms.Lifecycle.HardDelete(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := perms.Lifecycle.SoftDelete(ctx, perm.ID, uuid.Nil); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := perms.Lifecycle.HardDelete(ctx, perm.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := perms.Lifecycle.Get(ctx, perm.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected purged permission to be gone, got %v", err)
	}
}

func TestPurgeCascadesEdges(t *testing.T) {
	db := testDB(t)
	users := NewUserService(db, nil)
	roles := NewRoleService(db, nil)
	perms := NewPermissionService(db, nil)
	ctx := context.Background()

	u := createUser(t, users, "bob")
	perm, err := perms.Create(ctx, CreatePermissionRequest{Name: "edit_pages"}, uuid.Nil)
	if err != nil {
		t.Fatalf("create permission: %v", err)
	}
	role, err := roles.Create(ctx, CreateRoleRequest{Name: "editor"}, uuid.Nil)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := db.Create(&models.UserRole{UserID: u.ID, RoleID: role.ID}).Error; err != nil {
		t.Fatalf("create edge: %v", err)
	}
	if err := db.Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error; err != nil {
		t.Fatalf("create edge: %v", err)
	}

	if err := roles.Lifecycle.SoftDelete(ctx, role.ID, uuid.Nil); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := roles.Lifecycle.HardDelete(ctx, role.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}

	var userEdges, permEdges int64
	db.Model(&models.UserRole{}).Where("role_id = ?", role.ID).Count(&userEdges)
	db.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&permEdges)
	if userEdges != 0 || permEdges != 0 {
		t.Errorf("expected edges to be purged, got %d user edges and %d permission edges", userEdges, permEdges)
	}
}
