package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRoleNameValidation(t *testing.T) {
	db := testDB(t)
	roles := NewRoleService(db, nil)

	for _, name := range []string{"", "A", "Editor", "1editor", "has space"} {
		_, err := roles.Create(context.Background(), CreateRoleRequest{Name: name}, uuid.Nil)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Create(%q): expected ValidationError, got %v", name, err)
		}
	}
}

func TestRoleNameConflictIncludesDeleted(t *testing.T) {
	db := testDB(t)
	roles := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := roles.Create(ctx, CreateRoleRequest{Name: "editor", Module: "blog"}, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := roles.Lifecycle.SoftDelete(ctx, role.ID, uuid.Nil); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err = roles.Create(ctx, CreateRoleRequest{Name: "editor"}, uuid.Nil)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(conflict.Message, "deleted") {
		t.Errorf("expected reason to mention deleted records, got %q", conflict.Message)
	}
}

func TestUpdateRole(t *testing.T) {
	db := testDB(t)
	roles := NewRoleService(db, nil)
	ctx := context.Background()

	role, err := roles.Create(ctx, CreateRoleRequest{Name: "viewer"}, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !role.IsActive {
		t.Fatal("new roles should be active")
	}

	inactive := false
	module := "shop"
	order := 3
	got, err := roles.Update(ctx, role.ID, UpdateRoleRequest{IsActive: &inactive, Module: &module, DisplayOrder: &order}, uuid.Nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.IsActive || got.Module != "shop" || got.DisplayOrder == nil || *got.DisplayOrder != 3 {
		t.Errorf("unexpected role after update: %+v", got)
	}

	sys, err := roles.Create(ctx, CreateRoleRequest{Name: "administrator", IsSystem: true}, uuid.Nil)
	if err != nil {
		t.Fatalf("create system role: %v", err)
	}
	if _, err := roles.Update(ctx, sys.ID, UpdateRoleRequest{IsActive: &inactive}, uuid.Nil); !errors.Is(err, ErrSystemProtected) {
		t.Errorf("expected ErrSystemProtected deactivating a system role, got %v", err)
	}
}

func TestPermissionCatalog(t *testing.T) {
	db := testDB(t)
	perms := NewPermissionService(db, nil)
	ctx := context.Background()

	for _, name := range []string{"manage_users", "edit_pages", "publish_pages"} {
		if _, err := perms.Create(ctx, CreatePermissionRequest{Name: name, Module: "cms"}, uuid.Nil); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	got, err := perms.GetByName(ctx, "edit_pages")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got.Module != "cms" {
		t.Errorf("expected module cms, got %q", got.Module)
	}

	page, err := perms.List(ctx, QueryOptions{Search: "pages"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || page.Items[0].Name != "edit_pages" {
		t.Errorf("unexpected listing: %+v", page.Items)
	}

	if _, err := perms.Create(ctx, CreatePermissionRequest{Name: "edit_pages"}, uuid.Nil); err == nil {
		t.Error("expected duplicate permission name to be rejected")
	}
}
