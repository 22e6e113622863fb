package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a file-backed SQLite database in a temp dir and migrates the
// catalog models.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.RolePermission{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, svc *UserService, username string) *models.User {
	t.Helper()
	user, err := svc.Create(context.Background(), CreateUserRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse",
	}, uuid.Nil)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}
