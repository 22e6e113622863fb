package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
)

func TestGetOrCreateInstanceID_CreatesNewID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := GetOrCreateInstanceID(ctx, db)
	if err != nil {
		t.Fatalf("GetOrCreateInstanceID failed: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("instance ID is not a valid UUID: %v", err)
	}

	var row models.ServerConfig
	if err := db.Where("key = ?", models.ServerConfigKeyInstanceID).First(&row).Error; err != nil {
		t.Fatalf("failed to query server config: %v", err)
	}
	if row.Value != id {
		t.Errorf("stored instance ID mismatch: got %s, want %s", row.Value, id)
	}
}

func TestGetOrCreateInstanceID_ReturnsExistingID(t *testing.T) {
	db := setupTestDB(t)

	existing := "existing-instance-id-123"
	if err := db.Create(&models.ServerConfig{Key: models.ServerConfigKeyInstanceID, Value: existing}).Error; err != nil {
		t.Fatalf("failed to seed instance ID: %v", err)
	}

	id, err := GetOrCreateInstanceID(context.Background(), db)
	if err != nil {
		t.Fatalf("GetOrCreateInstanceID failed: %v", err)
	}
	if id != existing {
		t.Errorf("expected existing ID %s, got %s", existing, id)
	}
}

func TestGetOrCreateInstanceID_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id1, err := GetOrCreateInstanceID(ctx, db)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	id2, err := GetOrCreateInstanceID(ctx, db)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("instance ID changed between calls: %s, %s", id1, id2)
	}
}

func TestGetInstanceID_ErrorsWhenNotInitialized(t *testing.T) {
	db := setupTestDB(t)

	_, err := GetInstanceID(context.Background(), db)
	if !errors.Is(err, ErrInstanceIDNotInitialized) {
		t.Errorf("expected ErrInstanceIDNotInitialized, got %v", err)
	}
}
