package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInstanceIDNotInitialized is returned before the first server start.
var ErrInstanceIDNotInitialized = errors.New("instance ID not initialized")

// GetOrCreateInstanceID retrieves the instance ID from the database,
// or generates and stores a new one if it doesn't exist.
// This should be called during server startup after migrations.
func GetOrCreateInstanceID(ctx context.Context, db *gorm.DB) (string, error) {
	id, err := GetInstanceID(ctx, db)
	if err == nil {
		slog.Info("Found existing instance ID", "instance_id", id)
		return id, nil
	}
	if !errors.Is(err, ErrInstanceIDNotInitialized) {
		return "", err
	}

	row := models.ServerConfig{
		Key:   models.ServerConfigKeyInstanceID,
		Value: uuid.New().String(),
	}
	// Two servers starting against a fresh database race here; the loser
	// reads back the winner's value.
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return "", fmt.Errorf("failed to create instance ID: %w", err)
	}

	id, err = GetInstanceID(ctx, db)
	if err != nil {
		return "", err
	}
	slog.Info("Generated new instance ID", "instance_id", id)
	return id, nil
}

// GetInstanceID retrieves the instance ID from the database.
func GetInstanceID(ctx context.Context, db *gorm.DB) (string, error) {
	var row models.ServerConfig

	err := db.WithContext(ctx).Where("key = ?", models.ServerConfigKeyInstanceID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInstanceIDNotInitialized
		}
		return "", fmt.Errorf("failed to query server config: %w", err)
	}
	return row.Value, nil
}
