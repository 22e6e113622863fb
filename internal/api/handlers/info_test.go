package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupInfoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "info.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	err = db.AutoMigrate(&models.ServerConfig{})
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestGetInfo_ReturnsServerInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupInfoTestDB(t)

	// Create an instance ID in the database
	instanceID := "test-instance-id-12345"
	db.Create(&models.ServerConfig{
		Key:   models.ServerConfigKeyInstanceID,
		Value: instanceID,
	})

	handler := NewInfoHandler(db)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)

	handler.GetInfo(c)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response InfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if response.InstanceID != instanceID {
		t.Errorf("expected instance ID %s, got %s", instanceID, response.InstanceID)
	}
	if response.Version != Version {
		t.Errorf("expected version %s, got %s", Version, response.Version)
	}
	if response.GoVersion != runtime.Version() {
		t.Errorf("expected go version %s, got %s", runtime.Version(), response.GoVersion)
	}
	if response.OS != runtime.GOOS || response.Arch != runtime.GOARCH {
		t.Errorf("unexpected platform %s/%s", response.OS, response.Arch)
	}
}

func TestGetInfo_ErrorsWhenInstanceIDNotInitialized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupInfoTestDB(t)

	handler := NewInfoHandler(db)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)

	handler.GetInfo(c)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInfoHandler(setupInfoTestDB(t))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	handler.HealthCheck(c)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}
