package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/audit"
	"github.com/nebari-dev/bastion/internal/auth"
	"github.com/nebari-dev/bastion/internal/service"
	"gorm.io/gorm"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServiceError maps service-layer errors to HTTP status codes.
func handleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}
	if errors.Is(err, service.ErrSystemProtected) || errors.Is(err, service.ErrNotSoftDeleted) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflictErr.Message})
		return
	}
	slog.Error("unhandled service error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}

// getUserID returns the acting user of the request.
func getUserID(c *gin.Context) uuid.UUID {
	return auth.CurrentSubjectID(c)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryOptions reads search, sort, desc, skip and take from the query string.
func queryOptions(c *gin.Context) service.QueryOptions {
	skip, _ := strconv.Atoi(c.Query("skip"))
	take, _ := strconv.Atoi(c.Query("take"))
	desc, _ := strconv.ParseBool(c.Query("desc"))
	return service.QueryOptions{
		Search:   c.Query("search"),
		SortBy:   c.Query("sort"),
		SortDesc: desc,
		Skip:     skip,
		Take:     take,
	}
}

// AssignmentRequest is the body of role and permission grant endpoints.
type AssignmentRequest struct {
	Module string `json:"module"`
}

// auditor writes audit entries; failures are logged and never fail the
// request.
type auditor struct {
	db *gorm.DB
}

func (a auditor) record(ctx context.Context, actor uuid.UUID, action, resource string, details any) {
	if err := audit.LogAction(ctx, a.db, actor, action, resource, details); err != nil {
		slog.Warn("Failed to write audit log", "action", action, "resource", resource, "error", err)
	}
}
