package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/audit"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
)

// AuditHandler serves the audit log.
type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// AuditLogPage is one page of audit entries.
type AuditLogPage struct {
	Items []models.AuditLog `json:"items"`
	Total int64             `json:"total"`
}

// ListAuditLogs godoc
// @Summary List audit log entries
// @Tags audit
// @Security BearerAuth
// @Param user_id query string false "Acting user UUID"
// @Param action query string false "Action"
// @Param resource query string false "Resource, e.g. user:<uuid>"
// @Param since query string false "RFC 3339 timestamp"
// @Param skip query int false "Offset"
// @Param take query int false "Page size"
// @Success 200 {object} AuditLogPage
// @Failure 400 {object} ErrorResponse
// @Router /admin/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	filter := audit.Filter{
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user_id"})
			return
		}
		filter.UserID = id
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid since"})
			return
		}
		filter.Since = since
	}
	filter.Skip, _ = strconv.Atoi(c.Query("skip"))
	filter.Take, _ = strconv.Atoi(c.Query("take"))

	logs, total, err := audit.List(c.Request.Context(), h.db, filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, AuditLogPage{Items: logs, Total: total})
}
