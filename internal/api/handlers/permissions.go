package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/bastion/internal/audit"
	"github.com/nebari-dev/bastion/internal/service"
	"gorm.io/gorm"
)

// PermissionHandler serves the permission catalog endpoints.
type PermissionHandler struct {
	perms *service.PermissionService
	audit auditor
}

func NewPermissionHandler(perms *service.PermissionService, db *gorm.DB) *PermissionHandler {
	return &PermissionHandler{perms: perms, audit: auditor{db: db}}
}

// CreatePermissionRequest is the body of POST /admin/permissions.
type CreatePermissionRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Module      string `json:"module"`
}

// UpdatePermissionRequest is the body of PUT /admin/permissions/{id}.
type UpdatePermissionRequest struct {
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	Module      *string `json:"module"`
}

// ListPermissions godoc
// @Summary List permissions
// @Tags permissions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.Page[models.Permission]
// @Router /admin/permissions [get]
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	page, err := h.perms.List(c.Request.Context(), queryOptions(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreatePermission godoc
// @Summary Create a permission
// @Tags permissions
// @Security BearerAuth
// @Accept json
// @Param permission body CreatePermissionRequest true "Permission details"
// @Success 201 {object} models.Permission
// @Failure 409 {object} ErrorResponse
// @Router /admin/permissions [post]
func (h *PermissionHandler) CreatePermission(c *gin.Context) {
	var req CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	actor := getUserID(c)
	perm, err := h.perms.Create(c.Request.Context(), service.CreatePermissionRequest{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Module:      req.Module,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionCreatePermission, permissionResource(perm.ID), map[string]interface{}{
		"name": perm.Name,
	})
	c.JSON(http.StatusCreated, perm)
}

// GetPermission godoc
// @Summary Get a permission
// @Tags permissions
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Success 200 {object} models.Permission
// @Router /admin/permissions/{id} [get]
func (h *PermissionHandler) GetPermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	perm, err := h.perms.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, perm)
}

// UpdatePermission godoc
// @Summary Update a permission
// @Tags permissions
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Param permission body UpdatePermissionRequest true "Changed fields"
// @Success 200 {object} models.Permission
// @Router /admin/permissions/{id} [put]
func (h *PermissionHandler) UpdatePermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	actor := getUserID(c)
	perm, err := h.perms.Update(c.Request.Context(), id, service.UpdatePermissionRequest{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Module:      req.Module,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionUpdatePermission, permissionResource(id), req)
	c.JSON(http.StatusOK, perm)
}

// DeletePermission godoc
// @Summary Move a permission to the recycle bin
// @Tags permissions
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/permissions/{id} [delete]
func (h *PermissionHandler) DeletePermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor := getUserID(c)
	if err := h.perms.Lifecycle.SoftDelete(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionSoftDelete, permissionResource(id), nil)
	c.Status(http.StatusNoContent)
}

// RestorePermission godoc
// @Summary Restore a permission from the recycle bin
// @Tags permissions
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Success 204
// @Router /admin/permissions/{id}/restore [post]
func (h *PermissionHandler) RestorePermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor := getUserID(c)
	if err := h.perms.Lifecycle.Restore(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionRestore, permissionResource(id), nil)
	c.Status(http.StatusNoContent)
}

// PurgePermission godoc
// @Summary Permanently delete a permission and its grants
// @Tags permissions
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/permissions/{id}/purge [delete]
func (h *PermissionHandler) PurgePermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.Lifecycle.HardDelete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), getUserID(c), audit.ActionPurge, permissionResource(id), nil)
	c.Status(http.StatusNoContent)
}

// ListDeletedPermissions godoc
// @Summary List permissions in the recycle bin
// @Tags permissions
// @Security BearerAuth
// @Success 200 {array} models.Permission
// @Router /admin/permissions/deleted [get]
func (h *PermissionHandler) ListDeletedPermissions(c *gin.Context) {
	perms, err := h.perms.Lifecycle.ListDeleted(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

func permissionResource(id uint) string {
	return "permission:" + strconv.FormatUint(uint64(id), 10)
}
