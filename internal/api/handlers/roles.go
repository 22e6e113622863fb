package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/bastion/internal/audit"
	"github.com/nebari-dev/bastion/internal/rbac"
	"github.com/nebari-dev/bastion/internal/service"
	"gorm.io/gorm"
)

// RoleHandler serves the role catalog endpoints.
type RoleHandler struct {
	roles *service.RoleService
	graph *rbac.Graph
	audit auditor
}

func NewRoleHandler(roles *service.RoleService, graph *rbac.Graph, db *gorm.DB) *RoleHandler {
	return &RoleHandler{roles: roles, graph: graph, audit: auditor{db: db}}
}

// CreateRoleRequest is the body of POST /admin/roles.
type CreateRoleRequest struct {
	Name         string `json:"name" binding:"required"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description"`
	Module       string `json:"module"`
	DisplayOrder *int   `json:"display_order"`
}

// UpdateRoleRequest is the body of PUT /admin/roles/{id}.
type UpdateRoleRequest struct {
	DisplayName  *string `json:"display_name"`
	Description  *string `json:"description"`
	Module       *string `json:"module"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder *int    `json:"display_order"`
}

// ListRoles godoc
// @Summary List roles
// @Tags roles
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search name, display name and description"
// @Param sort query string false "name, module, display_order or created_at"
// @Success 200 {object} service.Page[models.Role]
// @Router /admin/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	page, err := h.roles.List(c.Request.Context(), queryOptions(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateRole godoc
// @Summary Create a role
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Param role body CreateRoleRequest true "Role details"
// @Success 201 {object} models.Role
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	actor := getUserID(c)
	role, err := h.roles.Create(c.Request.Context(), service.CreateRoleRequest{
		Name:         req.Name,
		DisplayName:  req.DisplayName,
		Description:  req.Description,
		Module:       req.Module,
		DisplayOrder: req.DisplayOrder,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionCreateRole, roleResource(role.ID), map[string]interface{}{
		"name":   role.Name,
		"module": role.Module,
	})
	c.JSON(http.StatusCreated, role)
}

// GetRole godoc
// @Summary Get a role
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {object} models.Role
// @Router /admin/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	role, err := h.roles.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// UpdateRole godoc
// @Summary Update a role
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Param id path int true "Role ID"
// @Param role body UpdateRoleRequest true "Changed fields"
// @Success 200 {object} models.Role
// @Router /admin/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	actor := getUserID(c)
	role, err := h.roles.Update(c.Request.Context(), id, service.UpdateRoleRequest{
		DisplayName:  req.DisplayName,
		Description:  req.Description,
		Module:       req.Module,
		IsActive:     req.IsActive,
		DisplayOrder: req.DisplayOrder,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionUpdateRole, roleResource(id), req)
	c.JSON(http.StatusOK, role)
}

// DeleteRole godoc
// @Summary Move a role to the recycle bin
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor := getUserID(c)
	if err := h.roles.Lifecycle.SoftDelete(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionSoftDelete, roleResource(id), nil)
	c.Status(http.StatusNoContent)
}

// RestoreRole godoc
// @Summary Restore a role from the recycle bin
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 204
// @Router /admin/roles/{id}/restore [post]
func (h *RoleHandler) RestoreRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor := getUserID(c)
	if err := h.roles.Lifecycle.Restore(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionRestore, roleResource(id), nil)
	c.Status(http.StatusNoContent)
}

// PurgeRole godoc
// @Summary Permanently delete a role and its assignments
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles/{id}/purge [delete]
func (h *RoleHandler) PurgeRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.roles.Lifecycle.HardDelete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), getUserID(c), audit.ActionPurge, roleResource(id), nil)
	c.Status(http.StatusNoContent)
}

// ListDeletedRoles godoc
// @Summary List roles in the recycle bin
// @Tags roles
// @Security BearerAuth
// @Success 200 {array} models.Role
// @Router /admin/roles/deleted [get]
func (h *RoleHandler) ListDeletedRoles(c *gin.Context) {
	roles, err := h.roles.Lifecycle.ListDeleted(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

// ListRolePermissions godoc
// @Summary List the permissions granted to a role
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {array} models.RolePermission
// @Router /admin/roles/{id}/permissions [get]
func (h *RoleHandler) ListRolePermissions(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.roles.Get(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	edges, err := h.graph.RolePermissions(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, edges)
}

// GrantPermission godoc
// @Summary Grant a permission to a role
// @Tags roles
// @Security BearerAuth
// @Accept json
// @Param id path int true "Role ID"
// @Param permissionId path int true "Permission ID"
// @Param scope body AssignmentRequest false "Module scope"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/roles/{id}/permissions/{permissionId} [post]
func (h *RoleHandler) GrantPermission(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	permID, ok := uintParam(c, "permissionId")
	if !ok {
		return
	}
	var req AssignmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	actor := getUserID(c)
	if err := h.graph.AssignPermission(c.Request.Context(), id, permID, actor, req.Module, false); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionGrantPermission, roleResource(id), map[string]interface{}{
		"permission_id": permID,
		"module":        req.Module,
	})
	c.Status(http.StatusNoContent)
}

// RevokePermission godoc
// @Summary Revoke a permission from a role
// @Description The grant moves to the recycle bin. System grants cannot be revoked.
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Param permissionId path int true "Permission ID"
// @Param module query string false "Module scope"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles/{id}/permissions/{permissionId} [delete]
func (h *RoleHandler) RevokePermission(c *gin.Context) {
	id, permID, module, ok := grantParams(c)
	if !ok {
		return
	}

	actor := getUserID(c)
	if err := h.graph.RevokePermission(c.Request.Context(), id, permID, module, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionRevokePermission, roleResource(id), map[string]interface{}{
		"permission_id": permID,
		"module":        module,
	})
	c.Status(http.StatusNoContent)
}

// ListDeletedRolePermissions godoc
// @Summary List the revoked permission grants of a role
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Success 200 {array} models.RolePermission
// @Router /admin/roles/{id}/permissions/deleted [get]
func (h *RoleHandler) ListDeletedRolePermissions(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	edges, err := h.graph.DeletedRolePermissions(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, edges)
}

// RestoreRolePermission godoc
// @Summary Restore a revoked permission grant
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Param permissionId path int true "Permission ID"
// @Param module query string false "Module scope"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/roles/{id}/permissions/{permissionId}/restore [post]
func (h *RoleHandler) RestoreRolePermission(c *gin.Context) {
	id, permID, module, ok := grantParams(c)
	if !ok {
		return
	}

	actor := getUserID(c)
	if err := h.graph.RestorePermissionGrant(c.Request.Context(), id, permID, module, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionRestore, roleResource(id), map[string]interface{}{
		"permission_id": permID,
		"module":        module,
	})
	c.Status(http.StatusNoContent)
}

// PurgeRolePermission godoc
// @Summary Permanently delete a revoked permission grant
// @Description Only grants in the recycle bin can be purged.
// @Tags roles
// @Security BearerAuth
// @Param id path int true "Role ID"
// @Param permissionId path int true "Permission ID"
// @Param module query string false "Module scope"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/roles/{id}/permissions/{permissionId}/purge [delete]
func (h *RoleHandler) PurgeRolePermission(c *gin.Context) {
	id, permID, module, ok := grantParams(c)
	if !ok {
		return
	}

	if err := h.graph.PurgePermissionGrant(c.Request.Context(), id, permID, module); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), getUserID(c), audit.ActionPurge, roleResource(id), map[string]interface{}{
		"permission_id": permID,
		"module":        module,
	})
	c.Status(http.StatusNoContent)
}

func grantParams(c *gin.Context) (uint, uint, string, bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return 0, 0, "", false
	}
	permID, ok := uintParam(c, "permissionId")
	if !ok {
		return 0, 0, "", false
	}
	return id, permID, c.Query("module"), true
}

func roleResource(id uint) string {
	return "role:" + strconv.FormatUint(uint64(id), 10)
}
