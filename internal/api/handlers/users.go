package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/audit"
	"github.com/nebari-dev/bastion/internal/models"
	"github.com/nebari-dev/bastion/internal/rbac"
	"github.com/nebari-dev/bastion/internal/service"
	"gorm.io/gorm"
)

// UserHandler serves the user administration endpoints.
type UserHandler struct {
	users *service.UserService
	graph *rbac.Graph
	audit auditor
}

func NewUserHandler(users *service.UserService, graph *rbac.Graph, db *gorm.DB) *UserHandler {
	return &UserHandler{users: users, graph: graph, audit: auditor{db: db}}
}

// CreateUserRequest is the body of POST /admin/users.
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// UpdateUserRequest is the body of PUT /admin/users/{id}.
type UpdateUserRequest struct {
	Email       *string `json:"email"`
	DisplayName *string `json:"display_name"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search username, email and display name"
// @Param sort query string false "username, email or created_at"
// @Param desc query bool false "Sort descending"
// @Param skip query int false "Offset"
// @Param take query int false "Page size"
// @Success 200 {object} service.Page[models.User]
// @Failure 400 {object} ErrorResponse
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := h.users.List(c.Request.Context(), queryOptions(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateUser godoc
// @Summary Create a user
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "User details"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	actor := getUserID(c)
	user, err := h.users.Create(c.Request.Context(), service.CreateUserRequest{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	h.audit.record(c.Request.Context(), actor, audit.ActionCreateUser, userResource(user), map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
	})
	c.JSON(http.StatusCreated, user)
}

// GetUser godoc
// @Summary Get a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Update a user
// @Tags users
// @Security BearerAuth
// @Accept json
// @Param id path string true "User UUID"
// @Param user body UpdateUserRequest true "Changed fields"
// @Success 200 {object} models.User
// @Router /admin/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	actor := getUserID(c)
	user, err := h.users.Update(c.Request.Context(), id, service.UpdateUserRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionUpdateUser, userResource(user), req)
	c.JSON(http.StatusOK, user)
}

// ActivateUser godoc
// @Summary Activate a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {object} models.User
// @Router /admin/users/{id}/activate [post]
func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateUser godoc
// @Summary Deactivate a user
// @Description Deactivated users cannot log in and lose their effective roles.
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {object} models.User
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id}/deactivate [post]
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actor := getUserID(c)
	if !active && id == actor {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "You cannot deactivate your own account"})
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), id, active, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	action := audit.ActionDeactivateUser
	if active {
		action = audit.ActionActivateUser
	}
	h.audit.record(c.Request.Context(), actor, action, userResource(user), nil)
	c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Move a user to the recycle bin
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actor := getUserID(c)
	if id == actor {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "You cannot delete your own account"})
		return
	}
	if err := h.users.Lifecycle.SoftDelete(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionSoftDelete, "user:"+id.String(), nil)
	c.Status(http.StatusNoContent)
}

// RestoreUser godoc
// @Summary Restore a user from the recycle bin
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 204
// @Router /admin/users/{id}/restore [post]
func (h *UserHandler) RestoreUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	actor := getUserID(c)
	if err := h.users.Lifecycle.Restore(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionRestore, "user:"+id.String(), nil)
	c.Status(http.StatusNoContent)
}

// PurgeUser godoc
// @Summary Permanently delete a user
// @Description Only users already in the recycle bin can be purged.
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id}/purge [delete]
func (h *UserHandler) PurgeUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.Lifecycle.HardDelete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), getUserID(c), audit.ActionPurge, "user:"+id.String(), nil)
	c.Status(http.StatusNoContent)
}

// ListDeletedUsers godoc
// @Summary List users in the recycle bin
// @Tags users
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /admin/users/deleted [get]
func (h *UserHandler) ListDeletedUsers(c *gin.Context) {
	users, err := h.users.Lifecycle.ListDeleted(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// ListUserRoles godoc
// @Summary List the roles assigned to a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {array} models.UserRole
// @Router /admin/users/{id}/roles [get]
func (h *UserHandler) ListUserRoles(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.users.GetByID(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	edges, err := h.graph.UserRoles(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, edges)
}

// AssignRole godoc
// @Summary Assign a role to a user
// @Description Assigning an already held role is a no-op.
// @Tags users
// @Security BearerAuth
// @Accept json
// @Param id path string true "User UUID"
// @Param roleId path int true "Role ID"
// @Param scope body AssignmentRequest false "Module scope"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/roles/{roleId} [post]
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	roleID, ok := uintParam(c, "roleId")
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
	if err := h.graph.AssignRole(c.Request.Context(), id, roleID, req.Module, false, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionAssignRole, "user:"+id.String(), map[string]interface{}{
		"role_id": roleID,
		"module":  req.Module,
	})
	c.Status(http.StatusNoContent)
}

// UnassignRole godoc
// @Summary Remove a role from a user
// @Description The assignment moves to the recycle bin. System-assigned roles cannot be removed.
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Param roleId path int true "Role ID"
// @Param module query string false "Module scope"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id}/roles/{roleId} [delete]
func (h *UserHandler) UnassignRole(c *gin.Context) {
	id, roleID, module, ok := roleAssignmentParams(c)
	if !ok {
		return
	}

	actor := getUserID(c)
	if err := h.graph.UnassignRole(c.Request.Context(), id, roleID, module, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionUnassignRole, "user:"+id.String(), map[string]interface{}{
		"role_id": roleID,
		"module":  module,
	})
	c.Status(http.StatusNoContent)
}

// ListDeletedUserRoles godoc
// @Summary List the removed role assignments of a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Success 200 {array} models.UserRole
// @Router /admin/users/{id}/roles/deleted [get]
func (h *UserHandler) ListDeletedUserRoles(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	edges, err := h.graph.DeletedUserRoles(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, edges)
}

// RestoreUserRole godoc
// @Summary Restore a removed role assignment
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Param roleId path int true "Role ID"
// @Param module query string false "Module scope"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/roles/{roleId}/restore [post]
func (h *UserHandler) RestoreUserRole(c *gin.Context) {
	id, roleID, module, ok := roleAssignmentParams(c)
	if !ok {
		return
	}

	actor := getUserID(c)
	if err := h.graph.RestoreRoleAssignment(c.Request.Context(), id, roleID, module, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), actor, audit.ActionRestore, "user:"+id.String(), map[string]interface{}{
		"role_id": roleID,
		"module":  module,
	})
	c.Status(http.StatusNoContent)
}

// PurgeUserRole godoc
// @Summary Permanently delete a removed role assignment
// @Description Only assignments in the recycle bin can be purged.
// @Tags users
// @Security BearerAuth
// @Param id path string true "User UUID"
// @Param roleId path int true "Role ID"
// @Param module query string false "Module scope"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /admin/users/{id}/roles/{roleId}/purge [delete]
func (h *UserHandler) PurgeUserRole(c *gin.Context) {
	id, roleID, module, ok := roleAssignmentParams(c)
	if !ok {
		return
	}

	if err := h.graph.PurgeRoleAssignment(c.Request.Context(), id, roleID, module); err != nil {
		handleServiceError(c, err)
		return
	}
	h.audit.record(c.Request.Context(), getUserID(c), audit.ActionPurge, "user:"+id.String(), map[string]interface{}{
		"role_id": roleID,
		"module":  module,
	})
	c.Status(http.StatusNoContent)
}

func roleAssignmentParams(c *gin.Context) (uuid.UUID, uint, string, bool) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return uuid.Nil, 0, "", false
	}
	roleID, ok := uintParam(c, "roleId")
	if !ok {
		return uuid.Nil, 0, "", false
	}
	return id, roleID, c.Query("module"), true
}

func userResource(u *models.User) string {
	return fmt.Sprintf("user:%s", u.ID)
}
