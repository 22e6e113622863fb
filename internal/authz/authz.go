// Package authz turns a user identity into allow/deny verdicts, either from
// the claim set minted at login or by a live check against the assignment
// graph.
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
)

// SuperuserPermission short-circuits every live check.
const SuperuserPermission = models.PermissionFullAdminAccess

// ClaimSet is the identity snapshot carried by a session.
type ClaimSet struct {
	SubjectID   uuid.UUID
	Name        string
	Email       string
	Permissions []string
}

// HasClaim reports whether the snapshot grants the named permission. It
// does not apply the superuser bypass.
func (c *ClaimSet) HasClaim(permission string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Permissions, permission)
}

// UserLookup loads a live user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Graph is the part of the assignment graph the engine reads.
type Graph interface {
	RoleIDsForUser(ctx context.Context, userID uuid.UUID) ([]uint, error)
	PermissionNamesForRoles(ctx context.Context, roleIDs []uint) ([]string, error)
	AnyRoleHasPermission(ctx context.Context, roleIDs []uint, name, module string) (bool, error)
}

// Engine computes claim sets and answers live permission checks.
type Engine struct {
	users  UserLookup
	graph  Graph
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(users UserLookup, graph Graph, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{users: users, graph: graph, logger: logger}
}

// ResolvePermissions returns the distinct permission names held by the user
// through any of its roles, across all modules.
func (e *Engine) ResolvePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	roleIDs, err := e.graph.RoleIDsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	names, err := e.graph.PermissionNamesForRoles(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return slices.Compact(names), nil
}

// MintClaims builds the claim set issued at login. Changes to roles made
// after this call are not reflected until the next login.
func (e *Engine) MintClaims(ctx context.Context, user *models.User) (*ClaimSet, error) {
	perms, err := e.ResolvePermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &ClaimSet{
		SubjectID:   user.ID,
		Name:        user.Name(),
		Email:       user.Email,
		Permissions: perms,
	}, nil
}

// ClaimsFor loads the user and mints a fresh claim set for it.
func (e *Engine) ClaimsFor(ctx context.Context, userID uuid.UUID) (*ClaimSet, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.MintClaims(ctx, user)
}

// HasPermissionLive checks permission against the current state of the
// graph. Holders of SuperuserPermission (unscoped) are always granted. A nil
// subject is denied without touching the store.
func (e *Engine) HasPermissionLive(ctx context.Context, subjectID uuid.UUID, permission, module string) (bool, error) {
	if subjectID == uuid.Nil {
		return false, nil
	}
	roleIDs, err := e.graph.RoleIDsForUser(ctx, subjectID)
	if err != nil {
		return false, fmt.Errorf("resolve roles: %w", err)
	}
	if len(roleIDs) == 0 {
		return false, nil
	}

	super, err := e.graph.AnyRoleHasPermission(ctx, roleIDs, SuperuserPermission, "")
	if err != nil {
		return false, err
	}
	if super {
		return true, nil
	}

	granted, err := e.graph.AnyRoleHasPermission(ctx, roleIDs, permission, module)
	if err != nil {
		return false, err
	}
	if !granted {
		e.logger.Debug("Permission denied", "subject", subjectID, "permission", permission, "module", module)
	}
	return granted, nil
}
