package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/auth"
)

// Outcome is the verdict of the guard for one request.
type Outcome int

const (
	// Unchecked means no verdict was reached, e.g. the store failed.
	Unchecked Outcome = iota
	// Challenged means the caller must authenticate first.
	Challenged
	// Forbidden means the caller lacks the required permission.
	Forbidden
	// Allowed means the request may reach its handler.
	Allowed
)

func (o Outcome) String() string {
	switch o {
	case Challenged:
		return "challenged"
	case Forbidden:
		return "forbidden"
	case Allowed:
		return "allowed"
	default:
		return "unchecked"
	}
}

// Policy is the access requirement declared for a route. A route without a
// Permission falls back to the area default.
type Policy struct {
	AllowAnonymous bool
	Permission     string
	Module         string
}

// Anonymous marks a route reachable without a session.
var Anonymous = Policy{AllowAnonymous: true}

// Require returns a policy demanding permission in the unscoped module.
func Require(permission string) Policy {
	return Policy{Permission: permission}
}

// PermissionChecker answers live permission checks.
type PermissionChecker interface {
	HasPermissionLive(ctx context.Context, subjectID uuid.UUID, permission, module string) (bool, error)
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	DefaultPermission string
	LoginPath         string
	ExemptPaths       []string
}

// Guard protects an administrative area. Every route in the area is checked
// against its declared policy before the handler runs.
type Guard struct {
	checker           PermissionChecker
	defaultPermission string
	loginPath         string
	exempt            []string
	logger            *slog.Logger

	mu       sync.RWMutex
	policies map[string]Policy
}

// NewGuard creates a Guard.
func NewGuard(checker PermissionChecker, cfg GuardConfig, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		checker:           checker,
		defaultPermission: cfg.DefaultPermission,
		loginPath:         cfg.LoginPath,
		exempt:            cfg.ExemptPaths,
		logger:            logger,
		policies:          make(map[string]Policy),
	}
}

// Evaluate decides a request. Exemption wins over an explicit permission,
// which wins over the area default; only then is authentication required
// and the permission checked live. A route that resolves to no permission
// is forbidden. A store failure returns Unchecked with the error, which
// callers must treat as a denial.
func (g *Guard) Evaluate(ctx context.Context, principal *auth.Principal, policy Policy) (Outcome, error) {
	if policy.AllowAnonymous {
		return Allowed, nil
	}

	permission := policy.Permission
	if permission == "" {
		permission = g.defaultPermission
	}

	if !principal.IsAuthenticated() {
		return Challenged, nil
	}
	if permission == "" {
		g.logger.Warn("No permission resolved for guarded route, denying")
		return Forbidden, nil
	}

	ok, err := g.checker.HasPermissionLive(ctx, principal.SubjectID(), permission, policy.Module)
	if err != nil {
		return Unchecked, err
	}
	if !ok {
		return Forbidden, nil
	}
	return Allowed, nil
}

// PolicyFor returns the effective policy of a matched route.
func (g *Guard) PolicyFor(method, fullPath, requestPath string) Policy {
	for _, pattern := range g.exempt {
		if util.KeyMatch2(requestPath, pattern) {
			return Anonymous
		}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policies[method+" "+fullPath]
}

func (g *Guard) declare(method, fullPath string, policy Policy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policies[method+" "+fullPath] = policy
}

// Middleware enforces the guard on every route of the group it is attached to.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := g.PolicyFor(c.Request.Method, c.FullPath(), c.Request.URL.Path)
		principal := auth.PrincipalFrom(c)

		outcome, err := g.Evaluate(c.Request.Context(), principal, policy)
		switch outcome {
		case Allowed:
			c.Next()
		case Challenged:
			g.challenge(c)
		case Forbidden:
			g.logger.Warn("Access denied", "subject", principal.SubjectID(), "method", c.Request.Method, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		default:
			g.logger.Error("Access check failed", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Access check failed"})
		}
	}
}

// challenge sends browsers to the login page and API clients a 401.
func (g *Guard) challenge(c *gin.Context) {
	login := g.loginPath
	if login != "" {
		login += "?return_url=" + url.QueryEscape(c.Request.URL.RequestURI())
	}

	if login != "" && wantsHTML(c.Request) {
		c.Redirect(http.StatusFound, login)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "login_url": login})
}

func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// Area is a router group whose routes are declared with a policy.
type Area struct {
	group *gin.RouterGroup
	guard *Guard
}

// NewArea attaches the guard to group.
func (g *Guard) NewArea(group *gin.RouterGroup) *Area {
	group.Use(g.Middleware())
	return &Area{group: group, guard: g}
}

// Group creates a sub-area sharing the guard.
func (a *Area) Group(relativePath string) *Area {
	return &Area{group: a.group.Group(relativePath), guard: a.guard}
}

// Handle registers a route together with its policy.
func (a *Area) Handle(method, relativePath string, policy Policy, handlers ...gin.HandlerFunc) {
	a.group.Handle(method, relativePath, handlers...)
	a.guard.declare(method, joinPaths(a.group.BasePath(), relativePath), policy)
}

// GET registers a GET route with its policy.
func (a *Area) GET(relativePath string, policy Policy, handlers ...gin.HandlerFunc) {
	a.Handle(http.MethodGet, relativePath, policy, handlers...)
}

// POST registers a POST route with its policy.
func (a *Area) POST(relativePath string, policy Policy, handlers ...gin.HandlerFunc) {
	a.Handle(http.MethodPost, relativePath, policy, handlers...)
}

// PUT registers a PUT route with its policy.
func (a *Area) PUT(relativePath string, policy Policy, handlers ...gin.HandlerFunc) {
	a.Handle(http.MethodPut, relativePath, policy, handlers...)
}

// DELETE registers a DELETE route with its policy.
func (a *Area) DELETE(relativePath string, policy Policy, handlers ...gin.HandlerFunc) {
	a.Handle(http.MethodDelete, relativePath, policy, handlers...)
}

func joinPaths(base, relative string) string {
	if relative == "" {
		return base
	}
	joined := path.Join(base, relative)
	if strings.HasSuffix(relative, "/") && !strings.HasSuffix(joined, "/") {
		return joined + "/"
	}
	return joined
}
