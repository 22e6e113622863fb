package auth

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/authz"
)

// PrincipalContextKey is the key used to store the principal in Gin context
const PrincipalContextKey = "principal"

// Principal is the caller of a request. A zero Principal is anonymous.
type Principal struct {
	Session *Session
	Token   string
}

// IsAuthenticated reports whether the request carried a valid session.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Session != nil
}

// SubjectID returns the authenticated user id, or uuid.Nil.
func (p *Principal) SubjectID() uuid.UUID {
	if !p.IsAuthenticated() {
		return uuid.Nil
	}
	return p.Session.Claims.SubjectID
}

// HasClaim checks the claim set minted at login. It may be stale; use
// authz.Engine.HasPermissionLive where that matters.
func (p *Principal) HasClaim(permission string) bool {
	if !p.IsAuthenticated() {
		return false
	}
	return p.Session.Claims.HasClaim(permission)
}

// Claims returns the session claim set, or nil for anonymous callers.
func (p *Principal) Claims() *authz.ClaimSet {
	if !p.IsAuthenticated() {
		return nil
	}
	return &p.Session.Claims
}

// Middleware resolves the principal of every request. It checks (in order):
// Bearer token header, then the session cookie. Missing or invalid tokens
// leave the caller anonymous; access decisions belong to the guard.
func (s *Sessions) Middleware(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := &Principal{}

		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" && cookieName != "" {
			tokenString, _ = c.Cookie(cookieName)
		}

		if tokenString != "" {
			sess, err := s.Verify(c.Request.Context(), tokenString)
			switch {
			case err == nil:
				principal = &Principal{Session: sess, Token: tokenString}
			case errors.Is(err, ErrUnauthorized):
				slog.Debug("Ignoring invalid session token", "error", err)
			default:
				slog.Error("Failed to verify session", "error", err)
			}
		}

		c.Set(PrincipalContextKey, principal)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// PrincipalFrom extracts the principal from the Gin context. Requests that
// did not pass through Middleware are anonymous.
func PrincipalFrom(c *gin.Context) *Principal {
	if value, ok := c.Get(PrincipalContextKey); ok {
		if p, ok := value.(*Principal); ok {
			return p
		}
	}
	return &Principal{}
}

// IsAuthenticated reports whether the request has a valid session.
func IsAuthenticated(c *gin.Context) bool {
	return PrincipalFrom(c).IsAuthenticated()
}

// CurrentSubjectID returns the authenticated user id, or uuid.Nil.
func CurrentSubjectID(c *gin.Context) uuid.UUID {
	return PrincipalFrom(c).SubjectID()
}

// HasClaim checks the caller's claim set.
func HasClaim(c *gin.Context, permission string) bool {
	return PrincipalFrom(c).HasClaim(permission)
}
