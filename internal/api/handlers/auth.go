package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/audit"
	"github.com/nebari-dev/bastion/internal/auth"
	"github.com/nebari-dev/bastion/internal/authz"
	"github.com/nebari-dev/bastion/internal/crypto"
	"gorm.io/gorm"
)

const oidcStateCookie = "bastion_oidc_state"

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

// AuthHandler serves login, logout and the current-user endpoint.
type AuthHandler struct {
	auth     *auth.Authenticator
	engine   *authz.Engine
	external auth.ExternalProvider
	states   *crypto.Sealer
	cookie   CookieConfig
	landing  string
	audit    auditor
}

// NewAuthHandler creates an AuthHandler. external may be nil when no
// identity provider is configured; states seals the login state cookie of
// the external flow and is required with it.
func NewAuthHandler(authenticator *auth.Authenticator, engine *authz.Engine, external auth.ExternalProvider, states *crypto.Sealer, cookie CookieConfig, landing string, db *gorm.DB) *AuthHandler {
	if states == nil {
		external = nil
	}
	return &AuthHandler{
		auth:     authenticator,
		engine:   engine,
		external: external,
		states:   states,
		cookie:   cookie,
		landing:  landing,
		audit:    auditor{db: db},
	}
}

// LoginResponse is returned by the password login endpoint.
type LoginResponse struct {
	*auth.LoginResponse
	ReturnURL string `json:"return_url"`
}

// Login godoc
// @Summary User login
// @Description Authenticate with username or email and password; returns a session token and sets the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body auth.LoginRequest true "Login credentials"
// @Param return_url query string false "Where to go after login"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.audit.record(c.Request.Context(), uuid.Nil, audit.ActionLoginFailed, "auth:login", map[string]interface{}{
				"identifier": req.Username,
				"ip":         c.ClientIP(),
			})
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		slog.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.audit.record(c.Request.Context(), resp.User.ID, audit.ActionLogin, "auth:login", map[string]interface{}{
		"ip": c.ClientIP(),
	})
	h.setSessionCookie(c, resp.Token)
	c.JSON(http.StatusOK, LoginResponse{
		LoginResponse: resp,
		ReturnURL:     auth.SafeReturnURL(c.Query("return_url"), c.Request.Host, h.landing),
	})
}

// Logout godoc
// @Summary Log out
// @Description Revokes the current session token and clears the session cookie
// @Tags auth
// @Success 204
// @Router /admin/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	principal := auth.PrincipalFrom(c)
	if principal.IsAuthenticated() {
		if err := h.auth.Sessions().Revoke(c.Request.Context(), principal.Session); err != nil {
			slog.Error("Failed to revoke session", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		h.audit.record(c.Request.Context(), principal.SubjectID(), audit.ActionLogout, "auth:logout", nil)
	}
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.Status(http.StatusNoContent)
}

// OIDCLogin godoc
// @Summary Start an external login
// @Tags auth
// @Param return_url query string false "Where to go after login"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Router /admin/auth/oidc/login [get]
func (h *AuthHandler) OIDCLogin(c *gin.Context) {
	if h.external == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "external login is not configured"})
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	state := hex.EncodeToString(buf)
	returnURL := auth.SafeReturnURL(c.Query("return_url"), c.Request.Host, h.landing)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oidcStateCookie, h.states.Seal(state+"|"+returnURL), 600, "/", h.cookie.Domain, h.cookie.Secure, true)
	c.Redirect(http.StatusFound, h.external.AuthURL(state))
}

// OIDCCallback godoc
// @Summary Finish an external login
// @Tags auth
// @Param code query string true "Authorization code"
// @Param state query string true "State"
// @Success 302
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/auth/oidc/callback [get]
func (h *AuthHandler) OIDCCallback(c *gin.Context) {
	if h.external == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "external login is not configured"})
		return
	}

	sealed, err := c.Cookie(oidcStateCookie)
	if err == nil {
		sealed, err = h.states.Open(sealed)
	}
	state, returnURL, _ := strings.Cut(sealed, "|")
	if err != nil || state == "" || state != c.Query("state") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid login state"})
		return
	}
	c.SetCookie(oidcStateCookie, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)

	ident, err := h.external.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		slog.Warn("External login failed", "error", err)
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "external login failed"})
		return
	}

	resp, err := h.auth.LoginExternal(c.Request.Context(), *ident)
	if err != nil {
		if errors.Is(err, auth.ErrUnverifiedEmail) || errors.Is(err, auth.ErrInvalidCredentials) {
			h.audit.record(c.Request.Context(), uuid.Nil, audit.ActionLoginFailed, "auth:oidc", map[string]interface{}{
				"email": ident.Email,
				"ip":    c.ClientIP(),
			})
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("External login failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.audit.record(c.Request.Context(), resp.User.ID, audit.ActionLogin, "auth:oidc", map[string]interface{}{
		"ip": c.ClientIP(),
	})
	h.setSessionCookie(c, resp.Token)
	c.Redirect(http.StatusFound, auth.SafeReturnURL(returnURL, c.Request.Host, h.landing))
}

// MeResponse describes the caller.
type MeResponse struct {
	SubjectID          uuid.UUID `json:"subject_id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	SessionPermissions []string  `json:"session_permissions"`
	CurrentPermissions []string  `json:"current_permissions"`
}

// Me godoc
// @Summary Current user
// @Description Returns the claim set of the session next to the permissions the user holds right now
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Router /admin/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal := auth.PrincipalFrom(c)
	claims := principal.Claims()
	if claims == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	current, err := h.engine.ClaimsFor(c.Request.Context(), claims.SubjectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{
		SubjectID:          claims.SubjectID,
		Name:               claims.Name,
		Email:              claims.Email,
		SessionPermissions: claims.Permissions,
		CurrentPermissions: current.Permissions,
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.auth.Sessions().TTL().Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)
}
