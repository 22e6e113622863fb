package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/bastion/internal/auth"
	"github.com/nebari-dev/bastion/internal/config"
	"github.com/nebari-dev/bastion/internal/db"
	"github.com/nebari-dev/bastion/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const rootPassword = "s3cret-password"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "development"},
		Auth: config.AuthConfig{
			JWTSecret:  strings.Repeat("x", 32),
			CookieName: "bastion_session",
		},
		Guard: config.GuardConfig{
			AreaPrefix:        "/admin",
			DefaultPermission: models.PermissionAccessAdminPanel,
			LoginPath:         "/admin/login",
			LandingPath:       "/admin",
		},
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	return setupRouterWith(t, nil)
}

func setupRouterWith(t *testing.T, external auth.ExternalProvider) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	ctx := context.Background()
	if err := db.Bootstrap(ctx, database, db.BootstrapOptions{AdminUsername: "root", AdminPassword: rootPassword}, nil); err != nil {
		t.Fatalf("failed to bootstrap: %v", err)
	}
	instanceID, err := db.GetOrCreateInstanceID(ctx, database)
	if err != nil {
		t.Fatalf("failed to create instance ID: %v", err)
	}

	cfg := testConfig()
	sessions, err := auth.NewSessions(auth.SessionConfig{Secret: cfg.Auth.JWTSecret, Audience: instanceID}, nil)
	if err != nil {
		t.Fatalf("failed to create sessions: %v", err)
	}
	return NewRouter(cfg, Dependencies{DB: database, Sessions: sessions, External: external}, nil), database
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, username, password string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/admin/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login %s: no token in %s", username, w.Body.String())
	}
	return resp.Token
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	for _, path := range []string{"/api/v1/health", "/api/v1/info", "/api/v1/version"} {
		if w := do(t, router, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestRouter_AnonymousIsChallenged(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/admin/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["login_url"] != "/admin/login?return_url=%2Fadmin%2Fusers" {
		t.Errorf("unexpected login_url %q", body["login_url"])
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect for browsers, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login?return_url=%2Fadmin%2Fme" {
		t.Errorf("unexpected redirect %q", loc)
	}
}

func TestRouter_LoginFailureIsGeneric(t *testing.T) {
	router, _ := setupRouter(t)

	unknown := do(t, router, http.MethodPost, "/admin/auth/login", "", map[string]string{"username": "nobody", "password": "whatever1"})
	wrong := do(t, router, http.MethodPost, "/admin/auth/login", "", map[string]string{"username": "root", "password": "wrong-password"})
	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("failure bodies differ: %q vs %q", unknown.Body.String(), wrong.Body.String())
	}
}

func TestRouter_PermissionsAreCheckedLive(t *testing.T) {
	router, database := setupRouter(t)
	rootToken := login(t, router, "root", rootPassword)

	// A fresh user holds no roles
	w := do(t, router, http.MethodPost, "/admin/users", rootToken, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "alice-password",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var alice models.User
	if err := json.Unmarshal(w.Body.Bytes(), &alice); err != nil {
		t.Fatalf("decode user: %v", err)
	}

	aliceToken := login(t, router, "alice", "alice-password")
	if w := do(t, router, http.MethodGet, "/admin/me", aliceToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("user without roles: expected 403, got %d", w.Code)
	}

	// Grant panel access through a role; the existing token picks it up
	w = do(t, router, http.MethodPost, "/admin/roles", rootToken, map[string]string{"name": "panel_user"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create role: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var role models.Role
	if err := json.Unmarshal(w.Body.Bytes(), &role); err != nil {
		t.Fatalf("decode role: %v", err)
	}
	var panel models.Permission
	if err := database.Where("name = ?", models.PermissionAccessAdminPanel).First(&panel).Error; err != nil {
		t.Fatalf("lookup permission: %v", err)
	}

	grant := "/admin/roles/" + itoa(role.ID) + "/permissions/" + itoa(panel.ID)
	if w := do(t, router, http.MethodPost, grant, rootToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("grant: expected 204, got %d: %s", w.Code, w.Body.String())
	}
	assign := "/admin/users/" + alice.ID.String() + "/roles/" + itoa(role.ID)
	if w := do(t, router, http.MethodPost, assign, rootToken, nil); w.Code != http.StatusNoContent {
		t.Fatalf("assign: expected 204, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/admin/me", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("after assignment: expected 200, got %d", w.Code)
	}
	var me struct {
		SessionPermissions []string `json:"session_permissions"`
		CurrentPermissions []string `json:"current_permissions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if len(me.SessionPermissions) != 0 {
		t.Errorf("session claims should be those minted at login, got %v", me.SessionPermissions)
	}
	if len(me.CurrentPermissions) != 1 || me.CurrentPermissions[0] != models.PermissionAccessAdminPanel {
		t.Errorf("unexpected current permissions %v", me.CurrentPermissions)
	}

	// Panel access does not include user management
	if w := do(t, router, http.MethodGet, "/admin/users", aliceToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("manage_users: expected 403, got %d", w.Code)
	}

	// Deactivation takes effect on the next request
	if w := do(t, router, http.MethodPost, "/admin/users/"+alice.ID.String()+"/deactivate", rootToken, nil); w.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodGet, "/admin/me", aliceToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("deactivated user: expected 403, got %d", w.Code)
	}
}

func TestRouter_UserLifecycle(t *testing.T) {
	router, _ := setupRouter(t)
	token := login(t, router, "root", rootPassword)

	w := do(t, router, http.MethodPost, "/admin/users", token, map[string]string{"username": "bob", "email": "bob@example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var bob models.User
	if err := json.Unmarshal(w.Body.Bytes(), &bob); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	base := "/admin/users/" + bob.ID.String()

	if w := do(t, router, http.MethodDelete, base+"/purge", token, nil); w.Code != http.StatusConflict {
		t.Errorf("purge of live user: expected 409, got %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, base, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("soft delete: expected 204, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, base, token, nil); w.Code != http.StatusNotFound {
		t.Errorf("deleted user: expected 404, got %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/admin/users/deleted", token, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), bob.ID.String()) {
		t.Errorf("recycle bin should list bob: %d %s", w.Code, w.Body.String())
	}

	// The name stays reserved while the user is in the recycle bin
	w = do(t, router, http.MethodPost, "/admin/users", token, map[string]string{"username": "BOB", "email": "other@example.com"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate of deleted user: expected 409, got %d", w.Code)
	}

	if w := do(t, router, http.MethodPost, base+"/restore", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("restore: expected 204, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, base, token, nil); w.Code != http.StatusOK {
		t.Errorf("restored user: expected 200, got %d", w.Code)
	}

	do(t, router, http.MethodDelete, base, token, nil)
	if w := do(t, router, http.MethodDelete, base+"/purge", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("purge: expected 204, got %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/restore", token, nil); w.Code != http.StatusNoContent {
		t.Errorf("restore of purged user is a no-op, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, base, token, nil); w.Code != http.StatusNotFound {
		t.Errorf("purged user: expected 404, got %d", w.Code)
	}
}

func TestRouter_SystemRecordsAreProtected(t *testing.T) {
	router, database := setupRouter(t)
	token := login(t, router, "root", rootPassword)

	var admin models.Role
	if err := database.Where("name = ?", models.AdministratorRole).First(&admin).Error; err != nil {
		t.Fatalf("lookup administrator: %v", err)
	}
	var superuser models.Permission
	if err := database.Where("name = ?", models.PermissionFullAdminAccess).First(&superuser).Error; err != nil {
		t.Fatalf("lookup superuser permission: %v", err)
	}
	var root models.User
	if err := database.Where("username = ?", "root").First(&root).Error; err != nil {
		t.Fatalf("lookup root: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"delete administrator role", http.MethodDelete, "/admin/roles/" + itoa(admin.ID)},
		{"delete superuser permission", http.MethodDelete, "/admin/permissions/" + itoa(superuser.ID)},
		{"revoke system grant", http.MethodDelete, "/admin/roles/" + itoa(admin.ID) + "/permissions/" + itoa(superuser.ID)},
		{"unassign system role", http.MethodDelete, "/admin/users/" + root.ID.String() + "/roles/" + itoa(admin.ID)},
		{"purge system grant", http.MethodDelete, "/admin/roles/" + itoa(admin.ID) + "/permissions/" + itoa(superuser.ID) + "/purge"},
		{"purge system role assignment", http.MethodDelete, "/admin/users/" + root.ID.String() + "/roles/" + itoa(admin.ID) + "/purge"},
		{"delete self", http.MethodDelete, "/admin/users/" + root.ID.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, router, tt.method, tt.path, token, nil); w.Code != http.StatusConflict {
				t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRouter_AssignmentLifecycle(t *testing.T) {
	router, database := setupRouter(t)
	token := login(t, router, "root", rootPassword)

	w := do(t, router, http.MethodPost, "/admin/users", token, map[string]string{"username": "carol", "email": "carol@example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var carol models.User
	if err := json.Unmarshal(w.Body.Bytes(), &carol); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	w = do(t, router, http.MethodPost, "/admin/roles", token, map[string]string{"name": "editor"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create role: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var editor models.Role
	if err := json.Unmarshal(w.Body.Bytes(), &editor); err != nil {
		t.Fatalf("decode role: %v", err)
	}

	roles := "/admin/users/" + carol.ID.String() + "/roles"
	edge := roles + "/" + itoa(editor.ID)
	listLen := func(path string) int {
		t.Helper()
		w := do(t, router, http.MethodGet, path, token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
		var items []json.RawMessage
		if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
			t.Fatalf("GET %s: decode: %v", path, err)
		}
		return len(items)
	}

	if w := do(t, router, http.MethodPost, edge, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("assign: expected 204, got %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, edge+"/purge", token, nil); w.Code != http.StatusConflict {
		t.Errorf("purge of live assignment: expected 409, got %d", w.Code)
	}

	// Unassigning moves the edge to the recycle bin
	if w := do(t, router, http.MethodDelete, edge, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("unassign: expected 204, got %d", w.Code)
	}
	if n := listLen(roles); n != 0 {
		t.Errorf("expected no live roles, got %d", n)
	}
	if n := listLen(roles + "/deleted"); n != 1 {
		t.Errorf("expected one removed assignment, got %d", n)
	}
	var stored models.UserRole
	if err := database.Where("user_id = ? AND role_id = ?", carol.ID, editor.ID).First(&stored).Error; err != nil {
		t.Fatalf("removed edge should still be stored: %v", err)
	}
	if !stored.IsDeleted {
		t.Error("expected removed edge to be flagged deleted")
	}

	if w := do(t, router, http.MethodPost, edge+"/restore", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("restore: expected 204, got %d", w.Code)
	}
	if n := listLen(roles); n != 1 {
		t.Errorf("expected restored role, got %d", n)
	}

	do(t, router, http.MethodDelete, edge, token, nil)
	if w := do(t, router, http.MethodDelete, edge+"/purge", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("purge: expected 204, got %d", w.Code)
	}
	if n := listLen(roles + "/deleted"); n != 0 {
		t.Errorf("purged assignment still in recycle bin")
	}
	if w := do(t, router, http.MethodPost, edge+"/restore", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("restore after purge: expected 404, got %d", w.Code)
	}

	// Permission grants follow the same lifecycle
	w = do(t, router, http.MethodPost, "/admin/permissions", token, map[string]string{"name": "publish_pages"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create permission: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var publish models.Permission
	if err := json.Unmarshal(w.Body.Bytes(), &publish); err != nil {
		t.Fatalf("decode permission: %v", err)
	}
	grants := "/admin/roles/" + itoa(editor.ID) + "/permissions"
	grant := grants + "/" + itoa(publish.ID)
	if w := do(t, router, http.MethodPost, grant, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("grant: expected 204, got %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, grant, token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("revoke: expected 204, got %d", w.Code)
	}
	if n := listLen(grants); n != 0 {
		t.Errorf("expected no live grants, got %d", n)
	}
	if n := listLen(grants + "/deleted"); n != 1 {
		t.Errorf("expected one revoked grant, got %d", n)
	}
	if w := do(t, router, http.MethodPost, grant+"/restore", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("restore grant: expected 204, got %d", w.Code)
	}
	if n := listLen(grants); n != 1 {
		t.Errorf("expected restored grant, got %d", n)
	}
	do(t, router, http.MethodDelete, grant, token, nil)
	if w := do(t, router, http.MethodDelete, grant+"/purge", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("purge grant: expected 204, got %d", w.Code)
	}
	if n := listLen(grants + "/deleted"); n != 0 {
		t.Errorf("purged grant still in recycle bin")
	}
}

func TestRouter_LogoutRevokesToken(t *testing.T) {
	router, _ := setupRouter(t)
	token := login(t, router, "root", rootPassword)

	if w := do(t, router, http.MethodGet, "/admin/users", token, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/admin/auth/logout", token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/admin/users", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", w.Code)
	}
}

func TestRouter_AuditLog(t *testing.T) {
	router, _ := setupRouter(t)
	token := login(t, router, "root", rootPassword)
	do(t, router, http.MethodPost, "/admin/auth/login", "", map[string]string{"username": "root", "password": "nope-nope"})

	w := do(t, router, http.MethodGet, "/admin/audit-logs?action=login_failed", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var page struct {
		Items []models.AuditLog `json:"items"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Errorf("expected one failed login entry, got %+v", page)
	}
}

type fakeProvider struct {
	ident auth.ExternalIdentity
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*auth.ExternalIdentity, error) {
	if code != "good-code" {
		return nil, errors.New("bad code")
	}
	ident := f.ident
	return &ident, nil
}

func TestRouter_ExternalLogin(t *testing.T) {
	router, _ := setupRouterWith(t, &fakeProvider{ident: auth.ExternalIdentity{
		Subject:       "idp|123",
		Email:         "carol@example.com",
		EmailVerified: true,
		Name:          "Carol",
	}})

	w := do(t, router, http.MethodGet, "/admin/auth/oidc/login?return_url=%2Fadmin%2Fusers", "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("login start: expected 302, got %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil || loc.Host != "idp.example.com" {
		t.Fatalf("unexpected redirect %q", w.Header().Get("Location"))
	}
	state := loc.Query().Get("state")
	var stateCookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "bastion_oidc_state" {
			stateCookie = ck
		}
	}
	if stateCookie == nil || state == "" {
		t.Fatal("missing state cookie or state parameter")
	}
	if strings.Contains(stateCookie.Value, state) || strings.Contains(stateCookie.Value, "/admin/users") {
		t.Errorf("state cookie should be sealed, got %q", stateCookie.Value)
	}

	callback := func(cookieValue, code string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/auth/oidc/callback?state="+url.QueryEscape(state)+"&code="+code, nil)
		req.AddCookie(&http.Cookie{Name: "bastion_oidc_state", Value: cookieValue})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if rec := callback("v1.forged", "good-code"); rec.Code != http.StatusBadRequest {
		t.Errorf("forged state cookie: expected 400, got %d", rec.Code)
	}
	if rec := callback(stateCookie.Value, "bad-code"); rec.Code != http.StatusUnauthorized {
		t.Errorf("failed exchange: expected 401, got %d", rec.Code)
	}

	rec := callback(stateCookie.Value, "good-code")
	if rec.Code != http.StatusFound {
		t.Fatalf("callback: expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/admin/users" {
		t.Errorf("expected redirect to return URL, got %q", got)
	}
	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "bastion_session" {
			session = ck
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("session cookie not set")
	}

	// The provisioned account is authenticated but holds no roles
	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	if me.Code != http.StatusForbidden {
		t.Errorf("provisioned user: expected 403, got %d", me.Code)
	}
}

func TestRouter_ExternalLoginDisabled(t *testing.T) {
	router, _ := setupRouter(t)
	if w := do(t, router, http.MethodGet, "/admin/auth/oidc/login", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without provider, got %d", w.Code)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
