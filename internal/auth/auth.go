package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/authz"
	"github.com/nebari-dev/bastion/internal/models"
	"github.com/nebari-dev/bastion/internal/service"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnverifiedEmail    = errors.New("external identity has no verified email")
)

// dummyHash keeps the cost of a login for an unknown user close to that of
// a wrong password.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z6Q2dTqQyG0pKk1iP2wUu5vW"

var usernameReplacer = strings.NewReplacer(" ", "-", "/", "-", "\\", "-")

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
	Permissions []string     `json:"permissions"`
}

// Authenticator verifies credentials and issues sessions carrying the
// user's claim set.
type Authenticator struct {
	users    *service.UserService
	engine   *authz.Engine
	sessions *Sessions
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users *service.UserService, engine *authz.Engine, sessions *Sessions, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{users: users, engine: engine, sessions: sessions, logger: logger}
}

// Sessions returns the session issuer used by the authenticator.
func (a *Authenticator) Sessions() *Sessions {
	return a.sessions
}

// Login authenticates a username or email with a password. Unknown users,
// wrong passwords and inactive users all yield ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (*LoginResponse, error) {
	user, err := a.users.FindForLogin(ctx, identifier)
	if errors.Is(err, service.ErrNotFound) {
		service.VerifyPassword(dummyHash, password)
		a.logger.Warn("Login attempt with unknown identifier", "identifier", identifier)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !service.VerifyPassword(user.PasswordHash, password) {
		a.logger.Warn("Login attempt with incorrect password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		a.logger.Warn("Login attempt by inactive user", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return a.issue(ctx, user)
}

// LoginExternal signs in a user vouched for by an external identity
// provider. The provider must assert a verified email; unknown emails get a
// new account without roles.
func (a *Authenticator) LoginExternal(ctx context.Context, ident ExternalIdentity) (*LoginResponse, error) {
	if ident.Email == "" || !ident.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	user, err := a.users.GetByEmail(ctx, ident.Email)
	if errors.Is(err, service.ErrNotFound) {
		user, err = a.provision(ctx, ident)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		a.logger.Warn("External login by inactive user", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return a.issue(ctx, user)
}

func (a *Authenticator) issue(ctx context.Context, user *models.User) (*LoginResponse, error) {
	claims, err := a.engine.MintClaims(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}
	token, expires, err := a.sessions.Issue(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	if err := a.users.RecordLogin(ctx, user.ID); err != nil {
		a.logger.Warn("Failed to record login time", "user_id", user.ID, "error", err)
	}

	a.logger.Info("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return &LoginResponse{
		Token:       token,
		ExpiresAt:   expires,
		User:        user,
		Permissions: claims.Permissions,
	}, nil
}

// provision creates a password-less account for an external identity. The
// username is derived from the identity and suffixed when already taken.
func (a *Authenticator) provision(ctx context.Context, ident ExternalIdentity) (*models.User, error) {
	base := usernameBase(ident)
	username := base
	for attempt := 0; attempt < 3; attempt++ {
		user, err := a.users.Create(ctx, service.CreateUserRequest{
			Username:    username,
			Email:       ident.Email,
			DisplayName: ident.Name,
		}, uuid.Nil)
		if err == nil {
			a.logger.Info("Created new user from external login", "user_id", user.ID, "username", user.Username)
			return user, nil
		}
		var conflict *service.ConflictError
		if !errors.As(err, &conflict) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		if strings.HasPrefix(conflict.Message, "email") {
			// The email belongs to a deleted account.
			return nil, ErrInvalidCredentials
		}
		username = fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
	}
	return nil, fmt.Errorf("failed to create user: no free username for %q", base)
}

// usernameBase derives a username from an external identity, at least 3 and
// at most 48 characters long so a suffix still fits.
func usernameBase(ident ExternalIdentity) string {
	base := ident.PreferredUsername
	if base == "" {
		base, _, _ = strings.Cut(ident.Email, "@")
	}
	base = usernameReplacer.Replace(strings.TrimSpace(base))
	if utf8.RuneCountInString(base) < 3 {
		base = "user-" + base
	}
	if runes := []rune(base); len(runes) > 48 {
		base = string(runes[:48])
	}
	return base
}
