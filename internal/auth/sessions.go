package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/authz"
)

// DefaultSessionTTL is the absolute lifetime of a session token.
const DefaultSessionTTL = 2 * time.Hour

// SessionConfig configures token signing.
type SessionConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Claims represents JWT claims. Permissions is the claim set minted at
// login and is not refreshed for the lifetime of the token.
type Claims struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Permissions []string `json:"permission"`
	jwt.RegisteredClaims
}

// Session is a verified token.
type Session struct {
	ID        string
	Claims    authz.ClaimSet
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Sessions issues and verifies signed session tokens.
type Sessions struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	revoked  Revocations
	now      func() time.Time
}

// NewSessions creates a Sessions. A nil revocation list keeps revocations
// in memory.
func NewSessions(cfg SessionConfig, revoked Revocations) (*Sessions, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "bastion"
	}
	if revoked == nil {
		revoked = NewMemoryRevocations()
	}
	return &Sessions{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		revoked:  revoked,
		now:      time.Now,
	}, nil
}

// TTL returns the token lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the claim set.
func (s *Sessions) Issue(cs *authz.ClaimSet) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Name:        cs.Name,
		Email:       cs.Email,
		Permissions: cs.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cs.SubjectID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify checks signature, expiry, issuer, audience and revocation.
func (s *Sessions) Verify(ctx context.Context, tokenString string) (*Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return nil, fmt.Errorf("%w: malformed subject or token id", ErrUnauthorized)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}

	sess := &Session{
		ID: claims.ID,
		Claims: authz.ClaimSet{
			SubjectID:   subject,
			Name:        claims.Name,
			Email:       claims.Email,
			Permissions: claims.Permissions,
		},
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	return sess, nil
}

// Revoke invalidates a session until it would have expired anyway.
func (s *Sessions) Revoke(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	return s.revoked.Revoke(ctx, sess.ID, sess.ExpiresAt)
}
