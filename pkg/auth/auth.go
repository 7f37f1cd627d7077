// Package auth handles portal logins and JWT session tokens.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mssp-soc/portal-gateway/pkg/access"
	"github.com/mssp-soc/portal-gateway/pkg/models"
)

// ErrInvalidCredentials is returned for any login failure so callers cannot
// distinguish unknown accounts from wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the slice of persistence the auth service needs
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service authenticates users and issues/parses session tokens
type Service struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewService creates an auth service
func NewService(store UserStore, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Claims carries the actor identity inside the JWT
type Claims struct {
	UserID   uuid.UUID   `json:"uid"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	TenantID *uuid.UUID  `json:"tenantId,omitempty"`
	jwt.RegisteredClaims
}

// Authenticate verifies email/password against the user store and returns
// the user plus a signed session token. Inactive users cannot log in, and
// neither can users bound to a deactivated tenant.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrInvalidCredentials
	}
	if user.TenantID != nil {
		tenant, err := s.store.GetTenant(ctx, *user.TenantID)
		if err != nil || !tenant.IsActive {
			return nil, "", ErrInvalidCredentials
		}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	if err := s.store.TouchUserLogin(ctx, user.ID, s.now()); err != nil {
		// Login still succeeds; the timestamp is advisory.
		return user, token, nil
	}
	return user, token, nil
}

// HashPassword produces a bcrypt hash for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Name:     user.Name,
		Role:     user.Role,
		TenantID: user.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// ParseToken validates a session token and returns its claims
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ActorFromClaims builds the access-control actor descriptor. The tenant
// binding is re-read from the claims on every request, never cached across
// requests.
func ActorFromClaims(claims *Claims) access.Actor {
	return access.Actor{
		UserID:   claims.UserID,
		Name:     claims.Name,
		Role:     claims.Role,
		TenantID: claims.TenantID,
	}
}
