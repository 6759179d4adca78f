// Package auth issues and validates the signed tokens that scope a
// WebSocket subscriber to a single tenant.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim of every tenant token.
const Issuer = "fleetmap"

// ErrMissingTenant is returned for tokens without a tenant claim.
var ErrMissingTenant = errors.New("token has no tenant")

// TenantClaims holds the JWT payload of a tenant subscription token.
type TenantClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tid"`
}

// TokenService signs and verifies tenant tokens with an HS256 secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 12 * time.Hour

// NewTokenService creates a TokenService with the given signing secret and
// token lifetime. A non-positive ttl means DefaultTTL.
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token granting subscription to tenantID's events.
func (s *TokenService) Issue(tenantID, subject string) (string, error) {
	if tenantID == "" {
		return "", ErrMissingTenant
	}
	now := s.now()
	claims := TenantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    Issuer,
		},
		TenantID: tenantID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign tenant token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a tenant token, returning its claims.
func (s *TokenService) Validate(tokenString string) (*TenantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TenantClaims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*TenantClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenant
	}
	return claims, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
