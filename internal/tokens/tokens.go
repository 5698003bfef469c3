package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
)

// Claims is the access-token payload: the active user plus registered
// claims. The token is stateless; everything a guard needs to reconstruct
// the caller's identity travels in here.
type Claims struct {
	OrgID string `json:"orgId"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ActiveUser rebuilds the request identity from the claims.
func (c *Claims) ActiveUser() authz.ActiveUser {
	return authz.ActiveUser{
		UserID: c.Subject,
		OrgID:  c.OrgID,
		Role:   authz.Role(c.Role),
	}
}

// IssuedAtUnix returns the iat claim in unix seconds, 0 when absent.
func (c *Claims) IssuedAtUnix() int64 {
	if c.IssuedAt == nil {
		return 0
	}
	return c.IssuedAt.Unix()
}

// Signer mints and verifies HS256 access tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration

	// now is swappable for tests
	now func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign creates a signed access token for the user with iat = now and a
// short absolute expiry.
func (s *Signer) Sign(user authz.ActiveUser) (string, error) {
	now := s.now()
	claims := &Claims{
		OrgID: user.OrgID,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the claims. An expired
// token surfaces jwt.ErrTokenExpired in the error chain so callers can
// distinguish "expired" (refreshable) from "invalid" (terminal).
func (s *Signer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// Decode parses the claims without verifying signature or expiry. Used
// when blacklisting: an already-invalid token is only inspected for its
// exp claim, never re-validated.
func (s *Signer) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claims, nil
}

// TTL returns the configured access-token lifetime.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}
