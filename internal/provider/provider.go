package provider

import (
	"context"
	"fmt"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
	"github.com/saasforge/saasforge/backend/iam-service/internal/config"
	"github.com/saasforge/saasforge/backend/iam-service/internal/orgaccess"
	"github.com/saasforge/saasforge/backend/iam-service/internal/sessions"
	"github.com/saasforge/saasforge/backend/iam-service/internal/tokens"
)

// TokenPair is the credential pair handed to a client: a short-lived
// signed access token and a long-lived opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthProvider is the token issuer's public contract. The rest of the
// application (handlers, guards) consumes sessions exclusively through it.
type AuthProvider interface {
	// IssueTokens mints a fresh pair and opens a new session. Called on
	// login, registration, and organization switch.
	IssueTokens(ctx context.Context, user authz.ActiveUser) (*TokenPair, error)

	// VerifyToken checks signature and expiry only and returns the user
	// ID. Lightweight verification for use outside the guard pipeline.
	VerifyToken(ctx context.Context, token string) (string, error)

	// RevokeToken consumes a refresh token and deletes its session,
	// returning the session's user ID.
	RevokeToken(ctx context.Context, refreshToken string) (string, error)

	// Refresh rotates the refresh token and mints a new access token,
	// re-verifying live org access and bounding the absolute session
	// lifetime.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// RevokeAllForUser invalidates every session and access token issued
	// to the user so far ("logout all devices", post password change).
	RevokeAllForUser(ctx context.Context, userID string) error

	// BlacklistAccessToken invalidates one specific still-valid access
	// token until its natural expiry.
	BlacklistAccessToken(ctx context.Context, token string) error

	IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error)

	// IsTokenIssuedBeforeLogoutAll reports whether an access token with
	// the given iat predates the user's logout-all watermark.
	IsTokenIssuedBeforeLogoutAll(ctx context.Context, userID string, issuedAt int64) (bool, error)
}

// New selects the provider strategy by configuration. Only "local" is
// registered today; additional providers plug in here.
func New(cfg *config.Config, store sessions.Store, oracle orgaccess.Oracle, signer *tokens.Signer) (AuthProvider, error) {
	switch cfg.IAM.Provider {
	case "local":
		return NewLocalProvider(store, oracle, signer, cfg.IAM.MaxSessionTTL), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.IAM.Provider)
	}
}
