package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
	"github.com/saasforge/saasforge/backend/iam-service/internal/orgaccess"
	"github.com/saasforge/saasforge/backend/iam-service/internal/sessions"
	"github.com/saasforge/saasforge/backend/iam-service/internal/tokens"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/logger"
)

// LocalProvider issues its own HS256 access tokens and keeps refresh
// sessions in the session store. It is the sole writer to session records,
// the session index, the blacklist, and the logout-all watermark.
type LocalProvider struct {
	store  sessions.Store
	oracle orgaccess.Oracle
	signer *tokens.Signer
	maxTTL time.Duration

	// now is swappable for tests
	now func() time.Time
}

func NewLocalProvider(store sessions.Store, oracle orgaccess.Oracle, signer *tokens.Signer, maxTTL time.Duration) *LocalProvider {
	return &LocalProvider{store: store, oracle: oracle, signer: signer, maxTTL: maxTTL, now: time.Now}
}

func (p *LocalProvider) IssueTokens(ctx context.Context, user authz.ActiveUser) (*TokenPair, error) {
	accessToken, err := p.signer.Sign(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := p.store.Create(ctx, &sessions.Session{
		UserID:       user.UserID,
		OrgID:        user.OrgID,
		Role:         user.Role,
		SessionStart: p.now(),
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (p *LocalProvider) VerifyToken(ctx context.Context, token string) (string, error) {
	claims, err := p.signer.Verify(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (p *LocalProvider) RevokeToken(ctx context.Context, refreshToken string) (string, error) {
	sess, err := p.store.Get(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrInvalidRefreshToken
	}
	if err := p.store.Delete(ctx, refreshToken); err != nil {
		return "", err
	}
	return sess.UserID, nil
}

func (p *LocalProvider) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sess, err := p.store.Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidRefreshToken
	}

	// Absolute lifetime check: rotation never extends a session family
	// past maxTTL from its original start.
	elapsed := p.now().Sub(sess.SessionStart)
	if elapsed >= p.maxTTL {
		if err := p.store.Delete(ctx, refreshToken); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	// Re-verify live org access instead of trusting the cached role.
	// This is how membership and role changes reach logged-in sessions.
	access, err := p.oracle.VerifyAccess(ctx, sess.UserID, sess.OrgID)
	if err != nil {
		return nil, fmt.Errorf("verify org access: %w", err)
	}
	if access == nil {
		if err := p.store.Delete(ctx, refreshToken); err != nil {
			return nil, err
		}
		logger.Infof("refresh denied: user %s lost access to org %s", sess.UserID, sess.OrgID)
		return nil, ErrOrgAccessRevoked
	}
	sess.Role = access.Role

	newRefreshToken, err := p.store.Rotate(ctx, refreshToken, sess, p.maxTTL-elapsed)
	if err != nil {
		return nil, err
	}

	accessToken, err := p.signer.Sign(authz.ActiveUser{UserID: sess.UserID, OrgID: sess.OrgID, Role: sess.Role})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

func (p *LocalProvider) RevokeAllForUser(ctx context.Context, userID string) error {
	return p.store.RevokeAll(ctx, userID)
}

// BlacklistAccessToken decodes (not re-verifies) the token to read its exp
// claim: an already-invalid token is only inspected, and one that has
// already expired is left alone.
func (p *LocalProvider) BlacklistAccessToken(ctx context.Context, token string) error {
	claims, err := p.signer.Decode(token)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	return p.store.BlacklistAccessToken(ctx, token, claims.ExpiresAt.Time)
}

func (p *LocalProvider) IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	return p.store.IsBlacklisted(ctx, token)
}

func (p *LocalProvider) IsTokenIssuedBeforeLogoutAll(ctx context.Context, userID string, issuedAt int64) (bool, error) {
	return p.store.IsIssuedBeforeWatermark(ctx, userID, issuedAt)
}
