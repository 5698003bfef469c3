package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
	"github.com/saasforge/saasforge/backend/iam-service/internal/config"
	"github.com/saasforge/saasforge/backend/iam-service/internal/orgaccess"
	"github.com/saasforge/saasforge/backend/iam-service/internal/sessions"
	"github.com/saasforge/saasforge/backend/iam-service/internal/tokens"
)

// fakeOracle answers org-access checks from a mutable map so tests can
// change roles or revoke access between refreshes.
type fakeOracle struct {
	access map[string]*orgaccess.Access
}

func (f *fakeOracle) key(userID, orgID string) string { return userID + "/" + orgID }

func (f *fakeOracle) VerifyAccess(ctx context.Context, userID, orgID string) (*orgaccess.Access, error) {
	return f.access[f.key(userID, orgID)], nil
}

func (f *fakeOracle) set(userID, orgID string, role authz.Role) {
	if f.access == nil {
		f.access = map[string]*orgaccess.Access{}
	}
	f.access[f.key(userID, orgID)] = &orgaccess.Access{Role: role}
}

func (f *fakeOracle) revoke(userID, orgID string) {
	delete(f.access, f.key(userID, orgID))
}

const testSecret = "provider-test-secret-32-bytes-xx"

var member = authz.ActiveUser{UserID: "u1", OrgID: "o1", Role: authz.RoleMember}

func newTestProvider(t *testing.T, maxTTL time.Duration) (*LocalProvider, *fakeOracle) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	store := sessions.NewRedisStore(client, maxTTL)
	oracle := &fakeOracle{}
	oracle.set(member.UserID, member.OrgID, member.Role)
	signer := tokens.NewSigner(testSecret, 15*time.Minute)
	return NewLocalProvider(store, oracle, signer, maxTTL), oracle
}

func TestIssueTokens(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	ctx := context.Background()

	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	userID, err := p.VerifyToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
}

func TestVerifyToken_Garbage(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	_, err := p.VerifyToken(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_SingleUse(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	ctx := context.Background()

	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)

	rotated, err := p.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// the consumed token is dead
	_, err = p.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// the rotated one still works
	_, err = p.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_AbsoluteLifetimeAcrossRotations(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	ctx := context.Background()

	t0 := time.Now()
	p.now = func() time.Time { return t0 }
	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)

	// 50 minutes in: still refreshable
	p.now = func() time.Time { return t0.Add(50 * time.Minute) }
	rotated, err := p.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// 70 minutes from the ORIGINAL start: expired, despite the recent
	// rotation; sessionStart is immutable for the family
	p.now = func() time.Time { return t0.Add(70 * time.Minute) }
	_, err = p.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	// the session was deleted on expiry
	_, err = p.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_OrgAccessRevoked(t *testing.T) {
	p, oracle := newTestProvider(t, time.Hour)
	ctx := context.Background()

	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)

	oracle.revoke("u1", "o1")

	_, err = p.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrOrgAccessRevoked)

	// the session is gone as a side effect
	_, err = p.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRefresh_RoleChangePropagates(t *testing.T) {
	p, oracle := newTestProvider(t, time.Hour)
	ctx := context.Background()

	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)

	// admin promotes the member mid-session
	oracle.set("u1", "o1", authz.RoleAdmin)

	// the still-valid old access token keeps the stale role
	signer := tokens.NewSigner(testSecret, 15*time.Minute)
	oldClaims, err := signer.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "MEMBER", oldClaims.Role)

	// the next refresh reflects the new role
	rotated, err := p.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	newClaims, err := signer.Verify(rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ADMIN", newClaims.Role)
}

func TestRevokeToken(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	ctx := context.Background()

	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)

	userID, err := p.RevokeToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)

	_, err = p.RevokeToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAllForUser_Watermark(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	ctx := context.Background()

	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)

	require.NoError(t, p.RevokeAllForUser(ctx, "u1"))

	// every session is gone
	_, err = p.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// tokens issued up to the revocation are invalidated
	before, err := p.IsTokenIssuedBeforeLogoutAll(ctx, "u1", time.Now().Unix()-1)
	require.NoError(t, err)
	require.True(t, before)

	// tokens issued after it are fine
	after, err := p.IsTokenIssuedBeforeLogoutAll(ctx, "u1", time.Now().Unix()+60)
	require.NoError(t, err)
	require.False(t, after)
}

func TestBlacklistAccessToken(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	ctx := context.Background()

	pair, err := p.IssueTokens(ctx, member)
	require.NoError(t, err)

	require.NoError(t, p.BlacklistAccessToken(ctx, pair.AccessToken))
	ok, err := p.IsAccessTokenBlacklisted(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBlacklistAccessToken_AlreadyExpiredIsNoop(t *testing.T) {
	p, _ := newTestProvider(t, time.Hour)
	ctx := context.Background()

	expiredSigner := tokens.NewSigner(testSecret, -time.Minute)
	tok, err := expiredSigner.Sign(member)
	require.NoError(t, err)

	require.NoError(t, p.BlacklistAccessToken(ctx, tok))
	ok, err := p.IsAccessTokenBlacklisted(ctx, tok)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNew_UnknownProviderRejected(t *testing.T) {
	cfg := &config.Config{}
	cfg.IAM.Provider = "saml"
	_, err := New(cfg, nil, nil, nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInvalidToken))
}
