package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
	"github.com/saasforge/saasforge/backend/iam-service/internal/provider"
	"github.com/saasforge/saasforge/backend/iam-service/internal/tokens"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/cookies"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/logger"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/metrics"
)

const activeUserKey = "activeUser"

// ActiveUserFrom returns the authenticated identity attached by the
// authentication guard.
func ActiveUserFrom(c *gin.Context) (authz.ActiveUser, bool) {
	v, ok := c.Get(activeUserKey)
	if !ok {
		return authz.ActiveUser{}, false
	}
	u, ok := v.(authz.ActiveUser)
	return u, ok
}

// Guard bundles what the authentication middleware needs: the signer for
// local verification, the provider for blacklist/watermark checks and the
// transparent-refresh path, and the cookie contract.
type Guard struct {
	signer   *tokens.Signer
	provider provider.AuthProvider
	cookies  cookies.Config
}

func NewGuard(signer *tokens.Signer, p provider.AuthProvider, ck cookies.Config) *Guard {
	return &Guard{signer: signer, provider: p, cookies: ck}
}

// Authenticate is the per-request authentication guard. It moves strictly
// forward: extract, verify, blacklist/watermark checks, or a single
// transparent refresh attempt, never more than one per request.
func (g *Guard) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := g.extractAccessToken(c)
		if accessToken == "" {
			g.tryRefresh(c)
			return
		}

		claims, err := g.signer.Verify(accessToken)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				// expired (as opposed to invalid) falls through to
				// the refresh path
				g.tryRefresh(c)
				return
			}
			deny(c, http.StatusUnauthorized, provider.ErrInvalidToken)
			return
		}

		blacklisted, err := g.provider.IsAccessTokenBlacklisted(c.Request.Context(), accessToken)
		if err != nil {
			dependencyFailure(c, err)
			return
		}
		if blacklisted {
			deny(c, http.StatusUnauthorized, provider.ErrTokenRevoked)
			return
		}

		loggedOut, err := g.provider.IsTokenIssuedBeforeLogoutAll(c.Request.Context(), claims.Subject, claims.IssuedAtUnix())
		if err != nil {
			dependencyFailure(c, err)
			return
		}
		if loggedOut {
			deny(c, http.StatusUnauthorized, provider.ErrSessionInvalidated)
			return
		}

		c.Set(activeUserKey, claims.ActiveUser())
	}
}

// tryRefresh exchanges the refresh-token cookie for a fresh pair. Every
// provider failure collapses into one generic session-expired response so
// internal distinctions (org access revoked, rotation raced) do not leak.
func (g *Guard) tryRefresh(c *gin.Context) {
	refreshToken, ok := cookies.Read(c, cookies.RefreshTokenCookie, g.cookies)
	if !ok {
		deny(c, http.StatusUnauthorized, provider.ErrSessionExpired)
		return
	}

	pair, err := g.provider.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if !provider.IsAuthError(err) {
			dependencyFailure(c, err)
			return
		}
		deny(c, http.StatusUnauthorized, provider.ErrSessionExpiredPleaseLogin)
		return
	}

	cookies.SetTokenPair(c, pair.AccessToken, pair.RefreshToken, g.cookies)
	metrics.TokensIssued.WithLabelValues("refresh").Inc()

	claims, err := g.signer.Verify(pair.AccessToken)
	if err != nil {
		deny(c, http.StatusUnauthorized, provider.ErrSessionExpiredPleaseLogin)
		return
	}
	c.Set(activeUserKey, claims.ActiveUser())
}

// extractAccessToken prefers the signed cookie, then falls back to a
// Bearer authorization header. A cookie with a bad signature counts as
// absent.
func (g *Guard) extractAccessToken(c *gin.Context) string {
	if v, ok := cookies.Read(c, cookies.AccessTokenCookie, g.cookies); ok {
		return v
	}
	auth := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
		return token
	}
	return ""
}

func deny(c *gin.Context, status int, err error) {
	guard := "auth"
	if status == http.StatusForbidden {
		guard = "authz"
	}
	metrics.GuardDenials.WithLabelValues(guard, err.Error()).Inc()
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func dependencyFailure(c *gin.Context, err error) {
	logger.Errorf("guard dependency failure: %v", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
