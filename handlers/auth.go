package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
	"github.com/saasforge/saasforge/backend/iam-service/internal/config"
	"github.com/saasforge/saasforge/backend/iam-service/internal/orgaccess"
	"github.com/saasforge/saasforge/backend/iam-service/internal/provider"
	"github.com/saasforge/saasforge/backend/iam-service/internal/users"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/cookies"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/logger"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/metrics"
	"github.com/saasforge/saasforge/backend/iam-service/pkg/middleware"
)

// AuthHandler wires the credential endpoints to the user service, the
// membership directory, and the token issuer.
type AuthHandler struct {
	cfg       *config.Config
	users     *users.Service
	directory orgaccess.Directory
	auth      provider.AuthProvider
	guard     *middleware.Guard
	cookies   cookies.Config
}

func NewAuthHandler(cfg *config.Config, u *users.Service, d orgaccess.Directory, p provider.AuthProvider, g *middleware.Guard, ck cookies.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: u, directory: d, auth: p, guard: g, cookies: ck}
}

// Register mounts all auth routes. loginLimiter guards the two credential
// endpoints; pass nil to disable limiting (tests).
func (h *AuthHandler) Register(r *gin.Engine, loginLimiter gin.HandlerFunc) {
	a := r.Group("/auth")
	if loginLimiter != nil {
		a.POST("/login", loginLimiter, h.Login)
		a.POST("/register", loginLimiter, h.SignUp)
	} else {
		a.POST("/login", h.Login)
		a.POST("/register", h.SignUp)
	}
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)

	anyRole := middleware.RouteGuard{Roles: []authz.Role{authz.RoleOwner, authz.RoleAdmin, authz.RoleMember}}
	a.POST("/logout-all", append(h.guard.Chain(anyRole), h.LogoutAll)...)
	a.POST("/switch-org", append(h.guard.Chain(anyRole), h.SwitchOrg)...)

	api := r.Group("/api/v1")
	api.GET("/me", append(h.guard.Chain(anyRole), h.Me)...)
}

// Me returns the caller's profile and their standing in the active org.
func (h *AuthHandler) Me(c *gin.Context) {
	active, _ := middleware.ActiveUserFrom(c)
	u, err := h.users.GetByID(c.Request.Context(), active.UserID)
	if err != nil {
		logger.Errorf("me lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        u,
		"orgId":       active.OrgID,
		"role":        active.Role,
		"permissions": authz.PermissionsFor(active.Role),
	})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// SignUp creates a user, makes them owner of a fresh organization, and
// logs them straight in.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("register: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	m := &orgaccess.Membership{UserID: u.ID, OrgID: uuid.NewString(), Role: authz.RoleOwner}
	if err := h.directory.Grant(c.Request.Context(), m); err != nil {
		logger.Errorf("grant membership: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	h.issueAndRespond(c, authz.ActiveUser{UserID: u.ID, OrgID: m.OrgID, Role: m.Role}, u, "register", http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and opens a session in the user's default
// organization.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	m, err := h.directory.FirstForUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("membership lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if m == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": provider.ErrNoRoleAssigned.Error()})
		return
	}

	h.issueAndRespond(c, authz.ActiveUser{UserID: u.ID, OrgID: m.OrgID, Role: m.Role}, u, "login", http.StatusOK)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges a refresh token (signed cookie, or body for
// non-browser clients) for a rotated pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, ok := cookies.Read(c, cookies.RefreshTokenCookie, h.cookies)
	if !ok {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": provider.ErrInvalidRefreshToken.Error()})
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if provider.IsAuthError(err) {
			metrics.RefreshResults.WithLabelValues("denied").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		metrics.RefreshResults.WithLabelValues("error").Inc()
		logger.Errorf("refresh: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}

	metrics.RefreshResults.WithLabelValues("rotated").Inc()
	cookies.SetTokenPair(c, pair.AccessToken, pair.RefreshToken, h.cookies)
	c.JSON(http.StatusOK, pair)
}

// Logout blacklists the presented access token, consumes the refresh
// token, and clears both cookies. Logout is idempotent: missing or
// already-dead credentials do not fail it.
func (h *AuthHandler) Logout(c *gin.Context) {
	if accessToken := h.extractAccessToken(c); accessToken != "" {
		if err := h.auth.BlacklistAccessToken(c.Request.Context(), accessToken); err != nil {
			logger.Errorf("blacklist on logout: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
	}

	refreshToken, ok := cookies.Read(c, cookies.RefreshTokenCookie, h.cookies)
	if !ok {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken != "" {
		if _, err := h.auth.RevokeToken(c.Request.Context(), refreshToken); err != nil && !errors.Is(err, provider.ErrInvalidRefreshToken) {
			logger.Errorf("revoke on logout: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
	}

	metrics.SessionsRevoked.WithLabelValues("logout").Inc()
	cookies.ClearTokenPair(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// LogoutAll invalidates every session and access token of the caller.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user, _ := middleware.ActiveUserFrom(c)
	if err := h.auth.RevokeAllForUser(c.Request.Context(), user.UserID); err != nil {
		logger.Errorf("logout-all: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	metrics.SessionsRevoked.WithLabelValues("logout_all").Inc()
	cookies.ClearTokenPair(c, h.cookies)
	c.JSON(http.StatusOK, gin.H{"message": "logged out everywhere"})
}

type switchOrgRequest struct {
	OrgID string `json:"orgId" binding:"required"`
}

// SwitchOrg re-issues tokens scoped to another organization the caller
// belongs to. The previous session is left alone; it expires naturally.
func (h *AuthHandler) SwitchOrg(c *gin.Context) {
	var req switchOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, _ := middleware.ActiveUserFrom(c)
	access, err := h.directory.VerifyAccess(c.Request.Context(), user.UserID, req.OrgID)
	if err != nil {
		logger.Errorf("switch-org access check: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "organization switch failed"})
		return
	}
	if access == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": provider.ErrInsufficientPermissions.Error()})
		return
	}

	pair, err := h.auth.IssueTokens(c.Request.Context(), authz.ActiveUser{UserID: user.UserID, OrgID: req.OrgID, Role: access.Role})
	if err != nil {
		logger.Errorf("switch-org issue: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "organization switch failed"})
		return
	}

	metrics.TokensIssued.WithLabelValues("switch_org").Inc()
	cookies.SetTokenPair(c, pair.AccessToken, pair.RefreshToken, h.cookies)
	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) issueAndRespond(c *gin.Context, active authz.ActiveUser, u *users.User, trigger string, status int) {
	pair, err := h.auth.IssueTokens(c.Request.Context(), active)
	if err != nil {
		logger.Errorf("issue tokens: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	metrics.TokensIssued.WithLabelValues(trigger).Inc()
	cookies.SetTokenPair(c, pair.AccessToken, pair.RefreshToken, h.cookies)
	c.JSON(status, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         u,
		"orgId":        active.OrgID,
		"role":         active.Role,
		"expiresIn":    int(h.cfg.IAM.AccessTokenTTL.Seconds()),
	})
}

func (h *AuthHandler) extractAccessToken(c *gin.Context) string {
	if v, ok := cookies.Read(c, cookies.AccessTokenCookie, h.cookies); ok {
		return v
	}
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
