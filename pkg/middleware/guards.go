package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
	"github.com/saasforge/saasforge/backend/iam-service/internal/provider"
)

// RouteGuard is a route's declared access requirements. Routes register an
// explicit guard entry instead of relying on reflective metadata; the
// fail-closed contract lives in RoleGuard below.
type RouteGuard struct {
	// Public skips the whole pipeline for the route.
	Public bool
	// Roles is a strict allow-list; the caller's role must be literally
	// present, no hierarchy or implication.
	Roles []authz.Role
	// Permissions required from the caller's role via the catalog.
	Permissions []authz.Permission
	// RequireAll demands every listed permission; the default is any.
	RequireAll bool
}

// Chain returns the ordered guard pipeline for a route declaration:
// authentication, then role guard, then permission guard.
func (g *Guard) Chain(rg RouteGuard) []gin.HandlerFunc {
	if rg.Public {
		return nil
	}
	return []gin.HandlerFunc{g.Authenticate(), RoleGuard(rg), PermissionGuard(rg)}
}

// RoleGuard enforces the strict role allow-list. A protected route that
// declares neither roles nor permissions is denied for every caller:
// protection is an explicit opt-in, and forgetting the declaration must
// not silently open the route.
func RoleGuard(rg RouteGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(rg.Roles) == 0 {
			if len(rg.Permissions) == 0 {
				deny(c, http.StatusForbidden, provider.ErrRoleAuthorizationRequired)
			}
			// permission-only route: defer to the permission guard
			return
		}

		user, ok := ActiveUserFrom(c)
		if !ok || user.Role == "" {
			deny(c, http.StatusForbidden, provider.ErrNoRoleAssigned)
			return
		}

		for _, role := range rg.Roles {
			if user.Role == role {
				return
			}
		}
		deny(c, http.StatusForbidden, provider.ErrInsufficientPermissions)
	}
}

// PermissionGuard checks declared permissions against the catalog for the
// caller's role. No declared permissions makes it a no-op (the role guard
// already ruled).
func PermissionGuard(rg RouteGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(rg.Permissions) == 0 {
			return
		}

		user, ok := ActiveUserFrom(c)
		if !ok || user.Role == "" {
			deny(c, http.StatusForbidden, provider.ErrNoRoleAssigned)
			return
		}

		allowed := authz.HasAny(user.Role, rg.Permissions)
		if rg.RequireAll {
			allowed = authz.HasAll(user.Role, rg.Permissions)
		}
		if !allowed {
			deny(c, http.StatusForbidden, provider.ErrInsufficientPermissions)
		}
	}
}
