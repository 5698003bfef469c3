package provider

import "errors"

// Error taxonomy of the session and guard pipeline. Handlers map these to
// 401 (re-authenticate) or 403 (authenticated but not authorized); any
// other error is an infrastructure failure and surfaces as a 500.
var (
	// 401 family
	ErrInvalidToken              = errors.New("invalid token")
	ErrTokenRevoked              = errors.New("token revoked")
	ErrSessionInvalidated        = errors.New("session invalidated")
	ErrSessionExpired            = errors.New("session expired")
	ErrSessionExpiredPleaseLogin = errors.New("session expired, please log in again")
	ErrInvalidRefreshToken       = errors.New("invalid refresh token")
	ErrOrgAccessRevoked          = errors.New("organization access revoked")

	// 403 family
	ErrNoRoleAssigned            = errors.New("no role assigned")
	ErrInsufficientPermissions   = errors.New("insufficient permissions")
	ErrRoleAuthorizationRequired = errors.New("role authorization required for this route")
)

// IsAuthError reports whether err belongs to the 401 family.
func IsAuthError(err error) bool {
	for _, e := range []error{
		ErrInvalidToken, ErrTokenRevoked, ErrSessionInvalidated,
		ErrSessionExpired, ErrSessionExpiredPleaseLogin,
		ErrInvalidRefreshToken, ErrOrgAccessRevoked,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// IsForbiddenError reports whether err belongs to the 403 family.
func IsForbiddenError(err error) bool {
	for _, e := range []error{
		ErrNoRoleAssigned, ErrInsufficientPermissions, ErrRoleAuthorizationRequired,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
