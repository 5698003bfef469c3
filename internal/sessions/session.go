package sessions

import (
	"context"
	"time"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
)

// Session is the store-backed record anchoring a refresh-token family to a
// user/org/role and an immutable start time. It is identified externally by
// the opaque refresh-token string; the token itself is never stored inside
// the record.
type Session struct {
	UserID string     `json:"userId"`
	OrgID  string     `json:"orgId"`
	Role   authz.Role `json:"role"`
	// SessionStart never changes across rotations: the absolute session
	// lifetime is measured from here no matter how often the token rotates.
	SessionStart time.Time `json:"sessionStart"`
}

// Store is the durable record of active sessions, the per-user session
// index, the access-token blacklist, and the per-user logged-out-before
// watermark. All multi-key mutations execute as a single atomic
// transaction so no interleaving can leave a dangling index entry.
type Store interface {
	// Create generates an opaque refresh token, writes the session record
	// with TTL = max session lifetime, and adds it to the user's session
	// index, atomically. Returns the refresh token.
	Create(ctx context.Context, s *Session) (string, error)

	// Get returns the session for the refresh token, or nil when absent.
	Get(ctx context.Context, refreshToken string) (*Session, error)

	// Rotate atomically replaces oldToken with a freshly generated token
	// holding the updated session under the *remaining* TTL, keeping the
	// index consistent. Returns the new refresh token.
	Rotate(ctx context.Context, oldToken string, s *Session, remaining time.Duration) (string, error)

	// Delete removes the record and its index entry atomically. Deleting
	// a missing token is not an error.
	Delete(ctx context.Context, refreshToken string) error

	// RevokeAll deletes every session listed in the user's index, the
	// index itself, and writes the logout-all watermark, atomically.
	RevokeAll(ctx context.Context, userID string) error

	// BlacklistAccessToken records the token until its own expiry; a
	// no-op when the token has already expired.
	BlacklistAccessToken(ctx context.Context, token string, expiresAt time.Time) error

	// IsBlacklisted reports whether the access token was blacklisted.
	IsBlacklisted(ctx context.Context, token string) (bool, error)

	// IsIssuedBeforeWatermark reports whether a token issued at the given
	// unix-seconds timestamp predates the user's logout-all watermark.
	// A missing issuedAt (<= 0) is treated as predating it (fails closed).
	IsIssuedBeforeWatermark(ctx context.Context, userID string, issuedAt int64) (bool, error)
}
