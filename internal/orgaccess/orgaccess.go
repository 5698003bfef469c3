package orgaccess

import (
	"context"

	"github.com/saasforge/saasforge/backend/iam-service/internal/authz"
)

// Access is a user's current standing in an organization.
type Access struct {
	Role authz.Role
}

// Membership ties a user to an organization with a role.
type Membership struct {
	UserID string     `bson:"userId" json:"userId"`
	OrgID  string     `bson:"orgId" json:"orgId"`
	Role   authz.Role `bson:"role" json:"role"`
}

// Oracle is the authoritative, live source of a user's current role in an
// organization. The token issuer consults it on every refresh so membership
// and role changes propagate to already-logged-in sessions.
type Oracle interface {
	// VerifyAccess returns the user's current access in the org, or nil
	// when the user has none (removed, never a member).
	VerifyAccess(ctx context.Context, userID, orgID string) (*Access, error)
}

// Directory extends the oracle with the membership management the auth
// handlers need around login and registration.
type Directory interface {
	Oracle
	// Grant records a membership. Used at registration.
	Grant(ctx context.Context, m *Membership) error
	// FirstForUser returns a user's membership to log into by default,
	// or nil when the user belongs to no organization.
	FirstForUser(ctx context.Context, userID string) (*Membership, error)
}
