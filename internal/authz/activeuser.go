package authz

// ActiveUser is the caller's authenticated identity within the currently
// selected organization. It is carried inside the access token and
// reconstructed per request, never persisted on its own.
type ActiveUser struct {
	UserID string `json:"userId"`
	OrgID  string `json:"orgId"`
	Role   Role   `json:"role"`
}
