package model

// Role values carried in the JWT "role" claim.  The service trusts the
// identity collaborator that issued the token and never checks credentials
// itself.
const (
	RoleUser    = "USER"
	RoleCreator = "CREATOR"
)

// Identity is the authenticated caller as extracted from the access token:
// an opaque user ID plus a role tag.  Authorization decisions dispatch on
// this pair rather than on per-role types.
type Identity struct {
	UserID string
	Role   string
}
