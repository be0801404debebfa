package authz

import "time"

// Role is a named bundle of permissions assignable to principals.
// Name keeps the external spelling ("head-teacher"); Canonical is the
// form used for every comparison and lookup.
type Role struct {
	ID          int64
	Name        string
	Canonical   RoleName
	Description string
	IsSystem    bool
	Permissions []string
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPermission reports membership of perm in the role's permission set.
func (r Role) HasPermission(perm string) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller for a single request, resolved
// from a bearer credential. Principals are ephemeral and never persisted
// by the engine.
type Principal struct {
	ID    int64
	Email string
	Role  RoleName
}

// IsAdmin reports whether the principal holds the superuser role.
func (p Principal) IsAdmin() bool {
	return p.Role.IsAdmin()
}

// ResourceContext carries the request-supplied identities consulted by
// self-access rules. An absent ResourceOwnerID denies; it never means
// "rule does not apply".
type ResourceContext struct {
	RequesterID     string
	ResourceOwnerID string
}
