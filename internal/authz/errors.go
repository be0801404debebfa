package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Engine error kinds. These are result values, never panics; domain
// routes map them to transport status codes via platform/httpx.
var (
	// ErrUnauthenticated indicates a missing, malformed, or expired credential.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbidden indicates a valid credential that fails a role, permission,
	// endpoint, or self-access check.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrNotFound indicates a role identifier or name that does not resolve.
	ErrNotFound = errors.New("authz: role not found")
	// ErrConflict indicates a duplicate role name or an illegal mutation of a
	// system role or a role still in use.
	ErrConflict = errors.New("authz: conflict")
	// ErrValidation indicates a permission outside the catalog or an empty
	// permission set on a custom role.
	ErrValidation = errors.New("authz: validation failed")
	// ErrUnavailable indicates the role store could not be consulted. The
	// caller must fail closed.
	ErrUnavailable = errors.New("authz: store unavailable")
)

// ForbiddenError carries structured required-versus-actual detail for a
// denied check. The calling layer decides how much to expose externally.
type ForbiddenError struct {
	Reason              string
	RequiredRoles       []string
	RequiredPermissions []string
	ActualRole          string
}

func (e *ForbiddenError) Error() string {
	var b strings.Builder
	b.WriteString("authz: forbidden")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.RequiredRoles) > 0 {
		fmt.Fprintf(&b, " (required roles: %s)", strings.Join(e.RequiredRoles, ", "))
	}
	if len(e.RequiredPermissions) > 0 {
		fmt.Fprintf(&b, " (required permissions: %s)", strings.Join(e.RequiredPermissions, ", "))
	}
	return b.String()
}

// Is lets errors.Is(err, ErrForbidden) match structured denials.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
