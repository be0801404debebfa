package authz

import "strings"

// RoleName is the canonical, comparison-safe form of a role name:
// uppercase with underscore separators. Values are produced only by
// CanonicalRole so that two spellings of the same role can never be
// compared as different strings.
type RoleName string

// RoleAdmin is the superuser role. It satisfies every permission and
// endpoint check regardless of catalog contents.
const RoleAdmin RoleName = "ADMIN"

// CanonicalRole normalizes case and separator variants of a role name.
// "head-teacher", "head_teacher" and "HEAD_TEACHER" all canonicalize to
// the same RoleName.
func CanonicalRole(name string) RoleName {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "-", "_")
	return RoleName(strings.ToUpper(name))
}

// CanonicalRoles normalizes a list of role name spellings, dropping blanks.
func CanonicalRoles(names ...string) []RoleName {
	out := make([]RoleName, 0, len(names))
	for _, n := range names {
		c := CanonicalRole(n)
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IsAdmin reports whether the role is the superuser.
func (r RoleName) IsAdmin() bool {
	return r == RoleAdmin
}

func (r RoleName) String() string {
	return string(r)
}
