package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalRoleSpellings(t *testing.T) {
	variants := []string{"head-teacher", "head_teacher", "HEAD_TEACHER", "Head-Teacher", "  head-teacher  "}
	for _, v := range variants {
		require.Equal(t, RoleName("HEAD_TEACHER"), CanonicalRole(v), "variant %q", v)
	}
}

func TestCanonicalRolesDropsBlanks(t *testing.T) {
	got := CanonicalRoles("admin", "", "  ", "teacher")
	require.Equal(t, []RoleName{"ADMIN", "TEACHER"}, got)
}

func TestIsAdmin(t *testing.T) {
	require.True(t, CanonicalRole("Admin").IsAdmin())
	require.False(t, CanonicalRole("teacher").IsAdmin())
}
