package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelfAccessOnlyAppliesToOwnPermissions(t *testing.T) {
	rules := DefaultSelfAccessRules()
	require.True(t, rules.Requires(PermViewOwnGrades))
	require.False(t, rules.Requires(PermViewGrades))

	// Non-own permissions pass regardless of context.
	require.True(t, rules.Satisfied(PermViewGrades, ResourceContext{}))
}

func TestSelfAccessOwnerMatch(t *testing.T) {
	rules := DefaultSelfAccessRules()
	require.True(t, rules.Satisfied(PermViewOwnFees, ResourceContext{RequesterID: "7", ResourceOwnerID: "7"}))
	require.False(t, rules.Satisfied(PermViewOwnFees, ResourceContext{RequesterID: "7", ResourceOwnerID: "8"}))
}

func TestSelfAccessMissingIdentityDenies(t *testing.T) {
	rules := DefaultSelfAccessRules()
	require.False(t, rules.Satisfied(PermViewOwnAttendance, ResourceContext{RequesterID: "7"}))
	require.False(t, rules.Satisfied(PermViewOwnAttendance, ResourceContext{ResourceOwnerID: "7"}))
	require.False(t, rules.Satisfied(PermViewOwnAttendance, ResourceContext{}))
}
