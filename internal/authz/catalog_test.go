package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogIsClosed(t *testing.T) {
	require.True(t, KnownPermission(PermManageGrades))
	require.False(t, KnownPermission("manage_everything"))

	unknown := UnknownPermissions([]string{PermViewFees, "launch_rockets", PermViewUsers})
	require.Equal(t, []string{"launch_rockets"}, unknown)
}

func TestCatalogSortedAndGrouped(t *testing.T) {
	all := Catalog()
	require.NotEmpty(t, all)
	require.IsIncreasing(t, all)

	grouped := CatalogByCategory()
	total := 0
	for _, perms := range grouped {
		total += len(perms)
	}
	require.Equal(t, len(all), total)
}

func TestSystemRolesStayInsideCatalog(t *testing.T) {
	for _, role := range SystemRoles() {
		require.Empty(t, UnknownPermissions(role.Permissions), "role %s", role.Name)
		require.NotEmpty(t, role.Permissions, "role %s", role.Name)
	}
}
