package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscalationGuard(t *testing.T) {
	engine := testEngine(nil)
	ctx := context.Background()

	teacher := Principal{ID: 5, Role: "TEACHER"}
	admin := Principal{ID: 1, Role: RoleAdmin}

	// Absent role field: the guard does not apply.
	require.NoError(t, engine.PreventPrivilegeEscalation(ctx, teacher, ""))

	// Re-asserting one's own role in any spelling is allowed.
	require.NoError(t, engine.PreventPrivilegeEscalation(ctx, teacher, "teacher"))
	require.NoError(t, engine.PreventPrivilegeEscalation(ctx, teacher, "TEACHER"))

	// Assigning any other role is denied for non-admins.
	err := engine.PreventPrivilegeEscalation(ctx, teacher, "admin")
	require.ErrorIs(t, err, ErrForbidden)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	require.Equal(t, []string{string(RoleAdmin)}, forbidden.RequiredRoles)

	err = engine.PreventPrivilegeEscalation(ctx, teacher, "head-teacher")
	require.ErrorIs(t, err, ErrForbidden)

	// Admins may assign anything, including demotions of themselves.
	require.NoError(t, engine.PreventPrivilegeEscalation(ctx, admin, "student"))
}
