package authz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticSource map[RoleName][]string

func (s staticSource) HasPermission(ctx context.Context, role RoleName, permission string) bool {
	for _, p := range s[role] {
		if p == permission {
			return true
		}
	}
	return false
}

type capturingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *capturingObserver) Decision(ctx context.Context, ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *capturingObserver) last(t *testing.T) Event {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.events)
	return o.events[len(o.events)-1]
}

func testEngine(observer Observer) *Engine {
	source := staticSource{
		"TEACHER": {PermManageGrades, PermViewGrades},
		"STUDENT": {PermViewOwnGrades, PermViewOwnFees},
	}
	return NewEngine(source, testTable(true), DefaultSelfAccessRules(), observer)
}

func TestAuthorizePermissionGranted(t *testing.T) {
	obs := &capturingObserver{}
	engine := testEngine(obs)
	teacher := Principal{ID: 1, Role: "TEACHER"}

	require.NoError(t, engine.AuthorizePermission(context.Background(), teacher, PermManageGrades))
	require.Equal(t, ReasonGranted, obs.last(t).Reason)
}

func TestAuthorizePermissionDeniedWithDetail(t *testing.T) {
	obs := &capturingObserver{}
	engine := testEngine(obs)
	teacher := Principal{ID: 1, Role: "TEACHER"}

	err := engine.AuthorizePermission(context.Background(), teacher, PermManageFees)
	require.ErrorIs(t, err, ErrForbidden)

	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	require.Equal(t, []string{PermManageFees}, forbidden.RequiredPermissions)
	require.Equal(t, "TEACHER", forbidden.ActualRole)
	require.Equal(t, ReasonInsufficientPermission, obs.last(t).Reason)
}

func TestAuthorizePermissionAdminAlwaysPasses(t *testing.T) {
	obs := &capturingObserver{}
	engine := testEngine(obs)
	admin := Principal{ID: 9, Role: RoleAdmin}

	require.NoError(t, engine.AuthorizePermission(context.Background(), admin, "permission_that_does_not_exist"))
	require.Equal(t, ReasonAdmin, obs.last(t).Reason)
}

func TestAuthorizeRoleDetail(t *testing.T) {
	engine := testEngine(nil)
	student := Principal{ID: 2, Role: "STUDENT"}

	err := engine.AuthorizeRole(context.Background(), student, "teacher", "head-teacher")
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	require.Equal(t, []string{"teacher", "head-teacher"}, forbidden.RequiredRoles)

	require.NoError(t, engine.AuthorizeRole(context.Background(), student, "Student"))
}

func TestAuthorizeResourceDistinguishesDenials(t *testing.T) {
	obs := &capturingObserver{}
	engine := testEngine(obs)
	ctx := context.Background()
	student := Principal{ID: 2, Role: "STUDENT"}

	// Missing permission entirely.
	err := engine.AuthorizeResource(ctx, student, PermManageGrades, ResourceContext{})
	require.Error(t, err)
	require.Equal(t, ReasonInsufficientPermission, obs.last(t).Reason)

	// Permission held but resource owned by someone else.
	err = engine.AuthorizeResource(ctx, student, PermViewOwnGrades, ResourceContext{RequesterID: "2", ResourceOwnerID: "3"})
	require.Error(t, err)
	require.Equal(t, ReasonOwnerMismatch, obs.last(t).Reason)

	// Own record passes.
	require.NoError(t, engine.AuthorizeResource(ctx, student, PermViewOwnGrades, ResourceContext{RequesterID: "2", ResourceOwnerID: "2"}))

	// Admin skips ownership entirely.
	admin := Principal{ID: 1, Role: RoleAdmin}
	require.NoError(t, engine.AuthorizeResource(ctx, admin, PermViewOwnGrades, ResourceContext{RequesterID: "1", ResourceOwnerID: "99"}))
}

func TestAuthorizeEndpointDenied(t *testing.T) {
	engine := testEngine(nil)
	student := Principal{ID: 2, Role: "STUDENT"}

	err := engine.AuthorizeEndpoint(context.Background(), student, "/api/admin/settings")
	require.ErrorIs(t, err, ErrForbidden)
	require.NoError(t, engine.AuthorizeEndpoint(context.Background(), student, "/api/unlisted"))
}

func TestForbiddenErrorMatchesSentinel(t *testing.T) {
	err := &ForbiddenError{Reason: "nope"}
	require.True(t, errors.Is(err, ErrForbidden))
	require.Contains(t, err.Error(), "nope")
}
