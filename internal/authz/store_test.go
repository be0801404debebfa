package authz

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	roles  map[int64]Role
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, roles: make(map[int64]Role)}
}

func (m *memoryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (m *memoryRepo) GetRoleByName(ctx context.Context, name RoleName) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Canonical == name {
			return r, nil
		}
	}
	return Role{}, ErrNotFound
}

func (m *memoryRepo) InsertRole(ctx context.Context, role Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Canonical == role.Canonical {
			return Role{}, fmt.Errorf("%w: role %q already exists", ErrConflict, role.Name)
		}
	}
	role.ID = m.nextID
	m.nextID++
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) UpdateRole(ctx context.Context, role Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; !ok {
		return Role{}, ErrNotFound
	}
	for id, existing := range m.roles {
		if id != role.ID && existing.Canonical == role.Canonical {
			return Role{}, fmt.Errorf("%w: role %q already exists", ErrConflict, role.Name)
		}
	}
	role.UpdatedAt = time.Now()
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *memoryRepo) UpsertSystemRoles(ctx context.Context, roles []Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
next:
	for _, role := range roles {
		for id, existing := range m.roles {
			if existing.Canonical == role.Canonical {
				role.ID = id
				m.roles[id] = role
				continue next
			}
		}
		role.ID = m.nextID
		m.nextID++
		m.roles[role.ID] = role
	}
	return nil
}

type stubDirectory struct {
	counts map[RoleName]int64
	err    error
}

func (s stubDirectory) CountByRole(ctx context.Context, role RoleName) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[role], nil
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAudit) RoleMutation(ctx context.Context, actorID int64, action string, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func newTestStore(t *testing.T, directory IdentityDirectory) (*Store, *memoryRepo, *recordingAudit) {
	t.Helper()
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	store := NewStore(repo, directory, nil, audit, nil)
	require.NoError(t, store.SeedSystemRoles(context.Background()))
	return store, repo, audit
}

func TestSeedSystemRolesIdempotent(t *testing.T) {
	store, repo, _ := newTestStore(t, nil)
	require.NoError(t, store.SeedSystemRoles(context.Background()))
	roles, err := repo.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, len(SystemRoles()))
}

func TestResolveRoleAcceptsSpellingVariants(t *testing.T) {
	store, _, _ := newTestStore(t, nil)
	ctx := context.Background()
	a, err := store.ResolveRole(ctx, "head-teacher")
	require.NoError(t, err)
	b, err := store.ResolveRole(ctx, "HEAD_TEACHER")
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
}

func TestHasPermissionAdminBypassesCatalog(t *testing.T) {
	store, _, _ := newTestStore(t, nil)
	ctx := context.Background()
	require.True(t, store.HasPermission(ctx, RoleAdmin, PermManageFees))
	require.True(t, store.HasPermission(ctx, RoleAdmin, "not_in_catalog"))
}

func TestHasPermissionFailsClosed(t *testing.T) {
	store, _, _ := newTestStore(t, nil)
	ctx := context.Background()
	require.False(t, store.HasPermission(ctx, CanonicalRole("ghost"), PermViewGrades))
	require.True(t, store.HasPermission(ctx, CanonicalRole("teacher"), PermManageGrades))
	require.False(t, store.HasPermission(ctx, CanonicalRole("teacher"), PermManageFees))
}

func TestCreateRoleValidation(t *testing.T) {
	store, _, _ := newTestStore(t, nil)
	ctx := context.Background()

	_, err := store.CreateRole(ctx, CreateRoleInput{Name: "librarian"}, 1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = store.CreateRole(ctx, CreateRoleInput{
		Name:        "librarian",
		Permissions: []string{"shelve_books"},
	}, 1)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "shelve_books")
}

func TestCreateRoleNeverSystem(t *testing.T) {
	store, _, audit := newTestStore(t, nil)
	ctx := context.Background()
	created, err := store.CreateRole(ctx, CreateRoleInput{
		Name:        "librarian",
		Permissions: []string{PermViewUsers, PermViewUsers, PermViewTimetable},
	}, 42)
	require.NoError(t, err)
	require.False(t, created.IsSystem)
	require.Equal(t, []string{PermViewTimetable, PermViewUsers}, created.Permissions)
	require.Equal(t, RoleName("LIBRARIAN"), created.Canonical)
	require.Contains(t, audit.actions, "role.created")
}

func TestCreateRoleConcurrentDuplicate(t *testing.T) {
	store, _, _ := newTestStore(t, nil)
	ctx := context.Background()
	input := CreateRoleInput{Name: "registrar", Permissions: []string{PermViewUsers}}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.CreateRole(ctx, input, 1)
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, ErrConflict)
			conflicts++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, conflicts)
}

func TestUpdateSystemRoleRenameConflicts(t *testing.T) {
	store, repo, _ := newTestStore(t, nil)
	ctx := context.Background()
	teacher, err := repo.GetRoleByName(ctx, CanonicalRole("teacher"))
	require.NoError(t, err)

	_, err = store.UpdateRole(ctx, teacher.ID, UpdateRolePatch{
		Name:        "lecturer",
		Permissions: []string{PermViewGrades},
	}, 1)
	require.ErrorIs(t, err, ErrConflict)

	// Same canonical name with different permissions is allowed.
	updated, err := store.UpdateRole(ctx, teacher.ID, UpdateRolePatch{
		Name:        "Teacher",
		Permissions: []string{PermViewGrades, PermViewTimetable},
	}, 1)
	require.NoError(t, err)
	require.Equal(t, []string{PermViewGrades, PermViewTimetable}, updated.Permissions)
}

func TestDeleteSystemRoleConflicts(t *testing.T) {
	store, repo, _ := newTestStore(t, nil)
	ctx := context.Background()
	admin, err := repo.GetRoleByName(ctx, RoleAdmin)
	require.NoError(t, err)
	require.ErrorIs(t, store.DeleteRole(ctx, admin.ID, 1), ErrConflict)
}

func TestDeleteRoleInUseConflicts(t *testing.T) {
	directory := stubDirectory{counts: map[RoleName]int64{"LIBRARIAN": 3}}
	store, _, _ := newTestStore(t, directory)
	ctx := context.Background()
	created, err := store.CreateRole(ctx, CreateRoleInput{
		Name: "librarian", Permissions: []string{PermViewUsers},
	}, 1)
	require.NoError(t, err)

	err = store.DeleteRole(ctx, created.ID, 1)
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "in use")
}

func TestDeleteUnusedCustomRole(t *testing.T) {
	directory := stubDirectory{counts: map[RoleName]int64{}}
	store, _, audit := newTestStore(t, directory)
	ctx := context.Background()
	created, err := store.CreateRole(ctx, CreateRoleInput{
		Name: "librarian", Permissions: []string{PermViewUsers},
	}, 1)
	require.NoError(t, err)

	require.NoError(t, store.DeleteRole(ctx, created.ID, 1))
	_, err = store.GetRole(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, audit.actions, "role.deleted")
}

func TestRoleStats(t *testing.T) {
	directory := stubDirectory{counts: map[RoleName]int64{"TEACHER": 12, "STUDENT": 300}}
	store, _, _ := newTestStore(t, directory)
	stats, err := store.RoleStats(context.Background())
	require.NoError(t, err)
	byName := make(map[RoleName]int64, len(stats))
	for _, s := range stats {
		byName[s.Role.Canonical] = s.Principals
	}
	require.Equal(t, int64(12), byName["TEACHER"])
	require.Equal(t, int64(300), byName["STUDENT"])
	require.Equal(t, int64(0), byName["ADMIN"])
}

func TestRoleStatsDirectoryUnavailable(t *testing.T) {
	directory := stubDirectory{err: fmt.Errorf("connection refused")}
	store, _, _ := newTestStore(t, directory)
	_, err := store.RoleStats(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}
