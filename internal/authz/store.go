package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort defines the persistence methods the store needs.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByName(ctx context.Context, name RoleName) (Role, error)
	InsertRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	UpsertSystemRoles(ctx context.Context, roles []Role) error
}

// IdentityDirectory is the collaborator contract against the identity
// store: the engine only ever asks how many principals hold a role.
type IdentityDirectory interface {
	CountByRole(ctx context.Context, role RoleName) (int64, error)
}

// MutationAudit receives one event per role mutation.
type MutationAudit interface {
	RoleMutation(ctx context.Context, actorID int64, action string, role Role)
}

// Store is the single authoritative source of role definitions. System
// roles are seeded from code at process start; custom roles are managed
// by admins at runtime. Reads go through a short-TTL cache that is
// invalidated on every mutation.
type Store struct {
	repo      RepositoryPort
	directory IdentityDirectory
	cache     *RoleCache
	audit     MutationAudit
	logger    *slog.Logger
	group     singleflight.Group
}

// NewStore constructs a Store. cache and audit may be nil.
func NewStore(repo RepositoryPort, directory IdentityDirectory, cache *RoleCache, audit MutationAudit, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: repo, directory: directory, cache: cache, audit: audit, logger: logger}
}

// SystemRoles returns the code-defined role seed. Names keep their
// external spelling; comparisons always go through CanonicalRole.
func SystemRoles() []Role {
	return []Role{
		{
			Name:        "admin",
			Description: "Full access to every module.",
			IsSystem:    true,
			Permissions: Catalog(),
		},
		{
			Name:        "head-teacher",
			Description: "Academic oversight across grades, attendance, exams and timetable.",
			IsSystem:    true,
			Permissions: []string{
				PermViewUsers,
				PermManageGrades, PermViewGrades,
				PermManageAttendance, PermViewAttendance,
				PermManageExams, PermViewExams,
				PermManageTimetable, PermViewTimetable,
				PermSendMessages, PermViewMessages,
				PermGenerateReports,
			},
		},
		{
			Name:        "teacher",
			Description: "Manages grades and attendance for assigned classes.",
			IsSystem:    true,
			Permissions: []string{
				PermManageGrades, PermViewGrades,
				PermManageAttendance, PermViewAttendance,
				PermViewExams, PermViewTimetable,
				PermSendMessages, PermViewMessages,
			},
		},
		{
			Name:        "accountant",
			Description: "Manages fee records and financial reports.",
			IsSystem:    true,
			Permissions: []string{
				PermManageFees, PermViewFees,
				PermViewUsers,
				PermGenerateReports,
			},
		},
		{
			Name:        "student",
			Description: "Views own academic and fee records.",
			IsSystem:    true,
			Permissions: []string{
				PermViewOwnGrades, PermViewOwnAttendance, PermViewOwnFees,
				PermViewTimetable, PermViewMessages,
			},
		},
		{
			Name:        "parent",
			Description: "Views records of linked students.",
			IsSystem:    true,
			Permissions: []string{
				PermViewOwnGrades, PermViewOwnAttendance, PermViewOwnFees,
				PermViewTimetable, PermViewMessages,
			},
		},
	}
}

// SeedSystemRoles upserts the code-defined system roles. Called once at
// process start before the store serves decisions.
func (s *Store) SeedSystemRoles(ctx context.Context) error {
	roles := SystemRoles()
	for i := range roles {
		roles[i].Canonical = CanonicalRole(roles[i].Name)
	}
	if err := s.repo.UpsertSystemRoles(ctx, roles); err != nil {
		return err
	}
	for _, role := range roles {
		s.invalidate(ctx, role.Canonical)
	}
	return nil
}

// ResolveRole canonicalizes the name variant and looks the role up,
// consulting the cache first. Concurrent cache misses for the same role
// collapse into one repository read.
func (s *Store) ResolveRole(ctx context.Context, nameVariant string) (Role, error) {
	canonical := CanonicalRole(nameVariant)
	if canonical == "" {
		return Role{}, ErrNotFound
	}
	if s.cache != nil {
		if role, ok := s.cache.Get(ctx, canonical); ok {
			return role, nil
		}
	}
	v, err, _ := s.group.Do(string(canonical), func() (any, error) {
		role, err := s.repo.GetRoleByName(ctx, canonical)
		if err != nil {
			return Role{}, err
		}
		if s.cache != nil {
			s.cache.Put(ctx, role)
		}
		return role, nil
	})
	if err != nil {
		return Role{}, err
	}
	return v.(Role), nil
}

// HasPermission reports whether the role grants the permission. The
// admin role passes unconditionally; an unknown role or an unavailable
// store denies. Never returns an error: the hot path fails closed.
func (s *Store) HasPermission(ctx context.Context, role RoleName, permission string) bool {
	if role.IsAdmin() {
		return true
	}
	resolved, err := s.ResolveRole(ctx, string(role))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("role lookup failed, denying", slog.String("role", string(role)), slog.Any("error", err))
		}
		return false
	}
	return resolved.HasPermission(permission)
}

// ListRoles returns all roles ordered by name.
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Store) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRoleInput describes a new custom role.
type CreateRoleInput struct {
	Name        string
	Description string
	Permissions []string
}

// CreateRole creates a custom role. Permissions outside the catalog and
// empty permission sets are validation errors; a duplicate canonical
// name is a conflict surfaced atomically by the storage layer. The
// created role is never a system role regardless of input.
func (s *Store) CreateRole(ctx context.Context, input CreateRoleInput, createdBy int64) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", ErrValidation)
	}
	if err := validatePermissions(input.Permissions); err != nil {
		return Role{}, err
	}
	role := Role{
		Name:        name,
		Canonical:   CanonicalRole(name),
		Description: strings.TrimSpace(input.Description),
		IsSystem:    false,
		Permissions: normalizePermissionSet(input.Permissions),
		CreatedBy:   createdBy,
	}
	created, err := s.repo.InsertRole(ctx, role)
	if err != nil {
		return Role{}, err
	}
	s.invalidate(ctx, created.Canonical)
	if s.audit != nil {
		s.audit.RoleMutation(ctx, createdBy, "role.created", created)
	}
	return created, nil
}

// UpdateRolePatch carries the mutable fields of a role. There is no way
// to toggle the system flag: the field simply does not exist here.
type UpdateRolePatch struct {
	Name        string
	Description string
	Permissions []string
}

// UpdateRole applies a patch to an existing role. Renaming a system role
// is a conflict; permissions are re-validated against the catalog.
func (s *Store) UpdateRole(ctx context.Context, id int64, patch UpdateRolePatch, actorID int64) (Role, error) {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	name := strings.TrimSpace(patch.Name)
	if name == "" {
		name = existing.Name
	}
	canonical := CanonicalRole(name)
	if existing.IsSystem && canonical != existing.Canonical {
		return Role{}, fmt.Errorf("%w: system role %q cannot be renamed", ErrConflict, existing.Name)
	}
	if err := validatePermissions(patch.Permissions); err != nil {
		return Role{}, err
	}

	updated := existing
	updated.Name = name
	updated.Canonical = canonical
	updated.Description = strings.TrimSpace(patch.Description)
	updated.Permissions = normalizePermissionSet(patch.Permissions)

	saved, err := s.repo.UpdateRole(ctx, updated)
	if err != nil {
		return Role{}, err
	}
	s.invalidate(ctx, existing.Canonical)
	s.invalidate(ctx, saved.Canonical)
	if s.audit != nil {
		s.audit.RoleMutation(ctx, actorID, "role.updated", saved)
	}
	return saved, nil
}

// DeleteRole removes a custom role. System roles cannot be deleted, and
// a role still held by any principal is a conflict. The in-use check is
// a point-in-time approximation against the identity store, not a
// transactional guarantee.
func (s *Store) DeleteRole(ctx context.Context, id int64, actorID int64) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("%w: system role %q cannot be deleted", ErrConflict, role.Name)
	}
	if s.directory != nil {
		count, err := s.directory.CountByRole(ctx, role.Canonical)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: role %q is in use by %d principal(s)", ErrConflict, role.Name, count)
		}
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, role.Canonical)
	if s.audit != nil {
		s.audit.RoleMutation(ctx, actorID, "role.deleted", role)
	}
	return nil
}

// RoleStat pairs a role with the number of principals holding it.
type RoleStat struct {
	Role       Role
	Principals int64
}

// RoleStats returns principal counts per role.
func (s *Store) RoleStats(ctx context.Context) ([]RoleStat, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]RoleStat, 0, len(roles))
	for _, role := range roles {
		var count int64
		if s.directory != nil {
			count, err = s.directory.CountByRole(ctx, role.Canonical)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		stats = append(stats, RoleStat{Role: role, Principals: count})
	}
	return stats, nil
}

func (s *Store) invalidate(ctx context.Context, canonical RoleName) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, canonical); err != nil {
		s.logger.Warn("role cache invalidation", slog.String("role", string(canonical)), slog.Any("error", err))
	}
}

func validatePermissions(perms []string) error {
	if len(perms) == 0 {
		return fmt.Errorf("%w: a role requires at least one permission", ErrValidation)
	}
	if unknown := UnknownPermissions(perms); len(unknown) > 0 {
		return fmt.Errorf("%w: unknown permission(s): %s", ErrValidation, strings.Join(unknown, ", "))
	}
	return nil
}

func normalizePermissionSet(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
