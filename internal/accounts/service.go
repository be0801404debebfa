// Package accounts exposes account administration: listing principals
// and updating their profile, including role assignment.
package accounts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/identity"
)

// RepositoryPort is the persistence contract the service needs.
type RepositoryPort interface {
	ListAccounts(ctx context.Context) ([]identity.Account, error)
	FindByID(ctx context.Context, id int64) (identity.Account, error)
	UpdateProfile(ctx context.Context, id int64, name, role string) (identity.Account, error)
}

// RoleResolver validates that an assigned role actually exists.
type RoleResolver interface {
	ResolveRole(ctx context.Context, nameVariant string) (authz.Role, error)
}

// MutationAudit receives account mutation events.
type MutationAudit interface {
	Record(ctx context.Context, actorID int64, action, entity, entityID, detail string)
}

// Service applies account administration rules.
type Service struct {
	repo  RepositoryPort
	roles RoleResolver
	audit MutationAudit
}

// NewService constructs a Service. audit may be nil.
func NewService(repo RepositoryPort, roles RoleResolver, audit MutationAudit) *Service {
	return &Service{repo: repo, roles: roles, audit: audit}
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]identity.Account, error) {
	return s.repo.ListAccounts(ctx)
}

// Get returns one account by ID.
func (s *Service) Get(ctx context.Context, id int64) (identity.Account, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateInput carries the mutable profile fields. An empty Role keeps
// the current assignment.
type UpdateInput struct {
	Name string
	Role string
}

// Update persists profile changes. A role change must reference a role
// that exists, and is written to the audit log with old and new values.
func (s *Service) Update(ctx context.Context, actor authz.Principal, id int64, input UpdateInput) (identity.Account, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return identity.Account{}, err
	}
	name := input.Name
	if name == "" {
		name = current.Name
	}
	role := current.Role
	roleChanged := false
	if input.Role != "" {
		canonical := authz.CanonicalRole(input.Role)
		if _, err := s.roles.ResolveRole(ctx, input.Role); err != nil {
			return identity.Account{}, fmt.Errorf("%w: unknown role %q", authz.ErrValidation, input.Role)
		}
		roleChanged = canonical != authz.CanonicalRole(current.Role)
		role = input.Role
	}
	updated, err := s.repo.UpdateProfile(ctx, id, name, role)
	if err != nil {
		return identity.Account{}, err
	}
	if roleChanged && s.audit != nil {
		detail := fmt.Sprintf("role %s -> %s", authz.CanonicalRole(current.Role), authz.CanonicalRole(role))
		s.audit.Record(ctx, actor.ID, "account.role_changed", "account", strconv.FormatInt(id, 10), detail)
	}
	return updated, nil
}
