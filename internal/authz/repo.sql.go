package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	pgxconn "github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-app/lyceum/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for roles.
//
// Schema:
//
//	CREATE TABLE roles (
//	    id             BIGSERIAL PRIMARY KEY,
//	    name           TEXT NOT NULL,
//	    canonical_name TEXT NOT NULL,
//	    description    TEXT NOT NULL DEFAULT '',
//	    is_system      BOOLEAN NOT NULL DEFAULT FALSE,
//	    permissions    TEXT[] NOT NULL DEFAULT '{}',
//	    created_by     BIGINT NOT NULL DEFAULT 0,
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE UNIQUE INDEX uq_roles_canonical_name ON roles (canonical_name);
//
// The unique index is what makes concurrent createRole calls resolve to
// exactly one success and one conflict; the engine never does a
// check-then-insert.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, canonical_name, description, is_system, permissions, created_by, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var canonical string
	if err := row.Scan(&role.ID, &role.Name, &canonical, &role.Description, &role.IsSystem, &role.Permissions, &role.CreatedBy, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	role.Canonical = RoleName(canonical)
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return roles, nil
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return role, nil
}

// GetRoleByName fetches a role by its canonical name.
func (r *Repository) GetRoleByName(ctx context.Context, name RoleName) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE canonical_name = $1`, string(name)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return role, nil
}

// InsertRole inserts a new role. A canonical-name collision surfaces as
// ErrConflict via the unique index.
func (r *Repository) InsertRole(ctx context.Context, role Role) (Role, error) {
	created, err := scanRole(r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, canonical_name, description, is_system, permissions, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+roleColumns,
		role.Name, string(role.Canonical), role.Description, role.IsSystem, role.Permissions, role.CreatedBy))
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("%w: role %q already exists", ErrConflict, role.Name)
		}
		return Role{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return created, nil
}

// UpdateRole persists name, description and permissions for a role.
func (r *Repository) UpdateRole(ctx context.Context, role Role) (Role, error) {
	updated, err := scanRole(r.pool.QueryRow(ctx,
		`UPDATE roles
		 SET name = $2, canonical_name = $3, description = $4, permissions = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+roleColumns,
		role.ID, role.Name, string(role.Canonical), role.Description, role.Permissions))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Role{}, fmt.Errorf("%w: role %q already exists", ErrConflict, role.Name)
		}
		return Role{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return updated, nil
}

// DeleteRole removes a role by ID. Returns ErrNotFound if nothing was deleted.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertSystemRoles seeds the system roles at process start inside one
// transaction, so a partially seeded role table is never observable.
// Descriptions and permissions follow the code-defined catalog.
func (r *Repository) UpsertSystemRoles(ctx context.Context, roles []Role) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, role := range roles {
			_, err := tx.Exec(ctx,
				`INSERT INTO roles (name, canonical_name, description, is_system, permissions)
				 VALUES ($1, $2, $3, TRUE, $4)
				 ON CONFLICT (canonical_name)
				 DO UPDATE SET description = EXCLUDED.description, permissions = EXCLUDED.permissions, updated_at = NOW()`,
				role.Name, string(role.Canonical), role.Description, role.Permissions)
			if err != nil {
				return fmt.Errorf("seed role %s: %w", role.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var v5Err *pgxconn.PgError
	if errors.As(err, &v5Err) {
		return v5Err.Code == "23505"
	}
	// Older call sites still surface the v4-era pgconn error type.
	var legacyErr *pgconn.PgError
	if errors.As(err, &legacyErr) {
		return legacyErr.Code == "23505"
	}
	return false
}
