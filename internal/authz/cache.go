package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoleCache is a short-TTL read cache over the role store, backed by
// Redis. The TTL is measured in seconds so a revoked permission cannot
// outlive invalidation for long even if an explicit Invalidate is lost.
type RoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoleCache constructs a RoleCache. A zero ttl falls back to 30s.
func NewRoleCache(client *redis.Client, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RoleCache{client: client, ttl: ttl}
}

type cachedRole struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Canonical   string    `json:"canonical"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	Permissions []string  `json:"permissions"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Get returns the cached role, if present. Cache errors read as misses.
func (c *RoleCache) Get(ctx context.Context, canonical RoleName) (Role, bool) {
	payload, err := c.client.Get(ctx, roleKey(canonical)).Bytes()
	if err != nil {
		return Role{}, false
	}
	var stored cachedRole
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Role{}, false
	}
	return Role{
		ID:          stored.ID,
		Name:        stored.Name,
		Canonical:   RoleName(stored.Canonical),
		Description: stored.Description,
		IsSystem:    stored.IsSystem,
		Permissions: stored.Permissions,
		CreatedBy:   stored.CreatedBy,
		CreatedAt:   stored.CreatedAt,
		UpdatedAt:   stored.UpdatedAt,
	}, true
}

// Put stores the role under its canonical name.
func (c *RoleCache) Put(ctx context.Context, role Role) {
	data, err := json.Marshal(cachedRole{
		ID:          role.ID,
		Name:        role.Name,
		Canonical:   string(role.Canonical),
		Description: role.Description,
		IsSystem:    role.IsSystem,
		Permissions: role.Permissions,
		CreatedBy:   role.CreatedBy,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, roleKey(role.Canonical), data, c.ttl).Err()
}

// Invalidate drops the cached entry for the canonical name.
func (c *RoleCache) Invalidate(ctx context.Context, canonical RoleName) error {
	err := c.client.Del(ctx, roleKey(canonical)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func roleKey(canonical RoleName) string {
	return "authz:role:" + string(canonical)
}
