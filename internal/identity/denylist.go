package identity

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist tracks revoked token IDs in Redis until their natural
// expiry. Logout is the only writer.
type Denylist struct {
	client *redis.Client
}

// NewDenylist constructs a Denylist.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks a token ID as revoked until expiresAt.
func (d *Denylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denyKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether the token ID has been revoked. A Redis
// error reads as revoked: the resolver fails closed.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) bool {
	if d == nil || d.client == nil {
		return false
	}
	n, err := d.client.Exists(ctx, denyKey(jti)).Result()
	if err != nil {
		return true
	}
	return n > 0
}

func denyKey(jti string) string {
	return "token:revoked:" + jti
}
