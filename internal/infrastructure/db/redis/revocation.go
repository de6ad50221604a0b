package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/pkg/clock"
)

// SessionDenylist records revoked token IDs until the token would have expired.
// Key format: revoked:<jti>
type SessionDenylist struct {
	client *redis.Client
	clock  clock.Clock
}

func NewSessionDenylist(client *redis.Client, clk clock.Clock) *SessionDenylist {
	if clk == nil {
		clk = clock.System{}
	}
	return &SessionDenylist{client: client, clock: clk}
}

// Revoke denies tokenID until the given instant. Already expired tokens are ignored.
func (d *SessionDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been logged out.
func (d *SessionDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w: %v", domain.ErrStorageUnavailable, err)
	}
	return n > 0, nil
}

func (d *SessionDenylist) key(tokenID string) string {
	return "revoked:" + tokenID
}
