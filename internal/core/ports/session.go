package ports

import (
	"context"
	"time"

	"github.com/nexus-app/marketplace/internal/pkg/token"
)

// SessionRevoker records logged-out tokens until they would have expired.
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenValidator checks a bearer token and returns the identity it proves.
type TokenValidator interface {
	Validate(raw string) (token.Identity, error)
}

// TokenIssuer mints session tokens. A zero ttl selects the configured default.
type TokenIssuer interface {
	Issue(subject, role string, ttl time.Duration) (token.Token, error)
}
