package ports

import (
	"context"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/pkg/token"
)

// AccountService is the account use-case layer: registration, login and profiles.
type AccountService interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	Register(ctx context.Context, kind string, reg domain.Registration) (domain.Account, error)
	// Authenticate returns domain.ErrInvalidCredentials for both an unknown
	// username and a wrong password.
	Authenticate(ctx context.Context, username, password string) (domain.Account, error)
	IssueSessionToken(ctx context.Context, acc domain.Account) (token.Token, error)
	Account(ctx context.Context, username string) (domain.Account, error)
	Profile(ctx context.Context, username string) (domain.Profile, error)
	Logout(ctx context.Context, session token.Identity) error
}
