package ports

import (
	"context"

	"github.com/nexus-app/marketplace/internal/core/domain"
)

// AccountRepository persists accounts of every kind. Uniqueness of username,
// email, phone number and ABN is enforced by the store itself.
type AccountRepository interface {
	// Insert persists a new account. A unique constraint rejection is reported
	// as *domain.ConflictError; transient failures wrap domain.ErrStorageUnavailable.
	Insert(ctx context.Context, acc domain.Account) error
	// FindByUsername returns the concrete account variant or domain.ErrAccountNotFound.
	FindByUsername(ctx context.Context, username string) (domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
