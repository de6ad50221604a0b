package ports

import (
	"context"

	"github.com/nexus-app/marketplace/internal/core/domain"
)

// VerificationStrategy gates account creation for one account kind. It runs
// before any entity is built, so a rejection leaves no trace in storage.
type VerificationStrategy interface {
	Verify(ctx context.Context, reg domain.Registration) (bool, error)
	// FailureReason is the user-facing explanation for a rejection.
	FailureReason() string
}
