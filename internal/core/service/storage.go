package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/pkg/retry"
)

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrStorageUnavailable)
}

// withStorageRetry runs fn, retrying only transient storage failures.
// Constraint violations and not-found results return on the first attempt.
func withStorageRetry(ctx context.Context, p retry.Policy, log zerolog.Logger, op string, fn func(context.Context) error) error {
	return retry.Do(ctx, p, isTransient, fn, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("op", op).Dur("backoff", wait).Msg("transient storage error, retrying")
	})
}
