// Package retry runs storage operations with bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how long and how often an operation is retried.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy retries three times starting at 100ms.
var DefaultPolicy = Policy{MaxRetries: 3, InitialInterval: 100 * time.Millisecond, MaxInterval: 2 * time.Second}

// Do calls fn until it succeeds, returns an error retryable rejects, the
// retry budget is spent, or ctx is done. notify, when non-nil, is called
// before each wait.
func Do(
	ctx context.Context,
	p Policy,
	retryable func(error) bool,
	fn func(context.Context) error,
	notify func(err error, wait time.Duration),
) error {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)

	op := func() error {
		err := fn(ctx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, b, notify)
}
