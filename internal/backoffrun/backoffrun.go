// Package backoffrun wraps github.com/cenkalti/backoff/v4 into the single
// retry primitive the rest of the module calls: Run(ctx, fn, maxAttempts,
// name). Classifies, logs, and retries with jittered exponential backoff,
// delegating the wait schedule itself to the library.
package backoffrun

import (
	"context"
	"math/rand"
	"time"

	backoffv4 "github.com/cenkalti/backoff/v4"

	"github.com/elly-po/pumpsniper/internal/errkind"
)

const (
	defaultInitialDelay = 500 * time.Millisecond
	maxJitter           = 150 * time.Millisecond
)

// Op is a unit of retriable work. It returns the classified error so the
// runner can decide whether to retry.
type Op func(ctx context.Context) error

// Run executes fn, retrying up to maxAttempts times on retriable errors
// (errkind.IsRetriable) with exponential backoff doubling from initialDelay
// (falling back to 500ms when initialDelay is zero) plus up to 150ms of
// jitter per wait, per component §4.2. Non-retriable errors propagate
// immediately. Exhausting maxAttempts returns a RetriesExhausted error
// wrapping the last cause.
func Run(ctx context.Context, fn Op, maxAttempts int, initialDelay time.Duration, name string) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = defaultInitialDelay
	}

	b := backoffv4.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock
	bc := backoffv4.WithContext(b, ctx)

	var lastErr error
	attempt := 0
	for {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !errkind.IsRetriable(err) {
			return err
		}
		if attempt >= maxAttempts {
			return errkind.Wrap(errkind.RetriesExhausted, name, lastErr)
		}

		delay := bc.NextBackOff()
		if delay == backoffv4.Stop {
			return errkind.Wrap(errkind.RetriesExhausted, name, lastErr)
		}
		jitter := time.Duration(rand.Int63n(int64(maxJitter)))
		timer := time.NewTimer(delay + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
