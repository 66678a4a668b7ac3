// Package retry provides the bounded retry policy applied to every source
// attempt. Callers never implement retry loops themselves: they hand the
// operation to Execute and get back the attempt count and final error.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// Policy classifies errors and retries transient failures with exponential
// backoff plus jitter, up to MaxAttempts total attempts. Permanent and
// corrupt failures propagate on first occurrence. The policy holds no state
// across calls; attempt counting is local to each Execute.
type Policy struct {
	MaxAttempts         int
	InitialDelay        time.Duration
	MaxDelay            time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// Default returns the engine's standard policy: 3 attempts, 500ms initial
// delay doubling to a 15s cap, +/-50% jitter.
func Default() *Policy {
	return &Policy{
		MaxAttempts:         3,
		InitialDelay:        500 * time.Millisecond,
		MaxDelay:            15 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// Execute runs fn, retrying transient failures until success, the attempt
// cap, or context cancellation. It returns the number of attempts actually
// made and the final error. Total wall clock never exceeds the caller's
// context deadline: backoff sleeps abort promptly on cancellation.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialDelay
	bo.MaxInterval = p.MaxDelay
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = p.RandomizationFactor
	bo.MaxElapsedTime = 0 // bounded by attempt cap and ctx, not elapsed time

	capped := backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1))

	attempts := 0
	op := func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if domain.Classify(err) == domain.KindNetworkTransient {
			return err
		}
		// Not-found and corrupt data never get better by retrying.
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(capped, ctx))
	return attempts, err
}
