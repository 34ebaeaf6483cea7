// Package retry wraps cenkalti/backoff for the startup dependency checks.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	initialInterval = 250 * time.Millisecond
	multiplier      = 2.0
	maxInterval     = 5 * time.Second
	randomization   = 0.5
)

// Permanent stops the retry loop and returns err as is.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Startup calls fn with exponential backoff until it succeeds, ctx is done,
// fn returns a Permanent error or maxElapsed passes.
func Startup(ctx context.Context, maxElapsed time.Duration, fn func(context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.Multiplier = multiplier
	exp.MaxInterval = maxInterval
	exp.RandomizationFactor = randomization
	exp.Reset()

	type unit struct{}
	op := func() (unit, error) {
		if err := ctx.Err(); err != nil {
			return unit{}, backoff.Permanent(err)
		}
		return unit{}, fn(ctx)
	}

	_, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(exp),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	return err
}
