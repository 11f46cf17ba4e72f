// Package retry wraps collaborator calls in bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how fast a failing call is retried.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy retries three times starting at 500ms.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn until it succeeds, returns a permanent error, the retries are
// used up or ctx is done. The delay doubles after every attempt.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	if p.MaxDelay > 0 {
		exp.MaxInterval = p.MaxDelay
	}
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = &backoff.StopBackOff{}
	if p.MaxRetries > 0 {
		b = backoff.WithMaxRetries(exp, uint64(p.MaxRetries))
	}
	policy := backoff.WithContext(b, ctx)
	err := backoff.Retry(func() error { return fn(ctx) }, policy)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
