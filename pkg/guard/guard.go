// Package guard runs fallible external calls with a bounded retry budget.
//
// A call is attempted once and, on a transient failure, exactly once more.
// Permanent failures and empty outcomes are never retried.
package guard

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultBackoff        = 250 * time.Millisecond
	DefaultAttemptTimeout = 8 * time.Second
)

// Policy bounds one guarded call.
type Policy struct {
	// Retries is the number of extra attempts after the first. Values above one are clamped.
	Retries uint64
	// Backoff is the pause between attempts.
	Backoff time.Duration
	// AttemptTimeout bounds each individual attempt. Zero disables it.
	AttemptTimeout time.Duration
}

// DefaultPolicy is one retry, a short pause and a per-attempt timeout
// that keeps a live voice turn bounded.
func DefaultPolicy() Policy {
	return Policy{Retries: 1, Backoff: DefaultBackoff, AttemptTimeout: DefaultAttemptTimeout}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Call runs fn under the policy and returns its value from the first successful attempt.
// The returned attempts count is how many times fn was invoked.
func Call[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, int, error) {
	var (
		out      T
		attempts int
	)

	retries := p.Retries
	if retries > 1 {
		retries = 1
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = time.Millisecond
	}

	b := retry.WithMaxRetries(retries, retry.NewConstant(backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++

		actx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}

		v, err := fn(actx)
		if err == nil {
			out = v
			return nil
		}
		if IsPermanent(err) || ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})
	return out, attempts, err
}
