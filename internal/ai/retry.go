package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
}

var defaultRetry = retryPolicy{maxRetries: 2, baseDelay: 500 * time.Millisecond}

// do runs op until it succeeds, fails permanently or the retries run out.
// Only recoverable provider errors are retried.
func (p retryPolicy) do(ctx context.Context, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.baseDelay
	exp.Multiplier = 2
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.maxRetries)), ctx)
	return backoff.Retry(func() error {
		err := op()
		var pe *ProviderError
		if err != nil && errors.As(err, &pe) && !pe.recoverable() {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
