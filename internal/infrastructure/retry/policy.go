// Package retry implements the collector rate limiter and retry policy
// (C3): bounded exponential backoff around a single collector call,
// short-circuiting on non-retryable error kinds and honouring a server's
// Retry-After hint for 429s, mirroring the original collector's
// max-retries/initial-delay/max-delay/base tuning.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	maxRetries   = 3
	initialDelay = 1 * time.Second
	maxDelay     = 60 * time.Second
	backoffBase  = 2.0
)

// Policy wraps a collector call with bounded exponential backoff.
type Policy struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Policy {
	return &Policy{logger: logger.Named("retry")}
}

// Execute runs fn, retrying up to maxRetries times on error per the C3
// classification table: Authentication/DataFormat/ClientError fail
// immediately without retrying; RateLimited honours the response's
// Retry-After hint (capped at maxDelay); every other retryable kind backs
// off exponentially (initial * base^attempt, capped at maxDelay). After
// the final failure the original error is re-raised.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	b.MaxInterval = maxDelay
	b.Multiplier = backoffBase
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		kind := Classify(lastErr)
		if !kind.Retryable() {
			return lastErr
		}
		if attempt >= maxRetries {
			return lastErr
		}

		delay := b.NextBackOff()
		if kind == KindRateLimited {
			if hint := retryAfterHint(lastErr); hint > 0 {
				delay = hint
				if delay > maxDelay {
					delay = maxDelay
				}
			}
		}

		p.logger.Warn("collector call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.String("error_kind", string(kind)),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func retryAfterHint(err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	return 0
}
