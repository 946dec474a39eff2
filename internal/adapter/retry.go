package adapter

import (
	"context"
	"math"
	"math/rand"
	"time"

	"auroraai/internal/domain"
)

// retryConfig controls bounded retries for transient upstream failures
type retryConfig struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		MaxRetries:  2,
		BackoffBase: 200 * time.Millisecond,
		BackoffMax:  2 * time.Second,
	}
}

// retryInvoke runs fn until it succeeds, exhausts the retry budget, or
// returns a non-transient failure. Retry eligibility is decided from the
// structured failure reason, never from error text.
func retryInvoke(ctx context.Context, cfg retryConfig, fn func() (*domain.Response, domain.FailureReason, error)) (*domain.Response, domain.FailureReason, error) {
	var (
		resp   *domain.Response
		reason domain.FailureReason
		err    error
	)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(attempt, cfg.BackoffBase, cfg.BackoffMax)):
			case <-ctx.Done():
				return nil, domain.FailureTimeout, ctx.Err()
			}
		}

		resp, reason, err = fn()
		if err == nil {
			return resp, domain.FailureNone, nil
		}
		if !reason.Transient() {
			return nil, reason, err
		}
	}

	return nil, reason, err
}

// backoff is exponential with ±25% jitter
func backoff(attempt int, base, max time.Duration) time.Duration {
	d := base * time.Duration(math.Pow(2, float64(attempt-1)))
	if d > max {
		d = max
	}

	jitter := float64(d) * 0.25
	d += time.Duration((rand.Float64() - 0.5) * 2 * jitter)
	if d < 0 {
		d = base
	}
	return d
}
