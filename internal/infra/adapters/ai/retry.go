// File: internal/infra/adapters/ai/retry.go
package ai

import (
	"context"
	"fmt"
	"time"

	"sprint-estimator/internal/domain"
)

// Policy controls retry behavior around one model call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnWait is invoked before each backoff sleep, for progress reporting.
	OnWait func(attempt int, delay time.Duration)
	// Sleep overrides the wait implementation in tests. Nil sleeps for real.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 5 * time.Second}
}

// WithRetry runs call, retrying transient failures with exponential backoff.
// A provider-suggested delay takes precedence over the computed backoff.
// Quota exhaustion fails immediately with domain.ErrQuotaExceeded.
func WithRetry[T any](ctx context.Context, p Policy, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 5 * time.Second
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = realSleep
	}

	for attempt := 0; ; attempt++ {
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}

		e := Classify(err)
		if e.Kind == KindQuota {
			return zero, fmt.Errorf("%w: %s (retrying will not help; switch to a different model or provider, or wait for the quota to reset)",
				domain.ErrQuotaExceeded, e.Message)
		}
		if !IsRetriable(e) || attempt+1 >= p.MaxAttempts {
			return zero, e
		}

		delay := e.SuggestedDelay
		if delay <= 0 {
			delay = p.BaseDelay * (1 << attempt)
		}
		if p.OnWait != nil {
			p.OnWait(attempt+1, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func realSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
