package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sprint-estimator/internal/domain"
)

func noSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, Sleep: noSleep(&slept)}

	calls := 0
	out, err := WithRetry(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("429 Too Many Requests")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" || calls != 3 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
	// Exponential backoff: 1s then 2s.
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("backoff waits = %v", slept)
	}
}

func TestWithRetry_QuotaShortCircuits(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, Sleep: noSleep(&slept)}

	calls := 0
	_, err := WithRetry(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("You exceeded your current quota")
	})
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("want ErrQuotaExceeded, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("quota error retried: %d calls", calls)
	}
	if len(slept) != 0 {
		t.Fatalf("quota error slept: %v", slept)
	}
	// The message tells the operator retrying is pointless and what to do.
	if !strings.Contains(err.Error(), "retrying will not help") ||
		!strings.Contains(err.Error(), "different model or provider") {
		t.Fatalf("quota message lacks reconfiguration guidance: %v", err)
	}
}

func TestWithRetry_SuggestedDelayWins(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 3, BaseDelay: time.Minute, Sleep: noSleep(&slept)}

	calls := 0
	_, _ = WithRetry(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("429 Too Many Requests, please retry in 250ms")
		}
		return "ok", nil
	})
	if len(slept) != 1 || slept[0] != 250*time.Millisecond {
		t.Fatalf("suggested delay not honored: %v", slept)
	}
}

func TestWithRetry_NonRetriablePropagates(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, Sleep: noSleep(&[]time.Duration{})}

	calls := 0
	_, err := WithRetry(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("invalid request body")
	})
	if err == nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestWithRetry_AttemptsExhausted(t *testing.T) {
	var slept []time.Duration
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: noSleep(&slept)}

	calls := 0
	_, err := WithRetry(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("503 Service Unavailable")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 {
		t.Fatalf("waits = %d, want 2", len(slept))
	}
}
