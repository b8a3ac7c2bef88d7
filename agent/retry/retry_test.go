package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   8 * time.Millisecond,
		Jitter:     false,
	}
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	result, attempts, err := Do(context.Background(), testPolicy(), "test.op", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(KindRateLimit, errors.New("rate limited"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if result != "ok" {
		t.Fatalf("Do() result = %q, want %q", result, "ok")
	}
	if attempts != 3 {
		t.Fatalf("Do() attempts = %d, want 3", attempts)
	}
}

func TestDoTerminalFailureDoesNotRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	_, attempts, err := Do(context.Background(), testPolicy(), "test.op", func(ctx context.Context) (int, error) {
		calls++
		return 0, Terminal(KindAuth, errors.New("bad key"))
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 1 || attempts != 1 {
		t.Fatalf("calls = %d, attempts = %d, want 1 and 1", calls, attempts)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *ExhaustedError", err)
	}
	if exhausted.Kind != KindAuth {
		t.Fatalf("kind = %s, want %s", exhausted.Kind, KindAuth)
	}
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	policy := testPolicy()
	calls := 0
	_, attempts, err := Do(context.Background(), policy, "test.op", func(ctx context.Context) (int, error) {
		calls++
		return 0, Transient(KindServer, errors.New("502"))
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	// One initial attempt plus exactly MaxRetries retries.
	if want := policy.MaxRetries + 1; calls != want || attempts != want {
		t.Fatalf("calls = %d, attempts = %d, want %d", calls, attempts, want)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *ExhaustedError", err)
	}
	if exhausted.Attempts != policy.MaxRetries+1 {
		t.Fatalf("exhausted attempts = %d, want %d", exhausted.Attempts, policy.MaxRetries+1)
	}
	if exhausted.Kind != KindServer {
		t.Fatalf("kind = %s, want %s", exhausted.Kind, KindServer)
	}
}

func TestDoUnclassifiedErrorIsTerminal(t *testing.T) {
	t.Parallel()

	calls := 0
	_, _, err := Do(context.Background(), testPolicy(), "test.op", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("something odd")
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if KindOf(err) != KindUnknown {
		t.Fatalf("kind = %s, want %s", KindOf(err), KindUnknown)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, _, err := Do(ctx, policy, "test.op", func(ctx context.Context) (int, error) {
			calls++
			return 0, Transient(KindTimeout, errors.New("timeout"))
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do() did not return after context cancellation")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestNextDelayMonotonicAndCapped(t *testing.T) {
	t.Parallel()

	policy := Policy{
		MaxRetries: 10,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Jitter:     false,
	}

	prev := time.Duration(0)
	for attempt := 0; attempt < 10; attempt++ {
		d := policy.nextDelay(attempt)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		if d > policy.MaxDelay {
			t.Fatalf("delay %v exceeds cap %v at attempt %d", d, policy.MaxDelay, attempt)
		}
		prev = d
	}
	if policy.nextDelay(9) != policy.MaxDelay {
		t.Fatalf("late delays should saturate at the cap, got %v", policy.nextDelay(9))
	}
}

func TestNextDelayJitterStaysWithinBounds(t *testing.T) {
	t.Parallel()

	policy := Policy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Jitter:     true,
	}

	for i := 0; i < 200; i++ {
		for attempt := 0; attempt < 6; attempt++ {
			base := Policy{BaseDelay: policy.BaseDelay, MaxDelay: policy.MaxDelay}.nextDelay(attempt)
			d := policy.nextDelay(attempt)
			if d < base/2 || d > base {
				t.Fatalf("jittered delay %v outside [%v, %v] at attempt %d", d, base/2, base, attempt)
			}
		}
	}
}

func TestKindOfUnwrapsNestedErrors(t *testing.T) {
	t.Parallel()

	err := Transient(KindRateLimit, errors.New("429"))
	wrapped := errors.Join(errors.New("outer"), err)
	if !IsTransient(wrapped) {
		t.Fatal("expected wrapped transient error to be transient")
	}
	if KindOf(wrapped) != KindRateLimit {
		t.Fatalf("kind = %s, want %s", KindOf(wrapped), KindRateLimit)
	}
}
