// Package retry wraps calls to the reasoning service with bounded retries,
// exponential backoff and jitter. Errors are classified as transient or
// terminal at the call site; only transient errors are retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Kind labels the failure class of a dependency error.
type Kind string

const (
	KindRateLimit  Kind = "rate_limit"
	KindTimeout    Kind = "timeout"
	KindServer     Kind = "server_error"
	KindAuth       Kind = "auth"
	KindBadRequest Kind = "bad_request"
	KindUnknown    Kind = "unknown"
)

// TransientError marks a failure expected to succeed on retry.
type TransientError struct {
	Kind Kind
	Err  error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// TerminalError marks a failure that retrying cannot fix.
type TerminalError struct {
	Kind Kind
	Err  error
}

func (e *TerminalError) Error() string { return e.Err.Error() }
func (e *TerminalError) Unwrap() error { return e.Err }

func Transient(kind Kind, err error) error { return &TransientError{Kind: kind, Err: err} }
func Terminal(kind Kind, err error) error  { return &TerminalError{Kind: kind, Err: err} }

// IsTransient reports whether err was classified as retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// KindOf extracts the failure kind; unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var t *TransientError
	if errors.As(err, &t) {
		return t.Kind
	}
	var f *TerminalError
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// ExhaustedError is returned after the retry budget is spent or a terminal
// failure is hit. It carries the last error's kind and the attempt count.
type ExhaustedError struct {
	Op       string
	Kind     Kind
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s) (%s): %v", e.Op, e.Attempts, e.Kind, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Policy controls the retry behavior of Do.
type Policy struct {
	MaxRetries int           `envconfig:"MAX_RETRIES" split_words:"true" default:"3"`
	BaseDelay  time.Duration `envconfig:"BASE_DELAY" split_words:"true" default:"1s"`
	MaxDelay   time.Duration `envconfig:"MAX_DELAY" split_words:"true" default:"30s"`
	Jitter     bool          `envconfig:"JITTER" split_words:"true" default:"true"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     true,
	}
}

// nextDelay computes the backoff before retry number attempt (0-based).
// Without jitter the sequence is non-decreasing and capped at MaxDelay;
// jitter keeps the delay in [d/2, d] so the cap still holds.
func (p Policy) nextDelay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		half := d / 2
		d = half + time.Duration(rand.Int63n(int64(half)+1))
	}
	return d
}

// Do invokes fn until it succeeds, fails terminally, or the retry budget is
// exhausted. It returns the result and the number of attempts made. The
// returned error, if any, is an *ExhaustedError; callers inspect it instead
// of catching anything further up.
func Do[T any](ctx context.Context, policy Policy, op string, fn func(context.Context) (T, error)) (T, int, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info().Str("op", op).Int("attempt", attempt+1).Msg("call recovered after retry")
			}
			return result, attempt + 1, nil
		}
		if !IsTransient(err) || attempt >= policy.MaxRetries {
			return zero, attempt + 1, &ExhaustedError{
				Op:       op,
				Kind:     KindOf(err),
				Attempts: attempt + 1,
				Err:      err,
			}
		}

		delay := policy.nextDelay(attempt)
		log.Warn().
			Str("op", op).
			Int("attempt", attempt+1).
			Int("max_retries", policy.MaxRetries).
			Dur("delay", delay).
			Str("kind", string(KindOf(err))).
			Err(err).
			Msg("transient failure, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, attempt + 1, &ExhaustedError{
				Op:       op,
				Kind:     KindOf(err),
				Attempts: attempt + 1,
				Err:      ctx.Err(),
			}
		case <-timer.C:
		}
	}
}
