package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether retrying err cannot help.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe) || errors.Is(err, ErrNotPublished) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// RetryPolicy bounds how often and how patiently a Source is retried.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// ExponentialBackoff doubles from base up to ceiling.
func ExponentialBackoff(base, ceiling time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base << uint(attempt-1)
		if d <= 0 || d > ceiling {
			return ceiling
		}
		return d
	}
}

// DefaultRetryPolicy makes three attempts, waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: ExponentialBackoff(time.Second, 30*time.Second)}
}

// RetryingSource retries transient failures of the wrapped Source.
type RetryingSource struct {
	Source
	policy RetryPolicy
	log    zerolog.Logger
}

func NewRetryingSource(src Source, policy RetryPolicy, log zerolog.Logger) *RetryingSource {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &RetryingSource{
		Source: src,
		policy: policy,
		log:    log.With().Str("component", "collector").Str("source", src.Name()).Logger(),
	}
}

func (r *RetryingSource) Open(ctx context.Context, session time.Time) (io.ReadCloser, string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		rc, name, err := r.Source.Open(ctx, session)
		if err == nil {
			return rc, name, nil
		}
		lastErr = err
		if IsPermanent(err) || attempt == r.policy.MaxAttempts {
			break
		}

		var wait time.Duration
		if r.policy.Backoff != nil {
			wait = r.policy.Backoff(attempt)
		}
		r.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", wait).Msg("open failed, retrying")
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(wait):
		}
	}
	if IsPermanent(lastErr) {
		return nil, "", lastErr
	}
	return nil, "", fmt.Errorf("all %d attempts failed: %w", r.policy.MaxAttempts, lastErr)
}
