package tts

import (
	"context"
	"math/rand"
	"time"

	"github.com/nathanvale/mnemosyne-sub011/pkg/logger"
)

// RetryPolicy bounds the attempt loop for one backend call. The ceiling
// is the visible contract; exact backoff timing is not.
type RetryPolicy struct {
	MaxAttempts int             // total attempts, including the first
	Backoffs    []time.Duration // delay before retry n+1; last value repeats
	MaxJitter   time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries transient failures three times after the
// initial attempt, with capped exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		Backoffs:    []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		MaxJitter:   250 * time.Millisecond,
	}
}

// withRetry runs fn until it succeeds, a terminal error is classified,
// or the attempt ceiling is reached. The returned SpeechError is the
// classified last failure. Attempts serialize for this one call only;
// unrelated Speak calls are never blocked.
func withRetry(ctx context.Context, policy RetryPolicy, provider string, fn func(ctx context.Context) ([]byte, error)) ([]byte, *SpeechError) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	var lastErr *SpeechError
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ClassifyError(context.DeadlineExceeded, provider)
		}

		data, err := fn(ctx)
		if err == nil {
			return data, nil
		}

		serr := ClassifyError(err, provider)
		if serr == nil {
			// Context canceled mid-attempt: report the last real
			// failure if there was one.
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, &SpeechError{Reason: FailureUnknown, Provider: provider, Wrapped: err}
		}
		lastErr = serr

		if !serr.IsRetriable() || attempt == policy.MaxAttempts {
			return nil, lastErr
		}

		delay := policy.backoff(attempt - 1)
		logger.DebugCF("tts", "Retrying after transient failure", map[string]any{
			"provider": provider,
			"attempt":  attempt,
			"of":       policy.MaxAttempts,
			"reason":   string(serr.Reason),
			"delay":    delay.String(),
		})
		if err := sleep(ctx, delay); err != nil {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func (p RetryPolicy) backoff(retry int) time.Duration {
	if len(p.Backoffs) == 0 {
		return 0
	}
	if retry >= len(p.Backoffs) {
		retry = len(p.Backoffs) - 1
	}
	base := p.Backoffs[retry]
	if p.MaxJitter <= 0 {
		return base
	}
	//nolint:gosec // jitter only
	return base + time.Duration(rand.Int63n(int64(p.MaxJitter)+1))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
