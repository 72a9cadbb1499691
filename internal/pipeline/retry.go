// internal/pipeline/retry.go
package pipeline

import (
	"context"
	"math/rand"
	"time"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
)

// RetryPolicy bounds how often a pipeline stage is re-attempted. Attempts are
// capped, delays grow exponentially with jitter, and errors flagged as
// non-retryable short-circuit immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches service-level retry settings from config.
func DefaultRetryPolicy(maxRetries, baseDelayMillis int) RetryPolicy {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if baseDelayMillis <= 0 {
		baseDelayMillis = 200
	}
	return RetryPolicy{
		MaxAttempts: maxRetries,
		BaseDelay:   time.Duration(baseDelayMillis) * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Do runs op up to MaxAttempts times. Between attempts it sleeps with
// exponential backoff, honoring context cancellation. The last error is
// returned when all attempts fail.
func (p RetryPolicy) Do(ctx context.Context, log logger.Logger, stage string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if stdErr := apperrors.AsStandard(lastErr); stdErr != nil && !stdErr.Retryable {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.backoff(attempt)
		log.WithError(lastErr).Warn("stage attempt failed, retrying", map[string]interface{}{
			"stage":   stage,
			"attempt": attempt,
			"delayMs": delay.Milliseconds(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	// Up to 25% jitter to spread concurrent retries.
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
