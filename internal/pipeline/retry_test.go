// internal/pipeline/retry_test.go
package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "idea-eval-workers/internal/common/errors"
	"idea-eval-workers/internal/common/logger"
)

func testPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryEventualSuccess(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), logger.NewTestLogger(t), "extraction", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("still broken")
	err := testPolicy(3).Do(context.Background(), logger.NewTestLogger(t), "scoring", func(ctx context.Context) error {
		calls++
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestRetryNonRetryableShortCircuits(t *testing.T) {
	calls := 0
	err := testPolicy(5).Do(context.Background(), logger.NewTestLogger(t), "synthesis", func(ctx context.Context) error {
		calls++
		return apperrors.NewPlanValidationError("bad plan")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := testPolicy(10).Do(ctx, logger.NewTestLogger(t), "extraction", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryPolicyBounds(t *testing.T) {
	p := DefaultRetryPolicy(0, 0)
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, p.BaseDelay)

	p = DefaultRetryPolicy(4, 500)
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
}
