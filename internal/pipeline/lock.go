// internal/pipeline/lock.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"idea-eval-workers/internal/common/logger"
)

// RunLock serializes pipeline runs per evaluation across worker instances.
// The TTL bounds how long a crashed run can block reprocessing; the database
// claim (status plus version) remains the source of truth.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRunLock(client *redis.Client, ttlSeconds int, log logger.Logger) *RunLock {
	if ttlSeconds <= 0 {
		ttlSeconds = 600
	}
	return &RunLock{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		logger: log.WithFields(map[string]interface{}{"component": "run_lock"}),
	}
}

func lockKey(evaluationID string) string {
	return fmt.Sprintf("pipeline:run:%s", evaluationID)
}

// Acquire takes the per-evaluation lock. Returns the release token and
// whether the lock was obtained.
func (l *RunLock) Acquire(ctx context.Context, evaluationID string) (string, bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, lockKey(evaluationID), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire run lock: %w", err)
	}
	return token, ok, nil
}

// Release drops the lock if the token still owns it. A lock that expired and
// was re-acquired by another run is left alone.
func (l *RunLock) Release(ctx context.Context, evaluationID, token string) {
	const script = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0`
	if err := l.client.Eval(ctx, script, []string{lockKey(evaluationID)}, token).Err(); err != nil && err != redis.Nil {
		l.logger.WithError(err).Warn("run lock release failed", map[string]interface{}{
			"evaluationId": evaluationID,
		})
	}
}
