package orchestrator

import (
	"context"

	"github.com/coderunner/coderunner/api/internal/redis"
)

// RedisLogBuffer adapts the Redis-backed deployment log buffer to the
// LogBuffer interface
type RedisLogBuffer struct{}

func (RedisLogBuffer) Append(ctx context.Context, deploymentID string, lines []string) error {
	return redis.AppendDeploymentLogs(ctx, deploymentID, lines)
}

func (RedisLogBuffer) Tail(ctx context.Context, deploymentID string, limit int) ([]string, error) {
	return redis.GetRecentLogs(ctx, deploymentID, limit)
}
