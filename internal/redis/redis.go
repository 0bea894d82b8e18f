package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coderunner/coderunner/api/internal/config"
	"github.com/redis/go-redis/v9"
)

// Redis channels
const (
	ChannelWebSocket = "websocket"
)

// Log buffer bounds
const (
	logKeyPrefix  = "deployment:logs:"
	maxBufferedLogs = 1000
)

var (
	client *redis.Client
	once   sync.Once
)

// Initialize sets up the Redis client and tests the connection
func Initialize(cfg *config.Config) error {
	var initErr error
	once.Do(func() {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       0,
		})

		// Test connection
		ctx := context.Background()
		if err := client.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("failed to connect to Redis: %w", err)
		}
	})
	return initErr
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// SetClient sets the Redis client (for testing purposes only)
func SetClient(c *redis.Client) {
	client = c
}

// PublishWebSocketMessage publishes a message to the WebSocket channel
func PublishWebSocketMessage(ctx context.Context, roomID string, data interface{}) error {
	message, err := json.Marshal(map[string]interface{}{
		"roomId": roomID,
		"data":   data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal websocket message: %w", err)
	}

	return client.Publish(ctx, ChannelWebSocket, message).Err()
}

// AppendDeploymentLogs pushes log lines onto the deployment's bounded
// log buffer, trimming the oldest entries past the cap
func AppendDeploymentLogs(ctx context.Context, deploymentID string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	key := logKeyPrefix + deploymentID

	values := make([]interface{}, len(lines))
	for i, line := range lines {
		values[i] = line
	}

	pipe := client.Pipeline()
	pipe.LPush(ctx, key, values...)
	pipe.LTrim(ctx, key, 0, maxBufferedLogs-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append deployment logs: %w", err)
	}
	return nil
}

// GetRecentLogs returns up to limit of the most recent log lines for a
// deployment, newest first
func GetRecentLogs(ctx context.Context, deploymentID string, limit int) ([]string, error) {
	if limit <= 0 || limit > maxBufferedLogs {
		limit = maxBufferedLogs
	}
	key := logKeyPrefix + deploymentID

	lines, err := client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment logs: %w", err)
	}
	return lines, nil
}

// ClearDeploymentLogs drops the log buffer for a deployment
func ClearDeploymentLogs(ctx context.Context, deploymentID string) error {
	return client.Del(ctx, logKeyPrefix+deploymentID).Err()
}
