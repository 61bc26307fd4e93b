package leaderelection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaseKey = "dialogmotekandidat:leader"

// RedisElector holds a lease in Redis for deployments without an elector
// sidecar. The instance that first sets the lease key owns leadership until
// the lease expires; the owner extends it on every check.
type RedisElector struct {
	client     *redis.Client
	instanceID string
	ttl        time.Duration
}

// NewRedisElector connects to Redis and verifies the connection before the
// first leadership check.
func NewRedisElector(ctx context.Context, redisURL string, ttl time.Duration) (*RedisElector, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = fmt.Sprintf("pid-%d", os.Getpid())
	}
	return &RedisElector{client: client, instanceID: hostname, ttl: ttl}, nil
}

func (e *RedisElector) IsLeader(ctx context.Context) (bool, error) {
	acquired, err := e.client.SetNX(ctx, leaseKey, e.instanceID, e.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire leader lease: %w", err)
	}
	if acquired {
		return true, nil
	}

	owner, err := e.client.Get(ctx, leaseKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Lease expired between SetNX and Get; next poll decides.
			return false, nil
		}
		return false, fmt.Errorf("read leader lease: %w", err)
	}
	if owner != e.instanceID {
		return false, nil
	}

	// Still the owner; extend the lease for the next interval.
	if err := e.client.PExpire(ctx, leaseKey, e.ttl).Err(); err != nil {
		return false, fmt.Errorf("extend leader lease: %w", err)
	}
	return true, nil
}

// Close releases the Redis connection.
func (e *RedisElector) Close() error {
	return e.client.Close()
}
