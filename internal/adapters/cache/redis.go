package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const settledKeyPrefix = "settlement:settled:"

// Connect builds a Redis client from either a redis:// URL or a bare host:port
// and pings it.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisSettledTransactionCache flags transaction ids the ledger has already recorded.
type RedisSettledTransactionCache struct {
	client *redis.Client
}

func NewRedisSettledTransactionCache(client *redis.Client) *RedisSettledTransactionCache {
	return &RedisSettledTransactionCache{client: client}
}

func (c *RedisSettledTransactionCache) IsSettled(ctx context.Context, transactionID string) (bool, error) {
	n, err := c.client.Exists(ctx, settledKeyPrefix+transactionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisSettledTransactionCache) MarkSettled(ctx context.Context, transactionID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return c.client.Set(ctx, settledKeyPrefix+transactionID, "1", ttl).Err()
}
