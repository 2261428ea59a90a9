package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
	"github.com/zatekoja/keywordscout/pkg/retry"
)

// Client wraps the go-redis client shared by the response cache, the query
// embedding cache and the progress bus
type Client struct {
	client *redis.Client
}

// NewClient connects to Redis and waits until the server answers. Redis is
// optional for the API, so the wait is bounded by a shorter budget than the
// stores it cannot run without.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	logger := observability.LoggerFromContext(ctx)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	policy := retry.DefaultConfig()
	policy.MaxAttempts = 5
	policy.MaxTotalTimeout = 15 * time.Second

	err := retry.DoWithLog(ctx, policy, "Redis",
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return classify(client.Ping(pingCtx).Err())
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Redis connection attempt failed")
		},
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("addr", cfg.RedisAddr()).Int("db", cfg.DB).Msg("Connected to Redis")
	return &Client{client: client}, nil
}

// NewFromClient wraps an already configured go-redis client
func NewFromClient(client *redis.Client) *Client {
	return &Client{client: client}
}

// classify stops retrying on credential errors; waiting will not fix them
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") {
		return retry.Permanent(err)
	}
	return err
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
