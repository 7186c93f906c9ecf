// Package cache provides the distributed estimate cache backed by Redis,
// guarded by a circuit breaker so cache outages degrade to compute-only
// operation instead of failing predictions.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ivf-outcome-server/internal/domain"
)

const keyPrefix = "prediction:estimate:"

// RedisCache caches computed estimates keyed by a fingerprint of the
// canonical input. All operations are best-effort.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewRedisCache connects to Redis using the configured URL and verifies the
// connection with a ping.
func NewRedisCache(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.MaxRetries = cfg.MaxRetries
	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	})

	return &RedisCache{
		client:  client,
		breaker: breaker,
		ttl:     cfg.DefaultTTL,
		logger:  logger,
	}, nil
}

// GetEstimate looks up a cached estimate for the input. A miss, a decode
// failure, or an open breaker all report a miss.
func (c *RedisCache) GetEstimate(ctx context.Context, in domain.TransferInput) (*domain.OutcomeEstimate, bool) {
	key := cacheKey(in)

	payload, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("key", key).Debug("Cache get failed")
		}
		return nil, false
	}

	var est domain.OutcomeEstimate
	if err := json.Unmarshal(payload.([]byte), &est); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		return nil, false
	}
	return &est, true
}

// SetEstimate stores the estimate under the input's fingerprint. Failures
// are logged and swallowed.
func (c *RedisCache) SetEstimate(ctx context.Context, in domain.TransferInput, est domain.OutcomeEstimate) {
	key := cacheKey(in)

	payload, err := json.Marshal(est)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to encode estimate for cache")
		return
	}

	if _, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, payload, c.ttl).Err()
	}); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Cache set failed")
	}
}

// Healthy reports whether Redis answers a ping within the context deadline.
func (c *RedisCache) Healthy(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// cacheKey fingerprints the canonical input form. Hashing keeps keys a
// fixed length and avoids leaking raw clinical parameters into key listings.
func cacheKey(in domain.TransferInput) string {
	sum := sha256.Sum256([]byte(domain.EngineVersion + "|" + in.Canonical()))
	return keyPrefix + hex.EncodeToString(sum[:])
}
