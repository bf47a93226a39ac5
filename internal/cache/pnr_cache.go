package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const pnrKeyPrefix = "pnr:"

// RedisPNRCache caches public PNR lookups. Entries are short-lived and deleted on every
// ledger write to the booking.
type RedisPNRCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisPNRCache connects to redisURL and verifies the connection
func NewRedisPNRCache(ctx context.Context, redisURL string, ttl time.Duration, logger *logrus.Logger) (*RedisPNRCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisPNRCacheWithClient(client, ttl, logger), nil
}

// NewRedisPNRCacheWithClient wraps an existing client
func NewRedisPNRCacheWithClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisPNRCache {
	return &RedisPNRCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached details and whether there was a usable entry
func (c *RedisPNRCache) Get(ctx context.Context, pnr string) (*models.BookingDetails, bool) {
	val, err := c.client.Get(ctx, pnrKeyPrefix+pnr).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("pnr", pnr).Warn("PNR cache read failed")
		}
		return nil, false
	}

	var details models.BookingDetails
	if err := json.Unmarshal(val, &details); err != nil {
		c.logger.WithError(err).WithField("pnr", pnr).Warn("Dropping undecodable PNR cache entry")
		c.client.Del(ctx, pnrKeyPrefix+pnr)
		return nil, false
	}
	return &details, true
}

// Set stores details for the configured TTL
func (c *RedisPNRCache) Set(ctx context.Context, pnr string, details *models.BookingDetails) {
	data, err := json.Marshal(details)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, pnrKeyPrefix+pnr, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("pnr", pnr).Warn("PNR cache write failed")
	}
}

// Invalidate drops the entry for pnr
func (c *RedisPNRCache) Invalidate(ctx context.Context, pnr string) {
	if err := c.client.Del(ctx, pnrKeyPrefix+pnr).Err(); err != nil {
		c.logger.WithError(err).WithField("pnr", pnr).Warn("PNR cache invalidation failed")
	}
}

// Ping checks the connection for the health endpoint
func (c *RedisPNRCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *RedisPNRCache) Close() error {
	return c.client.Close()
}

// NoopPNRCache is used when no Redis URL is configured
type NoopPNRCache struct{}

func (NoopPNRCache) Get(ctx context.Context, pnr string) (*models.BookingDetails, bool) {
	return nil, false
}

func (NoopPNRCache) Set(ctx context.Context, pnr string, details *models.BookingDetails) {}

func (NoopPNRCache) Invalidate(ctx context.Context, pnr string) {}
