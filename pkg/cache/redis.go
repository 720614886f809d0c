package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/daycarealert/daycarealert-go/pkg/config"
	"github.com/daycarealert/daycarealert-go/pkg/logging"
	"github.com/daycarealert/daycarealert-go/pkg/models"
)

// Cache is a read-through cache for the derived per-facility rows. A nil
// *Cache is valid and disables caching, so callers never branch on it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// New connects to Redis when caching is enabled. Returns nil (cache off)
// when cfg.Enabled is false.
func New(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, logger *logging.Logger) (*Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

func riskKey(operationID string) string   { return "risk:" + operationID }
func ratingKey(operationID string) string { return "rating:" + operationID }
func costKey(operationID string) string   { return "cost:" + operationID }

// GetRiskAnalysis returns the cached risk row, or nil on miss
func (c *Cache) GetRiskAnalysis(ctx context.Context, operationID string) *models.RiskAnalysis {
	var a models.RiskAnalysis
	if c.get(ctx, riskKey(operationID), &a) {
		return &a
	}
	return nil
}

// SetRiskAnalysis caches the risk row
func (c *Cache) SetRiskAnalysis(ctx context.Context, analysis *models.RiskAnalysis) {
	c.set(ctx, riskKey(analysis.OperationID), analysis)
}

// GetRating returns the cached rating row, or nil on miss
func (c *Cache) GetRating(ctx context.Context, operationID string) *models.Rating {
	var r models.Rating
	if c.get(ctx, ratingKey(operationID), &r) {
		return &r
	}
	return nil
}

// SetRating caches the rating row
func (c *Cache) SetRating(ctx context.Context, rating *models.Rating) {
	c.set(ctx, ratingKey(rating.OperationID), rating)
}

// GetCostEstimate returns the cached cost row, or nil on miss
func (c *Cache) GetCostEstimate(ctx context.Context, operationID string) *models.CostEstimate {
	var e models.CostEstimate
	if c.get(ctx, costKey(operationID), &e) {
		return &e
	}
	return nil
}

// SetCostEstimate caches the cost row
func (c *Cache) SetCostEstimate(ctx context.Context, estimate *models.CostEstimate) {
	c.set(ctx, costKey(estimate.OperationID), estimate)
}

// Invalidate drops all cached derived rows for a facility, called after
// the pipeline rewrites them
func (c *Cache) Invalidate(ctx context.Context, operationID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, riskKey(operationID), ratingKey(operationID), costKey(operationID)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed",
			logging.String("operation_id", operationID), logging.Err(err))
	}
}

// Close releases the Redis connection
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// get reports whether the key was present and decoded. Cache errors are
// logged and treated as misses.
func (c *Cache) get(ctx context.Context, key string, target any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.Warn("cache read failed", logging.String("key", key), logging.Err(err))
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		c.logger.Warn("cache entry corrupt", logging.String("key", key), logging.Err(err))
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", logging.String("key", key), logging.Err(err))
	}
}
