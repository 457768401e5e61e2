package mlapi

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clinsight-server/internal/domain"
)

// PredictionCache caches ML prediction payloads keyed by the feature set.
// An in-process LRU sits in front of Redis so repeated requests for the
// same features skip the network entirely.
type PredictionCache struct {
	redis      *redis.Client
	memory     *lru.Cache[string, cachedPrediction]
	defaultTTL time.Duration
}

type cachedPrediction struct {
	Data      map[string]interface{} `json:"data"`
	CachedAt  time.Time              `json:"cached_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(config domain.CacheConfig) (*PredictionCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	size := config.MemorySize
	if size <= 0 {
		size = 256
	}
	memory, err := lru.New[string, cachedPrediction](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &PredictionCache{
		redis:      client,
		memory:     memory,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// Get retrieves a cached prediction for a feature set.
func (c *PredictionCache) Get(ctx context.Context, features domain.ClinicalDataSet) (map[string]interface{}, bool, error) {
	key := generateFeatureKey(features)

	if cached, ok := c.memory.Get(key); ok {
		if time.Now().Before(cached.ExpiresAt) {
			return cached.Data, true, nil
		}
		c.memory.Remove(key)
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get prediction cache: %w", err)
	}

	var cached cachedPrediction
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	c.memory.Add(key, cached)
	return cached.Data, true, nil
}

// Set caches a prediction payload for a feature set.
func (c *PredictionCache) Set(ctx context.Context, features domain.ClinicalDataSet, data map[string]interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	key := generateFeatureKey(features)

	cached := cachedPrediction{
		Data:      data,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	c.memory.Add(key, cached)

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction cache data: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, ttl).Err()
}

// Invalidate removes the cached prediction for a feature set.
func (c *PredictionCache) Invalidate(ctx context.Context, features domain.ClinicalDataSet) error {
	key := generateFeatureKey(features)
	c.memory.Remove(key)
	return c.redis.Del(ctx, key).Err()
}

// Ping checks if Redis connection is alive
func (c *PredictionCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *PredictionCache) Close() error {
	c.memory.Purge()
	return c.redis.Close()
}

// generateFeatureKey creates a standardized cache key for a feature set.
// Keys are sorted so equal data sets always hash to the same key.
func generateFeatureKey(features domain.ClinicalDataSet) string {
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{':'})
		h.Write([]byte(strconv.FormatFloat(features[k], 'f', -1, 64)))
		h.Write([]byte{';'})
	}
	return fmt.Sprintf("mlapi:prediction:%x", h.Sum(nil)[:8])
}
