package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"jewgo-discovery/pkg/logger"
	"jewgo-discovery/pkg/metrics"

	"github.com/go-redis/redis/v8"
)

// Set stores a value under key with the given TTL. The value is JSON-encoded
// and compressed before storage.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	start := time.Now()
	data, err := json.Marshal(value)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("set_marshal").Inc()
		logger.GlobalLogger.Errorf("failed to marshal value for key %s: %v", key, err)
		return NewCacheError("set_marshal", err, true)
	}
	err = c.client.Set(ctx, key, compressPayload(data), expiration).Err()
	duration := time.Since(start).Seconds()
	metrics.RedisOperationDuration.WithLabelValues("set").Observe(duration)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("set").Inc()
		logger.GlobalLogger.Errorf("failed to set key %s: %v", key, err)
		return NewCacheError("set", err, false)
	}
	return nil
}

// Get retrieves a value and unmarshals it into dest. The second return is
// false on a clean miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	start := time.Now()
	payload, err := c.client.Get(ctx, key).Bytes()
	duration := time.Since(start).Seconds()
	metrics.RedisOperationDuration.WithLabelValues("get").Observe(duration)
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("get").Inc()
		logger.GlobalLogger.Errorf("failed to get key %s: %v", key, err)
		return false, NewCacheError("get", err, false)
	}
	data, err := decompressPayload(payload)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("get_decompress").Inc()
		logger.GlobalLogger.Errorf("failed to decompress value for key %s: %v", key, err)
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("get_unmarshal").Inc()
		logger.GlobalLogger.Errorf("failed to unmarshal value for key %s: %v", key, err)
		return false, NewCacheError("get_unmarshal", err, true)
	}
	return true, nil
}

// SetWithTags stores a value and records its key in each tag set so a single
// listing or cell change can invalidate exactly the affected entries.
func (c *Cache) SetWithTags(ctx context.Context, key string, value interface{}, expiration time.Duration, tags []string) error {
	start := time.Now()
	data, err := json.Marshal(value)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("set_tagged_marshal").Inc()
		logger.GlobalLogger.Errorf("failed to marshal value for key %s: %v", key, err)
		return NewCacheError("set_tagged_marshal", err, true)
	}

	args := []interface{}{key, string(compressPayload(data)), strconv.Itoa(int(expiration.Seconds()))}
	for _, tag := range tags {
		args = append(args, tag)
	}

	_, err = setWithTagsScript.Run(ctx, c.client, []string{}, args...).Result()
	duration := time.Since(start).Seconds()
	metrics.RedisOperationDuration.WithLabelValues("set_tagged").Observe(duration)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("set_tagged").Inc()
		logger.GlobalLogger.Errorf("failed to execute tagged set script for key %s: %v", key, err)
		return NewCacheError("set_tagged", err, false)
	}
	return nil
}

// InvalidateTag deletes every cache key recorded in the tag set plus the set
// itself. Invalidating an already-empty tag is a no-op.
func (c *Cache) InvalidateTag(ctx context.Context, tag string) error {
	start := time.Now()
	_, err := invalidateTagScript.Run(ctx, c.client, []string{}, tag).Result()
	duration := time.Since(start).Seconds()
	metrics.RedisOperationDuration.WithLabelValues("invalidate_tag").Observe(duration)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("invalidate_tag").Inc()
		logger.GlobalLogger.Errorf("failed to execute invalidate tag script for %s: %v", tag, err)
		return NewCacheError("invalidate_tag", err, false)
	}
	return nil
}

// Delete removes a single key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := c.client.Del(ctx, key).Err()
	duration := time.Since(start).Seconds()
	metrics.RedisOperationDuration.WithLabelValues("delete").Observe(duration)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("delete").Inc()
		logger.GlobalLogger.Errorf("failed to delete key %s: %v", key, err)
		return NewCacheError("delete", err, false)
	}
	return nil
}

// Exists checks if a key exists in the cache.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	count, err := c.client.Exists(ctx, key).Result()
	duration := time.Since(start).Seconds()
	metrics.RedisOperationDuration.WithLabelValues("exists").Observe(duration)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("exists").Inc()
		logger.GlobalLogger.Errorf("failed to check existence of key %s: %v", key, err)
		return false, NewCacheError("exists", err, false)
	}
	return count > 0, nil
}
