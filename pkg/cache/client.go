package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"jewgo-discovery/pkg/config"
	"jewgo-discovery/pkg/logger"
	"jewgo-discovery/pkg/metrics"

	"github.com/go-redis/redis/v8"
)

// Cache wraps a Redis client. It is constructed once by the process entry
// point and passed to the services that need it.
type Cache struct {
	client *redis.Client
}

// New connects to Redis using the provided configuration.
func New(cfg *config.Config) (*Cache, error) {
	var tlsConfig *tls.Config
	if cfg.Redis.TLSEnabled {
		if cfg.Redis.TLSCertFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.Redis.TLSCertFile, "")
			if err != nil {
				logger.GlobalLogger.Errorf("failed to load TLS certificate: %v", err)
				return nil, fmt.Errorf("failed to load TLS certificate: %v", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
			}
		} else {
			tlsConfig = &tls.Config{}
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     10,
		MinIdleConns: 5,
		TLSConfig:    tlsConfig,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := client.Ping(ctx).Result()
	duration := time.Since(start).Seconds()
	metrics.RedisOperationDuration.WithLabelValues("ping").Observe(duration)
	if err != nil {
		metrics.RedisErrorsTotal.WithLabelValues("ping").Inc()
		logger.GlobalLogger.Errorf("failed to connect to Redis: %v", err)
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	logger.GlobalLogger.Println("Redis connected successfully")
	return &Cache{client: client}, nil
}

// Ping reports whether the Redis connection is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	_, err := c.client.Ping(ctx).Result()
	return err
}

// Close releases the Redis connection.
func (c *Cache) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			logger.GlobalLogger.Errorf("error closing Redis: %v", err)
		} else {
			logger.GlobalLogger.Println("Redis connection closed")
		}
	}
}
