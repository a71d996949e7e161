package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// NewRedisClient connects to REDIS_ADDR. It returns nil when Redis is not
// configured or does not answer a ping; callers then read policies straight
// from the database.
func NewRedisClient(cfg Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.ErrorLogger.WithError(err).WithField("addr", cfg.RedisAddr).Error("redis unavailable, policy cache disabled")
		_ = client.Close()
		return nil
	}
	return client
}
