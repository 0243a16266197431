package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/config"
)

// NewRedisClient connects to the cart store and verifies it answers.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
