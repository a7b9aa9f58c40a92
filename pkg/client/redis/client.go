package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"receipts/internal/config"
)

type Client interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	MSet(ctx context.Context, values ...interface{}) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

func NewClient(ctx context.Context, sc config.StorageRedis) (client *redis.Client, err error) {
	maxAttempts := sc.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	// Попытки подключиться с повторениями в случае неудачи
	err = doWithTries(func() error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", sc.Host, sc.Port),
			Password: sc.Password,
			DB:       sc.DB,
		})

		if _, err := client.Ping(ctx).Result(); err != nil {
			_ = client.Close()
			return err
		}
		return nil
	}, maxAttempts, time.Second)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxAttempts, err)
	}

	return client, nil
}

func doWithTries(fn func() error, attempts int, delay time.Duration) (err error) {
	for attempts > 0 {
		if err = fn(); err != nil {
			attempts--
			if attempts > 0 {
				time.Sleep(delay)
			}
			continue
		}
		return nil
	}
	return
}
