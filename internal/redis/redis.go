package redis

import (
	"context"
	"errors"
	"fmt"

	redis2 "github.com/redis/go-redis/v9"
	"golang.org/x/exp/slices"

	"receipts/internal/storage"
	"receipts/pkg/client/redis"
)

type repositoryRedis struct {
	Client redis.Client
	Prefix string
}

func NewRepositoryRedis(client redis.Client, prefix string) storage.Storage {
	return &repositoryRedis{Client: client, Prefix: prefix}
}

func (r *repositoryRedis) key(k string) string {
	if r.Prefix == "" {
		return k
	}
	return fmt.Sprintf("%s:%s", r.Prefix, k)
}

func (r *repositoryRedis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis2.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set сохраняет значение без TTL: сроком жизни токенов управляет сервер.
func (r *repositoryRedis) Set(ctx context.Context, key, value string) error {
	if err := r.Client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetMany пишет ключи одной командой MSET в порядке сортировки ключей.
func (r *repositoryRedis) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	args := make([]interface{}, 0, len(values)*2)
	for _, k := range keys {
		args = append(args, r.key(k), values[k])
	}
	if err := r.Client.MSet(ctx, args...).Err(); err != nil {
		return fmt.Errorf("redis mset: %w", err)
	}
	return nil
}

func (r *repositoryRedis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	if err := r.Client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
