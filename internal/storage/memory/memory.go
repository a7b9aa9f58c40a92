package memory

import (
	"context"
	"sync"

	"github.com/patrickmn/go-cache"

	"receipts/internal/storage"
)

type repositoryMemory struct {
	// mu делает SetMany видимым читателям целиком
	mu    sync.RWMutex
	cache *cache.Cache
}

func New() storage.Storage {
	return &repositoryMemory{cache: cache.New(cache.NoExpiration, 0)}
}

func (r *repositoryMemory) Get(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.cache.Get(key)
	if !ok {
		return "", storage.ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", storage.ErrNotFound
	}
	return s, nil
}

func (r *repositoryMemory) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (r *repositoryMemory) SetMany(_ context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range values {
		r.cache.Set(k, v, cache.NoExpiration)
	}
	return nil
}

func (r *repositoryMemory) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		r.cache.Delete(k)
	}
	return nil
}
