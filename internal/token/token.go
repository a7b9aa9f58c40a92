package token

import (
	"context"
	"errors"
	"fmt"

	"receipts/internal/model"
	"receipts/internal/storage"
)

// Ключи совпадают с теми, под которыми веб-клиент хранит сессию.
const (
	AccessKey  = "token"
	RefreshKey = "refreshToken"
)

// Store - хранилище пары токенов. Формат токенов не проверяется.
type Store struct {
	storage storage.Storage
}

func NewStore(s storage.Storage) *Store {
	if s == nil {
		s = storage.Noop{}
	}
	return &Store{storage: s}
}

// AccessToken возвращает "" без ошибки, если токена нет.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, AccessKey)
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, RefreshKey)
}

func (s *Store) Pair(ctx context.Context) (model.TokenPair, error) {
	access, err := s.AccessToken(ctx)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := s.RefreshToken(ctx)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Save пишет оба ключа одной операцией хранилища.
func (s *Store) Save(ctx context.Context, access, refresh string) error {
	err := s.storage.SetMany(ctx, map[string]string{
		AccessKey:  access,
		RefreshKey: refresh,
	})
	if err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, AccessKey, RefreshKey); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.storage.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
