package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Storage - клиентское key/value хранилище (сессия, настройки UI).
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetMany записывает все значения одной операцией.
	SetMany(ctx context.Context, values map[string]string) error
	// Delete не считает отсутствие ключа ошибкой.
	Delete(ctx context.Context, keys ...string) error
}

// Noop используется вне персистентного контекста: ничего не хранит.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error) { return "", ErrNotFound }

func (Noop) Set(context.Context, string, string) error { return nil }

func (Noop) SetMany(context.Context, map[string]string) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }
