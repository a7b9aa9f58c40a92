package provider

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"receipts/internal/model"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMissingData   = errors.New("missing or invalid input")
	ErrEmptyResponse = errors.New("empty response data")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет входные данные до отправки запроса.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingData, err)
	}
	return nil
}

// IsUnauthorized - 401 от сервера или отсутствие сессии на клиенте.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// Single достаёт data из конверта одиночного ресурса; пустой data - ошибка.
func Single[T any](op string, env model.Envelope[T], defaultMsg string) (*T, error) {
	v, err := env.Result(defaultMsg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	return &v, nil
}

// Message - текст ошибки для показа: сообщение сервера, если оно есть.
func Message(err error, fallback string) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrMissingData) {
		return err.Error()
	}
	return fallback
}
