package model

import (
	"fmt"
	"net/http"
	"time"
)

// Envelope - общий формат ответа бэкенда.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Data      *T     `json:"data,omitempty"`
}

// Result возвращает data либо ошибку с сообщением сервера.
func (e Envelope[T]) Result(defaultMessage string) (T, error) {
	var zero T
	if !e.Success {
		return zero, e.Err(defaultMessage)
	}
	if e.Data == nil {
		return zero, nil
	}
	return *e.Data, nil
}

func (e Envelope[T]) Err(defaultMessage string) *APIError {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage
	}
	return &APIError{Message: msg, Timestamp: e.Timestamp}
}

type ListEnvelope[T any] struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Data       []T    `json:"data"`
	TotalCount int    `json:"total_count"`
}

func (e ListEnvelope[T]) Result(defaultMessage string) ([]T, error) {
	if !e.Success {
		msg := e.Message
		if msg == "" {
			msg = defaultMessage
		}
		return nil, &APIError{Message: msg, Timestamp: e.Timestamp}
	}
	return e.Data, nil
}

// APIError - нормализованный неуспешный ответ.
type APIError struct {
	Status    int
	Message   string
	Timestamp string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type LoginResult struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
