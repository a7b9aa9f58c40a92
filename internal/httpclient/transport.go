package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"receipts/internal/metrics"
)

const RequestIDHeader = "X-Request-Id"

type retriedKey struct{}

// Retried сообщает, был ли запрос уже повторён после обновления токена.
func Retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// sentTokenKey хранит указатель, куда BearerTransport пишет отправленный токен.
type sentTokenKey struct{}

func withSentToken(ctx context.Context) (context.Context, *string) {
	sent := new(string)
	return context.WithValue(ctx, sentTokenKey{}, sent), sent
}

func recordSentToken(ctx context.Context, access string) {
	if sent, ok := ctx.Value(sentTokenKey{}).(*string); ok {
		*sent = access
	}
}

// BearerTransport - перехватчик запроса: добавляет Authorization, если токен есть.
type BearerTransport struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// повтор после refresh уже несёт нужный токен
	if req.Header.Get("Authorization") != "" {
		return t.Base.RoundTrip(req)
	}

	access, err := t.Tokens.AccessToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}
	recordSentToken(req.Context(), access)
	if access == "" {
		return t.Base.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+access)
	return t.Base.RoundTrip(r)
}

// RefreshTransport - перехватчик ответа: на 401 обновляет токен и повторяет
// запрос ровно один раз. Если токен уже сменился после отправки запроса,
// повтор идёт с новым токеном без нового refresh.
type RefreshTransport struct {
	Base      http.RoundTripper
	Tokens    TokenSource
	Refresher Refresher
	Log       *slog.Logger
}

func (t *RefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, sent := withSentToken(req.Context())
	resp, err := t.Base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || Retried(req.Context()) {
		return resp, nil
	}
	// тело уже прочитано и повторить нечем
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	// сохраняем исходный ответ, чтобы вернуть его при неудачном refresh
	original, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read 401 response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(original))

	access := t.rotatedSince(req.Context(), *sent)
	if access == "" {
		access, err = t.Refresher.Refresh(req.Context())
		if err != nil {
			t.Log.Debug("refresh failed, returning original 401",
				slog.String("url", req.URL.String()),
				slog.String("error", err.Error()))
			return resp, nil
		}
	}

	retry := req.Clone(markRetried(req.Context()))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay body: %w", err)
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+access)

	return t.Base.RoundTrip(retry)
}

// rotatedSince возвращает текущий токен, если он не пуст и отличается от
// отправленного: другой запрос уже завершил цикл обновления.
func (t *RefreshTransport) rotatedSince(ctx context.Context, sent string) string {
	if t.Tokens == nil {
		return ""
	}
	current, err := t.Tokens.AccessToken(ctx)
	if err != nil || current == "" || current == sent {
		return ""
	}
	t.Log.Debug("token rotated by another request, retrying without refresh")
	return current
}

// LoggingTransport пишет одну запись на запрос и проставляет X-Request-Id.
type LoggingTransport struct {
	Base http.RoundTripper
	Log  *slog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		r = req.Clone(req.Context())
		r.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := t.Base.RoundTrip(r)
	dur := time.Since(start)

	if err != nil {
		t.Log.Warn("http",
			slog.String("method", r.Method),
			slog.String("url", r.URL.Redacted()),
			slog.String("request_id", id),
			slog.Duration("dur", dur),
			slog.String("error", err.Error()))
		return nil, err
	}

	t.Log.Debug("http",
		slog.String("method", r.Method),
		slog.String("url", r.URL.Redacted()),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", id),
		slog.Duration("dur", dur))
	return resp, nil
}

type MetricsTransport struct {
	Base    http.RoundTripper
	Metrics *metrics.Metrics
}

func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Base.RoundTrip(req)
	code := 0
	if err == nil {
		code = resp.StatusCode
	}
	t.Metrics.ObserveRequest(req.URL.Host, req.Method, code, time.Since(start))
	return resp, err
}

// RateLimitTransport ждёт токен лимитера перед каждым запросом.
type RateLimitTransport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
}

func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return t.Base.RoundTrip(req)
}
