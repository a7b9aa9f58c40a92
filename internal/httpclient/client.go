package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"receipts/internal/metrics"
)

const (
	DefaultSuccessMessage = "Operation completed successfully"
	DefaultErrorMessage   = "An error occurred"
)

var ErrDecode = errors.New("decode response")

// TokenSource отдаёт текущий access токен ("" - токена нет).
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Refresher выполняет (или ждёт) цикл обновления токена.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Client привязан к одному базовому адресу.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

type options struct {
	timeout   time.Duration
	base      http.RoundTripper
	log       *slog.Logger
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
	tokens    TokenSource
	refresher Refresher
}

type Option func(*options)

func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

func WithTransport(rt http.RoundTripper) Option { return func(o *options) { o.base = rt } }

func WithLogger(log *slog.Logger) Option { return func(o *options) { o.log = log } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

func WithRateLimit(l *rate.Limiter) Option { return func(o *options) { o.limiter = l } }

// WithAuth включает оба перехватчика: bearer на запросе и refresh на 401.
// Без него клиент не трогает авторизацию вовсе.
func WithAuth(tokens TokenSource, refresher Refresher) Option {
	return func(o *options) {
		o.tokens = tokens
		o.refresher = refresher
	}
}

func New(baseURL string, opts ...Option) *Client {
	o := options{
		timeout: 30 * time.Second,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.base == nil {
		o.base = defaultTransport()
	}

	// снаружи внутрь: refresh -> bearer -> rate limit -> metrics -> logging -> base
	var rt http.RoundTripper = &LoggingTransport{Base: o.base, Log: o.log}
	if o.metrics != nil {
		rt = &MetricsTransport{Base: rt, Metrics: o.metrics}
	}
	if o.limiter != nil {
		rt = &RateLimitTransport{Base: rt, Limiter: o.limiter}
	}
	if o.tokens != nil {
		rt = &BearerTransport{Base: rt, Tokens: o.tokens}
	}
	if o.refresher != nil {
		rt = &RefreshTransport{Base: rt, Tokens: o.tokens, Refresher: o.refresher, Log: o.log}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     o.log,
		http:    &http.Client{Transport: rt, Timeout: o.timeout},
	}
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		MaxConnsPerHost:       50,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do отправляет JSON запрос и декодирует нормализованный конверт в out.
// Ответ не 2xx возвращается как *model.APIError, out при этом тоже заполняется.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// File - файл для multipart загрузки.
type File struct {
	Field   string
	Name    string
	Content []byte
}

// DoMultipart собирает тело целиком в памяти, чтобы запрос можно было
// повторить после обновления токена.
func (c *Client) DoMultipart(ctx context.Context, path string, fields map[string]string, file File, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(file.Field, file.Name)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("request cancelled: %w", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	env, apiErr := Normalize(resp.StatusCode, raw)
	if env == nil {
		return fmt.Errorf("%w: status %d: invalid json", ErrDecode, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env, out); err != nil {
			if apiErr != nil {
				return apiErr
			}
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	if apiErr != nil {
		return apiErr
	}
	return nil
}
