package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"receipts/internal/metrics"
	"receipts/internal/model"
	"receipts/internal/token"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrEmptyToken     = errors.New("refresh returned empty access token")
)

// Refresher обменивает refresh токен на новую пару.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

type RefresherFunc func(ctx context.Context, refreshToken string) (model.TokenPair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	return f(ctx, refreshToken)
}

type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "REFRESHING"
	}
	return "IDLE"
}

type outcome struct {
	token string
	err   error
}

// Coordinator гарантирует один сетевой refresh на цикл. Все, кто пришёл
// во время цикла, получают его результат в порядке очереди.
type Coordinator struct {
	store     *token.Store
	refresher Refresher
	log       *slog.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	state   State
	waiters []chan outcome
	// redirected взводится первым неудачным циклом и сбрасывается Arm.
	redirected     bool
	onUnauthorized func()
	onRefreshed    func(model.TokenPair)
}

func New(store *token.Store, refresher Refresher, log *slog.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		store:     store,
		refresher: refresher,
		log:       log,
		metrics:   m,
	}
}

// OnUnauthorized задаёт действие при окончательной потере сессии.
func (c *Coordinator) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Coordinator) OnRefreshed(fn func(model.TokenPair)) {
	c.mu.Lock()
	c.onRefreshed = fn
	c.mu.Unlock()
}

// Arm снова разрешает вызов onUnauthorized. Вызывается после входа.
func (c *Coordinator) Arm() {
	c.mu.Lock()
	c.redirected = false
	c.mu.Unlock()
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refresh возвращает новый access токен. Отмена ctx освобождает только
// этого вызывающего, сам цикл доводится до конца.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	const op = "refresh.Refresh"

	c.mu.Lock()
	if c.state == Refreshing {
		ch := make(chan outcome, 1)
		c.waiters = append(c.waiters, ch)
		queued := len(c.waiters)
		c.mu.Unlock()

		c.log.Debug("waiting for refresh in flight", slog.String("op", op), slog.Int("position", queued))

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	c.state = Refreshing
	c.mu.Unlock()

	access, pair, err := c.run(context.WithoutCancel(ctx))

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = Idle
	notify := false
	if err != nil {
		notify = !c.redirected
		c.redirected = true
	} else {
		c.redirected = false
	}
	onUnauthorized, onRefreshed := c.onUnauthorized, c.onRefreshed
	c.mu.Unlock()

	for _, w := range waiters {
		w <- outcome{token: access, err: err}
	}
	c.metrics.ObserveRefresh(err == nil, len(waiters))

	if err != nil {
		c.log.Warn("token refresh failed",
			slog.String("op", op),
			slog.Int("waiters", len(waiters)),
			slog.String("error", err.Error()))
		if notify && onUnauthorized != nil {
			onUnauthorized()
		}
		return "", err
	}

	c.log.Info("token refreshed", slog.String("op", op), slog.Int("waiters", len(waiters)))
	if onRefreshed != nil {
		onRefreshed(pair)
	}
	return access, nil
}

func (c *Coordinator) run(ctx context.Context) (string, model.TokenPair, error) {
	pair, err := c.exchange(ctx)
	if err != nil {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.log.Error("failed to clear tokens", slog.String("error", clearErr.Error()))
		}
		return "", model.TokenPair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return pair.AccessToken, pair, nil
}

func (c *Coordinator) exchange(ctx context.Context) (model.TokenPair, error) {
	// 1. Берём refresh токен
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return model.TokenPair{}, err
	}
	if refreshToken == "" {
		return model.TokenPair{}, ErrNoRefreshToken
	}

	// 2. Один сетевой вызов на цикл
	pair, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	if pair.AccessToken == "" {
		return model.TokenPair{}, ErrEmptyToken
	}

	// 3. Сохраняем пару
	if err := c.store.Save(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return model.TokenPair{}, err
	}
	return pair, nil
}
