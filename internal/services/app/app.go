package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"receipts/internal/state"
	"receipts/internal/storage"
)

const (
	DarkModeKey = "darkMode"

	DefaultNotificationTimeout = 5 * time.Second
)

type NotificationKind string

const (
	Info    NotificationKind = "info"
	Success NotificationKind = "success"
	Warning NotificationKind = "warning"
	Error   NotificationKind = "error"
)

type Notification struct {
	ID      string
	Kind    NotificationKind
	Message string
	// Timeout: 0 - значение по умолчанию, отрицательное - не скрывать.
	Timeout time.Duration
}

type State struct {
	DarkMode      bool
	SidebarOpen   bool
	Notifications []Notification
}

type App struct {
	storage storage.Storage
	log     *slog.Logger
	store   *state.Store[State]

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewService(ctx context.Context, st storage.Storage, log *slog.Logger) *App {
	if st == nil {
		st = storage.Noop{}
	}
	a := &App{
		storage: st,
		log:     log,
		timers:  map[string]*time.Timer{},
	}
	a.store = state.New(State{DarkMode: a.loadDarkMode(ctx), SidebarOpen: true})
	return a
}

func (a *App) State() State { return a.store.Get() }

func (a *App) Subscribe(fn func(State)) func() { return a.store.Subscribe(fn) }

func (a *App) loadDarkMode(ctx context.Context) bool {
	v, err := a.storage.Get(ctx, DarkModeKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.log.Warn("failed to read dark mode", slog.String("error", err.Error()))
		}
		return false
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		a.log.Warn("invalid dark mode value", slog.String("value", v))
		return false
	}
	return on
}

// ToggleDarkMode переключает тему и сохраняет выбор.
func (a *App) ToggleDarkMode(ctx context.Context) bool {
	var on bool
	a.store.Update(func(s State) State {
		s.DarkMode = !s.DarkMode
		on = s.DarkMode
		return s
	})
	if err := a.storage.Set(ctx, DarkModeKey, strconv.FormatBool(on)); err != nil {
		a.log.Warn("failed to persist dark mode", slog.String("error", err.Error()))
	}
	return on
}

func (a *App) ToggleSidebar() bool {
	var open bool
	a.store.Update(func(s State) State {
		s.SidebarOpen = !s.SidebarOpen
		open = s.SidebarOpen
		return s
	})
	return open
}

// Notify добавляет уведомление и возвращает его id.
func (a *App) Notify(kind NotificationKind, message string, timeout time.Duration) string {
	n := Notification{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: message,
		Timeout: timeout,
	}
	if n.Timeout == 0 {
		n.Timeout = DefaultNotificationTimeout
	}

	a.store.Update(func(s State) State {
		s.Notifications = append(slices.Clone(s.Notifications), n)
		return s
	})

	if n.Timeout > 0 {
		a.mu.Lock()
		a.timers[n.ID] = time.AfterFunc(n.Timeout, func() { a.Remove(n.ID) })
		a.mu.Unlock()
	}
	return n.ID
}

func (a *App) Remove(id string) {
	a.stopTimer(id)
	a.store.Update(func(s State) State {
		s.Notifications = slices.DeleteFunc(slices.Clone(s.Notifications), func(n Notification) bool {
			return n.ID == id
		})
		return s
	})
}

func (a *App) Clear() {
	a.mu.Lock()
	for id, t := range a.timers {
		t.Stop()
		delete(a.timers, id)
	}
	a.mu.Unlock()

	a.store.Update(func(s State) State {
		s.Notifications = nil
		return s
	})
}

func (a *App) stopTimer(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[id]; ok {
		t.Stop()
		delete(a.timers, id)
	}
}
