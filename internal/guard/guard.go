package guard

import (
	"context"
	"log/slog"
	"strings"
)

const (
	LoginPath     = "/login"
	RegisterPath  = "/register"
	TasksPath     = "/tasks"
	DashboardPath = "/dashboard"
)

var protectedPrefixes = []string{"/dashboard", "/(protected)", "/receipts"}

func isProtected(path string) bool {
	for _, p := range protectedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isAuthRoute(path string) bool {
	return path == LoginPath || path == RegisterPath || strings.HasPrefix(path, "/(auth)")
}

// Resolve решает, куда увести пользователя с path. ok=false - остаться.
func Resolve(path string, authenticated bool) (string, bool) {
	switch {
	case !authenticated && isProtected(path):
		return LoginPath, true
	case authenticated && isAuthRoute(path):
		return TasksPath, true
	case authenticated && path == "/":
		return DashboardPath, true
	}
	return "", false
}

// Session - состояние входа, нужное охраннику.
type Session interface {
	IsAuthenticated() bool
	HasUser() bool
	HasToken(ctx context.Context) bool
	FetchUser(ctx context.Context) (bool, error)
}

type Guard struct {
	session Session
	log     *slog.Logger
}

func New(session Session, log *slog.Logger) *Guard {
	return &Guard{session: session, log: log}
}

// Check при сохранённом токене без пользователя сначала подгружает его,
// затем решает по Resolve.
func (g *Guard) Check(ctx context.Context, path string) (string, bool) {
	if g.session.HasToken(ctx) && !g.session.HasUser() {
		if _, err := g.session.FetchUser(ctx); err != nil {
			g.log.Warn("failed to restore user", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	redirect, ok := Resolve(path, g.session.IsAuthenticated())
	if ok {
		g.log.Debug("route redirected", slog.String("from", path), slog.String("to", redirect))
	}
	return redirect, ok
}
