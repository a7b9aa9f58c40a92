package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App отдаёт /metrics и /healthz.
type App struct {
	log    *slog.Logger
	server *http.Server
	addr   string
}

func New(log *slog.Logger, addr string, gatherer prometheus.Gatherer) *App {
	return &App{
		log:  log,
		addr: addr,
		server: &http.Server{
			Handler:           Router(gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func Router(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func (a *App) Run() error {
	const op = "metricsapp.Run"

	l, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("metrics server started", slog.String("addr", l.Addr().String()))

	if err := a.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop(ctx context.Context) {
	const op = "metricsapp.Stop"

	a.log.With(slog.String("op", op)).
		Info("stopping metrics server", slog.String("addr", a.addr))

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
	}
}
