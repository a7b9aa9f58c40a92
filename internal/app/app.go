package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"receipts/internal/config"
	"receipts/internal/guard"
	"receipts/internal/httpclient"
	"receipts/internal/metrics"
	authprovider "receipts/internal/provider/auth"
	imageprovider "receipts/internal/provider/images"
	receiptprovider "receipts/internal/provider/receipts"
	"receipts/internal/provider/sso"
	taskprovider "receipts/internal/provider/tasks"
	redisrepo "receipts/internal/redis"
	"receipts/internal/refresh"
	appservice "receipts/internal/services/app"
	"receipts/internal/services/auth"
	"receipts/internal/services/images"
	"receipts/internal/services/tasks"
	"receipts/internal/storage"
	"receipts/internal/storage/file"
	"receipts/internal/storage/memory"
	tasksync "receipts/internal/sync"
	"receipts/internal/token"
	"receipts/pkg/client/redis"
)

// Options - зависимости, которые удобно подменять снаружи (тесты, cmd).
type Options struct {
	// Navigate вызывается при переходе на другой маршрут, например на /login.
	Navigate func(path string)
	// Transport - базовый транспорт обоих HTTP клиентов.
	Transport http.RoundTripper
	// Registerer для метрик; nil - метрики не собираются.
	Registerer prometheus.Registerer
	// Storage подменяет хранилище из конфига.
	Storage storage.Storage
}

type App struct {
	Storage  storage.Storage
	Tokens   *token.Store
	Session  *refresh.Coordinator
	Metrics  *metrics.Metrics
	Guard    *guard.Guard
	Auth     *auth.Auth
	Tasks    *tasks.Tasks
	Images   *images.Images
	UI       *appservice.App
	Receipts receiptprovider.Provider
	Sync     *tasksync.Scheduler

	closers []func() error
	log     *slog.Logger
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	const op = "app.New"

	a := &App{log: log}

	// 1. Хранилище сессии
	st := opts.Storage
	if st == nil {
		var err error
		st, err = a.newStorage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	a.Storage = st
	a.Tokens = token.NewStore(st)

	if opts.Registerer != nil {
		a.Metrics = metrics.New(opts.Registerer)
	}

	common := []httpclient.Option{
		httpclient.WithTimeout(cfg.API.Timeout),
		httpclient.WithLogger(log),
		httpclient.WithMetrics(a.Metrics),
	}
	if opts.Transport != nil {
		common = append(common, httpclient.WithTransport(opts.Transport))
	}
	if cfg.RateLimit.RPS > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
		common = append(common, httpclient.WithRateLimit(limiter))
	}

	// 2. Обмен refresh токена. Этот клиент без авторизации: иначе 401 на
	// самом refresh снова запустил бы цикл обновления.
	refresher, err := a.newRefresher(cfg, log, common)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.Session = refresh.New(a.Tokens, refresher, log, a.Metrics)

	// 3. Клиенты двух бэкендов с перехватчиками
	withAuth := append(append([]httpclient.Option{}, common...), httpclient.WithAuth(a.Tokens, a.Session))
	authClient := httpclient.New(cfg.API.AuthURL, withAuth...)
	mainClient := httpclient.New(cfg.API.MainURL, withAuth...)

	// 4. Провайдеры и сервисы
	a.Auth = auth.NewService(ctx,
		authprovider.NewAuthProvider(authClient, a.Tokens, log),
		a.Tokens, a.Session, opts.Navigate, log)
	a.Session.OnUnauthorized(a.Auth.HandleUnauthorized)
	a.Session.OnRefreshed(a.Auth.UpdateTokens)

	a.Tasks = tasks.NewService(taskprovider.NewTasksProvider(mainClient, log), log)
	a.Images = images.NewService(imageprovider.NewImagesProvider(mainClient, log), log)
	a.Receipts = receiptprovider.NewReceiptsProvider(mainClient, log)
	a.UI = appservice.NewService(ctx, st, log)
	a.Guard = guard.New(a.Auth, log)

	// 5. Периодическая перезагрузка задач
	a.Sync = tasksync.New(cfg.Sync.Schedule, log)
	a.Sync.Register(tasksync.Job{Name: "tasks", Run: func(ctx context.Context) error {
		if !a.Auth.IsAuthenticated() {
			return nil
		}
		_, err := a.Tasks.Load(ctx)
		return err
	}})

	log.Info("application assembled",
		slog.String("auth_url", authClient.BaseURL()),
		slog.String("main_url", mainClient.BaseURL()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("auth_transport", cfg.Auth.Transport))
	return a, nil
}

func (a *App) newStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case config.StorageFile:
		return file.New(cfg.Storage.FilePath), nil
	case config.StorageRedisT:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return redisrepo.NewRepositoryRedis(client, cfg.Storage.KeyPrefix), nil
	case config.StorageNone:
		return storage.Noop{}, nil
	default:
		return memory.New(), nil
	}
}

func (a *App) newRefresher(cfg config.Config, log *slog.Logger, common []httpclient.Option) (refresh.Refresher, error) {
	if cfg.Auth.Transport == config.TransportGRPC {
		client, err := sso.Dial(cfg.Auth.GRPCAddr, cfg.Auth.DeviceID, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	}
	return authprovider.NewHTTPRefresher(httpclient.New(cfg.API.AuthURL, common...)), nil
}

// Close освобождает соединения в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("failed to close resource", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
