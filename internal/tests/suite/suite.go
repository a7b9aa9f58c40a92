package suite

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"receipts/internal/app"
	"receipts/internal/config"
	"receipts/internal/storage"
	"receipts/internal/storage/memory"
	"receipts/internal/tests/mock"
)

const (
	TestEmail    = "test@gmail.com"
	TestPassword = "Password123"
	TestDeviceID = "device-123"
)

// Suite - приложение, собранное против фейковых бэкендов.
type Suite struct {
	*testing.T

	App       *app.App
	Backend   *Backend
	Storage   storage.Storage
	Navigator *mock.Navigator
	Registry  *prometheus.Registry

	HTTP *httptest.Server

	// gRPC сервис авторизации, только при WithGRPC
	GRPC *grpc.Server
	SSO  *ssoServer
	Port int
}

type Option func(*config.Config)

// WithGRPC переключает обмен refresh токена на gRPC.
func WithGRPC() Option {
	return func(cfg *config.Config) { cfg.Auth.Transport = config.TransportGRPC }
}

// New создает новую тестовую сьюту
func New(t *testing.T, opts ...Option) *Suite {
	t.Helper()

	backend := NewBackend()
	backend.AddUser(TestEmail, TestPassword)

	httpServer := httptest.NewServer(backend.Router())

	cfg := config.Config{
		Env: "local",
		API: config.APIConfig{
			AuthURL: httpServer.URL,
			MainURL: httpServer.URL,
			Timeout: 5 * time.Second,
		},
		Storage: config.StorageConfig{Type: config.StorageMemory},
		Auth:    config.AuthConfig{Transport: config.TransportHTTP, DeviceID: TestDeviceID},
		Sync:    config.SyncConfig{Schedule: "@every 1s"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Suite{
		T:         t,
		Backend:   backend,
		Storage:   memory.New(),
		Navigator: &mock.Navigator{},
		Registry:  prometheus.NewRegistry(),
		HTTP:      httpServer,
	}

	if cfg.Auth.Transport == config.TransportGRPC {
		// Выбираем свободный порт
		s.Port = getFreePort(t)
		s.GRPC = grpc.NewServer()
		s.SSO = registerSSO(s.GRPC, backend)

		l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", s.Port))
		require.NoError(t, err)
		go func() {
			if err := s.GRPC.Serve(l); err != nil {
				t.Logf("Server error: %v", err)
			}
		}()

		// Ждем запуска
		waitForServer(t, s.Port)
		cfg.Auth.GRPCAddr = fmt.Sprintf("localhost:%d", s.Port)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	application, err := app.New(context.Background(), cfg, log, app.Options{
		Navigate:   s.Navigator.Navigate,
		Registerer: s.Registry,
		Storage:    s.Storage,
	})
	require.NoError(t, err)
	s.App = application

	// Регистрируем cleanup
	t.Cleanup(func() {
		s.Cleanup()
	})

	return s
}

// Login входит тестовым пользователем через приложение.
func (s *Suite) Login() {
	s.Helper()
	require.NoError(s.T, s.App.Auth.Login(context.Background(), TestEmail, TestPassword, true))
}

// Cleanup очищает ресурсы
func (s *Suite) Cleanup() {
	if s.App != nil {
		s.App.Close()
	}
	if s.GRPC != nil {
		s.GRPC.Stop()
	}
	if s.HTTP != nil {
		s.HTTP.Close()
	}
}

// Вспомогательные функции
func getFreePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, port int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	addr := fmt.Sprintf("localhost:%d", port)

	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("Server didn't start in time")
}
