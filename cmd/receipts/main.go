package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"receipts/internal/app"
	metricsapp "receipts/internal/app/metrics"
	"receipts/internal/config"
	"receipts/internal/model"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	_ = godotenv.Load(".env")

	cfg := config.GetConfig()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	log := setupSlog(cfg.Env)

	reg := prometheus.NewRegistry()
	application, err := app.New(ctx, *cfg, log, app.Options{
		Navigate: func(path string) {
			color.Yellow("-> %s", path)
		},
		Registerer: reg,
	})
	if err != nil {
		log.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer application.Close()

	var metricsServer *metricsapp.App
	if cfg.Metrics.Enabled {
		metricsServer = metricsapp.New(log, cfg.Metrics.Addr, prometheus.Gatherers{reg, prometheus.DefaultGatherer})
		go func() {
			if err := metricsServer.Run(); err != nil {
				log.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	if email := os.Getenv("RECEIPTS_EMAIL"); email != "" {
		if err := application.Auth.Login(ctx, email, os.Getenv("RECEIPTS_PASSWORD"), true); err != nil {
			color.Red("login failed: %s", application.Auth.State().Error)
		}
	} else if _, err := application.Auth.FetchUser(ctx); err != nil {
		log.Warn("failed to restore session", slog.String("error", err.Error()))
	}

	if application.Auth.IsAuthenticated() {
		user := application.Auth.State().User
		color.Green("signed in as %s", user.Email)

		if tasks, err := application.Tasks.Load(ctx); err != nil {
			color.Red("failed to load tasks: %s", application.Tasks.State().Error)
		} else {
			printTasks(tasks)
		}
	} else {
		color.Yellow("not signed in")
	}

	if cfg.Sync.Enabled {
		if err := application.Sync.Run(ctx); err != nil {
			log.Error("sync stopped", slog.String("error", err.Error()))
		}
	} else {
		<-ctx.Done()
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsServer.Stop(shutdownCtx)
	}
	log.Info("Gracefully stopped")

}

func printTasks(tasks []model.Task) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)

	title.Printf("%d task(s)\n", len(tasks))
	for _, t := range tasks {
		if t.State == model.TaskHidden {
			continue
		}
		title.Printf("  %s", t.TaskName)
		dim.Printf("  [%s] images: %d\n", t.ID, t.ImageCount)
	}
}

func setupSlog(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return log
}
