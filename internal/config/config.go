package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     StorageRedis    `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sync      SyncConfig      `yaml:"sync"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// APIConfig - адреса двух бэкендов: авторизация и основной сервис.
type APIConfig struct {
	AuthURL string        `yaml:"auth_url" env:"API_AUTH_URL" env-default:"http://localhost:5009"`
	MainURL string        `yaml:"main_url" env:"API_MAIN_URL" env-default:"http://localhost:5008"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s"`
}

type StorageConfig struct {
	Type      string `yaml:"type" env:"STORAGE_TYPE" env-default:"memory"`
	FilePath  string `yaml:"file_path" env:"STORAGE_FILE_PATH" env-default:".receipts/session.json"`
	KeyPrefix string `yaml:"key_prefix" env:"STORAGE_KEY_PREFIX" env-default:"receipts"`
}

type StorageRedis struct {
	Host        string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port        string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password    string `yaml:"password" env:"REDIS_PASSWORD"`
	DB          int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxAttempts int    `yaml:"max_attempts" env:"REDIS_MAX_ATTEMPTS" env-default:"3"`
}

type AuthConfig struct {
	Transport string `yaml:"transport" env:"AUTH_TRANSPORT" env-default:"http"`
	GRPCAddr  string `yaml:"grpc_addr" env:"AUTH_GRPC_ADDR" env-default:"localhost:44044"`
	DeviceID  string `yaml:"device_id" env:"AUTH_DEVICE_ID" env-default:"cli"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"0"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
}

type SyncConfig struct {
	Enabled  bool   `yaml:"enabled" env:"SYNC_ENABLED" env-default:"false"`
	Schedule string `yaml:"schedule" env:"SYNC_SCHEDULE" env-default:"@every 5m"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
	Addr    string `yaml:"addr" env:"METRICS_ADDR" env-default:":9108"`
}

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedisT = "redis"
	StorageNone   = "none"

	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

const (
	flagConfigPath = "config"
	envConfigPath  = "CONFIG_PATH"
)

var instance *Config
var once sync.Once

// GetConfig читает конфиг один раз за процесс. При ошибке завершает процесс.
func GetConfig() *Config {
	once.Do(func() {
		var configPath string
		flag.StringVar(&configPath, flagConfigPath, "", "config file path")
		flag.Parse()

		if path, ok := os.LookupEnv(envConfigPath); ok {
			configPath = path
		}

		cfg, err := Load(configPath)
		if err != nil {
			slog.Error("failed to load config",
				slog.String("error", err.Error()),
				slog.String("path", configPath))
			os.Exit(1)
		}
		instance = cfg
	})
	return instance
}

// Load читает yaml (если путь задан), затем env, затем валидирует.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// 1. yaml
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		// 2. только env (и значения по умолчанию)
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.API.AuthURL) == "" {
		return errors.New("api.auth_url is required")
	}
	if strings.TrimSpace(cfg.API.MainURL) == "" {
		return errors.New("api.main_url is required")
	}

	switch cfg.Storage.Type {
	case StorageMemory, StorageNone, StorageRedisT:
	case StorageFile:
		if cfg.Storage.FilePath == "" {
			return errors.New("storage.file_path is required for file storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}

	switch cfg.Auth.Transport {
	case TransportHTTP:
	case TransportGRPC:
		if cfg.Auth.GRPCAddr == "" {
			return errors.New("auth.grpc_addr is required for grpc transport")
		}
	default:
		return fmt.Errorf("unknown auth transport %q", cfg.Auth.Transport)
	}

	if cfg.RateLimit.RPS < 0 {
		return errors.New("rate_limit.rps must not be negative")
	}
	return nil
}
