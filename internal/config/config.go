package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment   string `mapstructure:"ENV"`
	DBDSN         string `mapstructure:"DB_DSN"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	SeedFile      string `mapstructure:"SEED_FILE"`
	MigrationsDir string `mapstructure:"MIGRATIONS_PATH"`

	HTTPPort  string `mapstructure:"HTTP_PORT"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	TelegramToken     string `mapstructure:"TELEGRAM_TOKEN"`
	StateSnapshotPath string `mapstructure:"STATE_SNAPSHOT_PATH"`

	NatsURL string `mapstructure:"NATS_URL"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	Timezone               *time.Location `mapstructure:"TIMEZONE"`
	DefaultDurationMinutes int            `mapstructure:"DEFAULT_DURATION_MINUTES"`
	RateLimitPerMinute     int            `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из функции чтения переменных (os.Getenv или подмена в тестах)
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Environment:       get("ENV", "development"),
		DBDSN:             getenv("DB_DSN"),
		StorageDriver:     get("STORAGE_DRIVER", StorageDriverPostgres),
		SeedFile:          getenv("SEED_FILE"),
		MigrationsDir:     get("MIGRATIONS_PATH", "migrations"),
		HTTPPort:          get("HTTP_PORT", "8080"),
		JWTSecret:         getenv("JWT_SECRET"),
		TelegramToken:     getenv("TELEGRAM_TOKEN"),
		StateSnapshotPath: get("STATE_SNAPSHOT_PATH", "bot_state.json"),
		NatsURL:           getenv("NATS_URL"),
		RedisAddr:         getenv("REDIS_ADDR"),
		RedisPassword:     getenv("REDIS_PASSWORD"),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.RedisDB, err = atoi("REDIS_DB", get("REDIS_DB", "0")); err != nil {
		return nil, err
	}
	if cfg.DefaultDurationMinutes, err = atoi("DEFAULT_DURATION_MINUTES", get("DEFAULT_DURATION_MINUTES", "60")); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = atoi("RATE_LIMIT_PER_MINUTE", get("RATE_LIMIT_PER_MINUTE", "30")); err != nil {
		return nil, err
	}

	cfg.CacheTTL, err = time.ParseDuration(get("CACHE_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}

	cfg.Timezone, err = time.LoadLocation(get("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	// Проверяем обязательные поля
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, cfg.StorageDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	if cfg.DefaultDurationMinutes <= 0 {
		return nil, fmt.Errorf("DEFAULT_DURATION_MINUTES must be positive")
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// IsProduction проверяет боевое окружение
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
