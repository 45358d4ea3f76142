package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Notification backends.
const (
	NotifyBackendLog      = "log"
	NotifyBackendRedis    = "redis"
	NotifyBackendRabbitMQ = "rabbitmq"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Swap         SwapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig selects where swap events are broadcast.
type NotificationConfig struct {
	Backend               string
	Channel               string
	RabbitMQURL           string
	DispatchBuffer        int
	PublishTimeoutMillis  int
}

// SwapConfig tunes the preference/request/commit core.
type SwapConfig struct {
	QueryLimit          int
	StoreTimeoutSeconds int
	LockTimeoutMillis   int
	CommitRetries       int
	SyntheticTTLHours   int
	GCIntervalMinutes   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "roomswap-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			Backend:               strings.ToLower(getEnv("NOTIFY_BACKEND", NotifyBackendLog)),
			Channel:               getEnv("NOTIFY_CHANNEL", "roomswap.events"),
			RabbitMQURL:           os.Getenv("NOTIFY_RABBITMQ_URL"),
			DispatchBuffer:        getEnvAsInt("NOTIFY_DISPATCH_BUFFER", 256),
			PublishTimeoutMillis:  getEnvAsInt("NOTIFY_PUBLISH_TIMEOUT_MS", 3000),
		},
		Swap: SwapConfig{
			QueryLimit:          getEnvAsInt("SWAP_QUERY_LIMIT", 50),
			StoreTimeoutSeconds: getEnvAsInt("SWAP_STORE_TIMEOUT_SECONDS", 5),
			LockTimeoutMillis:   getEnvAsInt("SWAP_LOCK_TIMEOUT_MS", 2000),
			CommitRetries:       getEnvAsInt("SWAP_COMMIT_RETRIES", 3),
			SyntheticTTLHours:   getEnvAsInt("SWAP_SYNTHETIC_TTL_HOURS", 72),
			GCIntervalMinutes:   getEnvAsInt("SWAP_GC_INTERVAL_MINUTES", 60),
		},
	}

	switch cfg.Notification.Backend {
	case NotifyBackendLog, NotifyBackendRedis:
	case NotifyBackendRabbitMQ:
		if cfg.Notification.RabbitMQURL == "" {
			return nil, fmt.Errorf("NOTIFY_RABBITMQ_URL required for backend %q", cfg.Notification.Backend)
		}
	default:
		return nil, fmt.Errorf("invalid NOTIFY_BACKEND: %q", cfg.Notification.Backend)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PublishTimeout bounds a single broker publish.
func (n NotificationConfig) PublishTimeout() time.Duration {
	if n.PublishTimeoutMillis <= 0 {
		return 3 * time.Second
	}
	return time.Duration(n.PublishTimeoutMillis) * time.Millisecond
}

// StoreTimeout bounds every store call made by the swap core.
func (s SwapConfig) StoreTimeout() time.Duration {
	if s.StoreTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.StoreTimeoutSeconds) * time.Second
}

// LockTimeout is applied to row locks taken inside transactions.
func (s SwapConfig) LockTimeout() time.Duration {
	if s.LockTimeoutMillis <= 0 {
		return 0
	}
	return time.Duration(s.LockTimeoutMillis) * time.Millisecond
}

// SyntheticTTL is the age after which unused synthetic preferences are collected.
func (s SwapConfig) SyntheticTTL() time.Duration {
	return time.Duration(s.SyntheticTTLHours) * time.Hour
}

// GCInterval is the period of the synthetic preference collector.
func (s SwapConfig) GCInterval() time.Duration {
	return time.Duration(s.GCIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
