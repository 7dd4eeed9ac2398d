package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/tenantctx/pkg/observability"
	"github.com/platinummonkey/tenantctx/pkg/session"
	"github.com/platinummonkey/tenantctx/pkg/tenant"
)

// Session backend identifiers accepted by TENANTCTX_SESSION_BACKEND.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
	SessionBackendSQLite = "sqlite"
)

// Provider backend identifiers accepted by TENANTCTX_PROVIDER_BACKEND.
const (
	ProviderBackendFixture  = "fixture"
	ProviderBackendHTTP     = "http"
	ProviderBackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Session       SessionConfig
	Provider      ProviderConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// SessionConfig selects and tunes the session store backend.
type SessionConfig struct {
	Backend string

	Redis session.RedisConfig

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string

	// SweepSchedule is a cron expression for expired-entry sweeps on
	// backends without native TTL enforcement (memory, sqlite).
	SweepSchedule string

	UserTTL time.Duration
	MenuTTL time.Duration
}

// ProviderConfig selects where permissions and menus come from.
type ProviderConfig struct {
	Backend string

	// Fixture backend
	FixturePath  string
	FixtureWatch bool

	// HTTP backend
	HTTPBaseURL string
	HTTPToken   string
	HTTPTimeout time.Duration

	// Postgres backend
	PostgresURL      string
	PostgresMaxConns int
}

// CacheConfig tunes the per-route action vector cache. Zero values use
// the engine defaults.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Session:       loadSessionConfig(),
		Provider:      loadProviderConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("TENANTCTX_HOST", "0.0.0.0"),
		Port:            getEnv("TENANTCTX_PORT", "8080"),
		ReadTimeout:     getEnvDuration("TENANTCTX_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("TENANTCTX_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("TENANTCTX_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("TENANTCTX_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("TENANTCTX_HEALTH_PORT", "9090"),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Backend: getEnv("TENANTCTX_SESSION_BACKEND", SessionBackendMemory),
		Redis: session.RedisConfig{
			URL:        getEnv("TENANTCTX_REDIS_URL", ""),
			Password:   getEnv("TENANTCTX_REDIS_PASSWORD", ""),
			DB:         getEnvInt("TENANTCTX_REDIS_DB", 0),
			MaxRetries: getEnvInt("TENANTCTX_REDIS_MAX_RETRIES", 0),
			PoolSize:   getEnvInt("TENANTCTX_REDIS_POOL_SIZE", 0),
			KeyPrefix:  getEnv("TENANTCTX_REDIS_KEY_PREFIX", ""),
			Channel:    getEnv("TENANTCTX_REDIS_CHANNEL", ""),
		},
		SQLitePath:    getEnv("TENANTCTX_SQLITE_PATH", ""),
		SweepSchedule: getEnv("TENANTCTX_SESSION_SWEEP_SCHEDULE", "@every 5m"),
		UserTTL:       getEnvDuration("TENANTCTX_USER_TTL", tenant.DefaultUserTTL),
		MenuTTL:       getEnvDuration("TENANTCTX_MENU_TTL", tenant.DefaultMenuTTL),
	}
}

func loadProviderConfig() ProviderConfig {
	return ProviderConfig{
		Backend:          getEnv("TENANTCTX_PROVIDER_BACKEND", ProviderBackendFixture),
		FixturePath:      getEnv("TENANTCTX_FIXTURE_PATH", ""),
		FixtureWatch:     getEnvBool("TENANTCTX_FIXTURE_WATCH", true),
		HTTPBaseURL:      getEnv("TENANTCTX_PROVIDER_URL", ""),
		HTTPToken:        getEnv("TENANTCTX_PROVIDER_TOKEN", ""),
		HTTPTimeout:      getEnvDuration("TENANTCTX_PROVIDER_TIMEOUT", 10*time.Second),
		PostgresURL:      getEnv("TENANTCTX_POSTGRES_URL", ""),
		PostgresMaxConns: getEnvInt("TENANTCTX_POSTGRES_MAX_CONNS", 10),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Size: getEnvInt("TENANTCTX_CACHE_SIZE", 0),
		TTL:  getEnvDuration("TENANTCTX_CACHE_TTL", 0),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLevel(getEnv("TENANTCTX_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("TENANTCTX_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("TENANTCTX_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("TENANTCTX_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("TENANTCTX_OTEL_SERVICE_NAME", "tenantctx"),
		OTelServiceVersion: getEnv("TENANTCTX_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("TENANTCTX_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Session.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for redis session backend")
		}
	case SessionBackendSQLite:
		if c.Session.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite session backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be memory, redis, or sqlite)", c.Session.Backend)
	}

	switch c.Provider.Backend {
	case ProviderBackendFixture:
		if c.Provider.FixturePath == "" {
			return fmt.Errorf("fixture path is required for fixture provider backend")
		}
	case ProviderBackendHTTP:
		if c.Provider.HTTPBaseURL == "" {
			return fmt.Errorf("provider URL is required for http provider backend")
		}
	case ProviderBackendPostgres:
		if c.Provider.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres provider backend")
		}
	default:
		return fmt.Errorf("invalid provider backend: %s (must be fixture, http, or postgres)", c.Provider.Backend)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
