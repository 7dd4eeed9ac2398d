// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	TENANTCTX_HOST="0.0.0.0"
//	TENANTCTX_PORT="8080"
//	TENANTCTX_HEALTH_PORT="9090"
//	TENANTCTX_READ_TIMEOUT="15s"
//	TENANTCTX_WRITE_TIMEOUT="15s"
//
// Session store settings:
//
//	TENANTCTX_SESSION_BACKEND="memory"  # memory, redis, sqlite
//	TENANTCTX_REDIS_URL="redis://localhost:6379"
//	TENANTCTX_SQLITE_PATH="/var/tenantctx/sessions.db"
//	TENANTCTX_SESSION_SWEEP_SCHEDULE="@every 5m"
//	TENANTCTX_USER_TTL="30m"
//	TENANTCTX_MENU_TTL="30m"
//
// Provider settings:
//
//	TENANTCTX_PROVIDER_BACKEND="fixture"  # fixture, http, postgres
//	TENANTCTX_FIXTURE_PATH="./fixtures/dev.yaml"
//	TENANTCTX_PROVIDER_URL="https://admin-api.internal"
//	TENANTCTX_POSTGRES_URL="postgres://localhost/admin"
//
// Observability settings:
//
//	TENANTCTX_LOG_LEVEL="info"  # debug, info, warn, error
//	TENANTCTX_METRICS_ENABLED="true"
//	TENANTCTX_OTEL_ENABLED="true"
//	TENANTCTX_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Session backend: %s\n", cfg.Session.Backend)
//
// # Related Packages
//
//   - pkg/session: Uses session store configuration
//   - pkg/tenant: Uses provider and cache configuration
//   - pkg/observability: Uses observability configuration
package config
