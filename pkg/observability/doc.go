// Package observability provides structured logging, health checks,
// OpenTelemetry wiring, and graceful shutdown helpers shared by the
// tenantctx packages and server binary.
package observability
