// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for everything except the venue API address.
//
// # Configuration Structure
//
// Server settings:
//
//	VENUE_HOST="0.0.0.0"
//	VENUE_PORT="8080"
//	VENUE_HEALTH_PORT="9090"
//	VENUE_SECURE_COOKIES="true"
//
// Venue API:
//
//	VENUE_API_URL="https://api.venue.example"  # required
//	VENUE_API_TIMEOUT="15s"
//	VENUE_VALIDATE_TIMEOUT="10s"
//	VENUE_API_RATE_LIMIT="50"  # requests per second
//
// Session storage:
//
//	VENUE_SESSION_DURABLE_STORE="sqlite"  # memory, file, redis, postgres, sqlite
//	VENUE_SESSION_SCOPED_STORE="memory"   # memory, redis
//	VENUE_SESSION_SQL_DSN="postgres://localhost/venuedesk"
//	VENUE_REDIS_URL="redis://localhost:6379"
//	VENUE_SESSION_PURGE_SCHEDULE="*/15 * * * *"
//
// Console:
//
//	VENUE_STATIC_DIR="/srv/console"
//	VENUE_NAVIGATION_FILE="/etc/venuedesk/navigation.yaml"
//	VENUE_LOGIN_RATE_LIMIT="10"
//
// Observability settings:
//
//	VENUE_LOG_LEVEL="info"  # debug, info, warn, error
//	VENUE_AUDIT_DIR="/var/log/venuedesk/audit"
//	VENUE_OTEL_ENABLED="true"
//	VENUE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Related Packages
//
//   - pkg/session: Uses session storage configuration
//   - pkg/observability: Uses observability configuration
package config
