package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/session"
	"github.com/robfig/cron/v3"
)

// Store kinds for the session scopes
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = session.DriverPostgres
	StoreSQLite   = session.DriverSQLite
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Backend       BackendConfig
	Session       SessionConfig
	Console       ConsoleConfig
	Audit         AuditConfig
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
	MaxBodyBytes    int64
	SecureCookies   bool

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// BackendConfig points at the venue API
type BackendConfig struct {
	BaseURL         string
	Timeout         time.Duration
	ValidateTimeout time.Duration
	RateLimit       float64
	Burst           int
}

// SessionConfig selects where the two session scopes live
type SessionConfig struct {
	Durable string
	Scoped  string

	DurableTTL time.Duration
	ScopedTTL  time.Duration

	FileRoot string
	SQLDSN   string

	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
	RedisPrefix     string

	PurgeSchedule   string
	ClientCacheSize int
}

// UsesRedis reports whether either scope or the login limiter needs Redis
func (s SessionConfig) UsesRedis() bool {
	return s.Durable == StoreRedis || s.Scoped == StoreRedis
}

// ConsoleConfig holds console behaviour
type ConsoleConfig struct {
	StaticDir      string
	NavigationFile string
	LoadingWait    time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration
	LoginRateBurst  int

	SettingsCacheSize int
	SettingsCacheTTL  time.Duration
}

// AuditConfig holds audit trail settings. An empty Dir disables the file log.
type AuditConfig struct {
	Dir      string
	Rotate   bool
	MaxSize  int64
	MaxFiles int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Backend:       loadBackendConfig(),
		Session:       loadSessionConfig(),
		Console:       loadConsoleConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("VENUE_HOST", "0.0.0.0"),
		Port:            getEnv("VENUE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("VENUE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("VENUE_WRITE_TIMEOUT", 0),
		IdleTimeout:     getEnvDuration("VENUE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("VENUE_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("VENUE_MAX_BODY_BYTES", 1<<20),
		SecureCookies:   getEnvBool("VENUE_SECURE_COOKIES", true),
		HealthPort:      getEnv("VENUE_HEALTH_PORT", "9090"),
	}
}

func loadBackendConfig() BackendConfig {
	return BackendConfig{
		BaseURL:         strings.TrimRight(getEnv("VENUE_API_URL", ""), "/"),
		Timeout:         getEnvDuration("VENUE_API_TIMEOUT", 15*time.Second),
		ValidateTimeout: getEnvDuration("VENUE_VALIDATE_TIMEOUT", 10*time.Second),
		RateLimit:       getEnvFloat("VENUE_API_RATE_LIMIT", 50),
		Burst:           getEnvInt("VENUE_API_BURST", 100),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Durable:         strings.ToLower(getEnv("VENUE_SESSION_DURABLE_STORE", StoreSQLite)),
		Scoped:          strings.ToLower(getEnv("VENUE_SESSION_SCOPED_STORE", StoreMemory)),
		DurableTTL:      getEnvDuration("VENUE_SESSION_DURABLE_TTL", 30*24*time.Hour),
		ScopedTTL:       getEnvDuration("VENUE_SESSION_SCOPED_TTL", 12*time.Hour),
		FileRoot:        getEnv("VENUE_SESSION_FILE_ROOT", "/var/lib/venuedesk/sessions"),
		SQLDSN:          getEnv("VENUE_SESSION_SQL_DSN", "file:/var/lib/venuedesk/sessions.db?_busy_timeout=5000"),
		RedisURL:        getEnv("VENUE_REDIS_URL", ""),
		RedisPassword:   getEnv("VENUE_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("VENUE_REDIS_DB", 0),
		RedisMaxRetries: getEnvInt("VENUE_REDIS_MAX_RETRIES", 3),
		RedisPoolSize:   getEnvInt("VENUE_REDIS_POOL_SIZE", 10),
		RedisPrefix:     getEnv("VENUE_REDIS_PREFIX", "venuedesk"),
		PurgeSchedule:   getEnv("VENUE_SESSION_PURGE_SCHEDULE", session.DefaultPurgeSchedule),
		ClientCacheSize: getEnvInt("VENUE_SESSION_CACHE_SIZE", 4096),
	}
}

func loadConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		StaticDir:         getEnv("VENUE_STATIC_DIR", ""),
		NavigationFile:    getEnv("VENUE_NAVIGATION_FILE", ""),
		LoadingWait:       getEnvDuration("VENUE_LOADING_WAIT", 2*time.Second),
		LoginRateLimit:    getEnvInt("VENUE_LOGIN_RATE_LIMIT", 10),
		LoginRateWindow:   getEnvDuration("VENUE_LOGIN_RATE_WINDOW", time.Minute),
		LoginRateBurst:    getEnvInt("VENUE_LOGIN_RATE_BURST", 5),
		SettingsCacheSize: getEnvInt("VENUE_SETTINGS_CACHE_SIZE", 1024),
		SettingsCacheTTL:  getEnvDuration("VENUE_SETTINGS_CACHE_TTL", 5*time.Minute),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Dir:      getEnv("VENUE_AUDIT_DIR", ""),
		Rotate:   getEnvBool("VENUE_AUDIT_ROTATE", true),
		MaxSize:  getEnvInt64("VENUE_AUDIT_MAX_SIZE", 50*1024*1024),
		MaxFiles: getEnvInt("VENUE_AUDIT_MAX_FILES", 10),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("VENUE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("VENUE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("VENUE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("VENUE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("VENUE_OTEL_SERVICE_NAME", "venue-console"),
		OTelServiceVersion: getEnv("VENUE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("VENUE_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("VENUE_OTEL_SAMPLE_RATIO", 1.0),
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

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("VENUE_API_URL is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid venue API URL: %q", c.Backend.BaseURL)
	}
	if c.Backend.RateLimit <= 0 || c.Backend.Burst <= 0 {
		return fmt.Errorf("venue API rate limit and burst must be positive")
	}

	switch c.Session.Durable {
	case StoreMemory:
	case StoreFile:
		if c.Session.FileRoot == "" {
			return fmt.Errorf("file root is required for the file session store")
		}
	case StorePostgres, StoreSQLite:
		if c.Session.SQLDSN == "" {
			return fmt.Errorf("a DSN is required for the %s session store", c.Session.Durable)
		}
	case StoreRedis:
	default:
		return fmt.Errorf("invalid durable session store: %s (must be memory, file, redis, postgres, or sqlite)", c.Session.Durable)
	}

	switch c.Session.Scoped {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("invalid scoped session store: %s (must be memory or redis)", c.Session.Scoped)
	}

	if c.Session.UsesRedis() && c.Session.RedisURL == "" {
		return fmt.Errorf("redis URL is required for the redis session store")
	}
	if c.Session.PurgeSchedule != "" {
		if _, err := cron.ParseStandard(c.Session.PurgeSchedule); err != nil {
			return fmt.Errorf("invalid purge schedule %q: %w", c.Session.PurgeSchedule, err)
		}
	}

	if c.Console.LoginRateLimit <= 0 || c.Console.LoginRateWindow <= 0 {
		return fmt.Errorf("login rate limit and window must be positive")
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

// OTel returns the tracing configuration
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// Redis returns the Redis settings for a session scope
func (c *Config) Redis(scope string, ttl time.Duration) session.RedisConfig {
	return session.RedisConfig{
		URL:        c.Session.RedisURL,
		Password:   c.Session.RedisPassword,
		DB:         c.Session.RedisDB,
		MaxRetries: c.Session.RedisMaxRetries,
		PoolSize:   c.Session.RedisPoolSize,
		Prefix:     c.Session.RedisPrefix + ":" + scope,
		TTL:        ttl,
	}
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
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

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
