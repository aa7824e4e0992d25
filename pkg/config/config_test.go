package config

import (
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "VENUE_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "VENUE_TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvTyped tests the typed helpers, including malformed values
func TestGetEnvTyped(t *testing.T) {
	t.Setenv("VENUE_TEST_BOOL", "1")
	t.Setenv("VENUE_TEST_BOOL_NO", "nope")
	t.Setenv("VENUE_TEST_INT", "42")
	t.Setenv("VENUE_TEST_INT_BAD", "forty")
	t.Setenv("VENUE_TEST_INT64", "9000000000")
	t.Setenv("VENUE_TEST_FLOAT", "2.5")
	t.Setenv("VENUE_TEST_DURATION", "90s")
	t.Setenv("VENUE_TEST_DURATION_BAD", "soon")

	if !getEnvBool("VENUE_TEST_BOOL", false) {
		t.Error(`getEnvBool("1") = false, want true`)
	}
	if getEnvBool("VENUE_TEST_BOOL_NO", true) {
		t.Error(`getEnvBool("nope") = true, want false`)
	}
	if got := getEnvInt("VENUE_TEST_INT", 0); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
	if got := getEnvInt("VENUE_TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getEnvInt() with bad value = %d, want default 7", got)
	}
	if got := getEnvInt64("VENUE_TEST_INT64", 0); got != 9000000000 {
		t.Errorf("getEnvInt64() = %d, want 9000000000", got)
	}
	if got := getEnvFloat("VENUE_TEST_FLOAT", 0); got != 2.5 {
		t.Errorf("getEnvFloat() = %v, want 2.5", got)
	}
	if got := getEnvDuration("VENUE_TEST_DURATION", 0); got != 90*time.Second {
		t.Errorf("getEnvDuration() = %v, want 90s", got)
	}
	if got := getEnvDuration("VENUE_TEST_DURATION_BAD", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() with bad value = %v, want default 1s", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  observability.LogLevel
	}{
		{"debug", observability.DebugLevel},
		{"DEBUG", observability.DebugLevel},
		{"info", observability.InfoLevel},
		{"warn", observability.WarnLevel},
		{"warning", observability.WarnLevel},
		{"error", observability.ErrorLevel},
		{"invalid", observability.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := parseLogLevel(tt.level); got != tt.want {
				t.Errorf("parseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	server := loadServerConfig()
	if server.Port != "8080" || server.HealthPort != "9090" {
		t.Errorf("ports = %s/%s, want 8080/9090", server.Port, server.HealthPort)
	}
	if !server.SecureCookies {
		t.Error("SecureCookies should default to true")
	}

	sess := loadSessionConfig()
	if sess.Durable != StoreSQLite || sess.Scoped != StoreMemory {
		t.Errorf("stores = %s/%s, want sqlite/memory", sess.Durable, sess.Scoped)
	}
	if sess.PurgeSchedule != "*/15 * * * *" {
		t.Errorf("PurgeSchedule = %q", sess.PurgeSchedule)
	}

	backend := loadBackendConfig()
	if backend.ValidateTimeout != 10*time.Second {
		t.Errorf("ValidateTimeout = %v, want 10s", backend.ValidateTimeout)
	}
}

func TestLoadSessionConfig(t *testing.T) {
	t.Setenv("VENUE_SESSION_DURABLE_STORE", "Redis")
	t.Setenv("VENUE_SESSION_SCOPED_STORE", "REDIS")
	t.Setenv("VENUE_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("VENUE_SESSION_DURABLE_TTL", "48h")

	cfg := loadSessionConfig()
	if cfg.Durable != StoreRedis || cfg.Scoped != StoreRedis {
		t.Errorf("stores = %s/%s, want redis/redis", cfg.Durable, cfg.Scoped)
	}
	if !cfg.UsesRedis() {
		t.Error("UsesRedis() = false, want true")
	}
	if cfg.DurableTTL != 48*time.Hour {
		t.Errorf("DurableTTL = %v, want 48h", cfg.DurableTTL)
	}
}

func TestLoadBackendConfigTrimsSlash(t *testing.T) {
	t.Setenv("VENUE_API_URL", "https://api.venue.test/")
	if got := loadBackendConfig().BaseURL; got != "https://api.venue.test" {
		t.Errorf("BaseURL = %q", got)
	}
}

func validConfig() Config {
	return Config{
		Server:  ServerConfig{Port: "8080", HealthPort: "9090"},
		Backend: BackendConfig{BaseURL: "https://api.venue.test", RateLimit: 10, Burst: 10},
		Session: SessionConfig{Durable: StoreSQLite, Scoped: StoreMemory, SQLDSN: ":memory:", PurgeSchedule: "*/5 * * * *"},
		Console: ConsoleConfig{LoginRateLimit: 10, LoginRateWindow: time.Minute},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing server port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"missing health port", func(c *Config) { c.Server.HealthPort = "" }, "health port is required"},
		{"same ports", func(c *Config) { c.Server.HealthPort = "8080" }, "server port and health port must be different"},
		{"missing api url", func(c *Config) { c.Backend.BaseURL = "" }, "VENUE_API_URL is required"},
		{"api url without scheme", func(c *Config) { c.Backend.BaseURL = "api.venue.test" }, "invalid venue API URL"},
		{"zero api rate", func(c *Config) { c.Backend.RateLimit = 0 }, "rate limit and burst must be positive"},
		{"unknown durable store", func(c *Config) { c.Session.Durable = "s3" }, "invalid durable session store"},
		{"file store without root", func(c *Config) { c.Session.Durable = StoreFile; c.Session.FileRoot = "" }, "file root is required"},
		{"sql store without dsn", func(c *Config) { c.Session.Durable = StorePostgres; c.Session.SQLDSN = "" }, "DSN is required for the postgres"},
		{"file scoped store", func(c *Config) { c.Session.Scoped = StoreFile }, "invalid scoped session store"},
		{"redis without url", func(c *Config) { c.Session.Scoped = StoreRedis }, "redis URL is required"},
		{"bad schedule", func(c *Config) { c.Session.PurgeSchedule = "every tuesday" }, "invalid purge schedule"},
		{"zero login limit", func(c *Config) { c.Console.LoginRateLimit = 0 }, "login rate limit"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelServiceName = "test"
		}, "OpenTelemetry endpoint is required"},
		{"otel without service name", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = "collector:4317"
		}, "OpenTelemetry service name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := validConfig()
	cfg.Session.RedisURL = "redis://cache:6379"
	cfg.Session.RedisPrefix = "vd"
	cfg.Observability.OTelEnabled = true
	cfg.Observability.OTelSampleRatio = 0.25

	redis := cfg.Redis("tab", time.Hour)
	if redis.Prefix != "vd:tab" || redis.TTL != time.Hour || redis.URL != "redis://cache:6379" {
		t.Errorf("Redis() = %+v", redis)
	}

	otel := cfg.OTel()
	if !otel.Enabled || otel.SampleRatio != 0.25 {
		t.Errorf("OTel() = %+v", otel)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "valid config",
			env: map[string]string{
				"VENUE_API_URL":               "https://api.venue.test",
				"VENUE_SESSION_DURABLE_STORE": "memory",
			},
		},
		{
			name:    "missing api url",
			env:     map[string]string{"VENUE_API_URL": ""},
			wantErr: true,
		},
		{
			name: "invalid config - same ports",
			env: map[string]string{
				"VENUE_API_URL":     "https://api.venue.test",
				"VENUE_PORT":        "8080",
				"VENUE_HEALTH_PORT": "8080",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && cfg == nil {
				t.Error("LoadConfig() returned nil config without error")
			}
		})
	}
}
