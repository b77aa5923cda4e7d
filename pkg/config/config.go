package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/beacon/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Analytics engine configuration
	Engine EngineConfig

	// Event stream configuration
	Stream StreamConfig

	// Alert thresholds
	Alerts AlertConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string
	Port        string
	ReadTimeout time.Duration
	// 0 disables the write deadline so event stream responses stay open
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CORS allowed origins
	CORSOrigins []string

	// Per-client request rate limiting
	RateLimitEnabled   bool
	RateLimitPerMinute int
	RateLimitBurst     int
}

// EngineConfig holds analytics engine configuration
type EngineConfig struct {
	// Directory for persisted metrics documents
	DataDir string

	// Development enables extra cleanup/restore logging
	Development bool

	// Stale-session cleanup cadence
	CleanupInterval time.Duration

	// State persistence cadence
	PersistInterval time.Duration

	// Own domain, classified as internal traffic
	SiteDomain string

	// Optional YAML rules file; empty disables hot reload
	SourceRulesFile string
}

// StreamConfig holds event stream configuration
type StreamConfig struct {
	// Per-observer channel capacity
	Buffer int

	// Broadcast cadences
	MetricsInterval   time.Duration
	HeartbeatInterval time.Duration
	StatusInterval    time.Duration
	AlertInterval     time.Duration
}

// AlertConfig holds alert evaluation thresholds
type AlertConfig struct {
	MaxErrorRate  float64 // errors per second
	MaxErrorRatio float64 // errors as a fraction of requests
	MaxBounceRate float64 // percent
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
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Engine:        loadEngineConfig(),
		Stream:        loadStreamConfig(),
		Alerts:        loadAlertConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:               getEnv("BEACON_HOST", "0.0.0.0"),
		Port:               getEnv("BEACON_PORT", "8080"),
		ReadTimeout:        getEnvDuration("BEACON_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvDuration("BEACON_WRITE_TIMEOUT", 0),
		IdleTimeout:        getEnvDuration("BEACON_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:    getEnvDuration("BEACON_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:         getEnv("BEACON_HEALTH_PORT", "9090"),
		CORSOrigins:        getEnvStrings("BEACON_CORS_ORIGINS", []string{"*"}),
		RateLimitEnabled:   getEnvBool("BEACON_RATE_LIMIT_ENABLED", false),
		RateLimitPerMinute: getEnvInt("BEACON_RATE_LIMIT_PER_MINUTE", 300),
		RateLimitBurst:     getEnvInt("BEACON_RATE_LIMIT_BURST", 50),
	}
}

// loadEngineConfig loads analytics engine configuration from environment
func loadEngineConfig() EngineConfig {
	return EngineConfig{
		DataDir:         getEnv("BEACON_DATA_DIR", "data/metrics"),
		Development:     getEnvBool("BEACON_DEVELOPMENT", false),
		CleanupInterval: getEnvDuration("BEACON_CLEANUP_INTERVAL", time.Hour),
		PersistInterval: getEnvDuration("BEACON_PERSIST_INTERVAL", 5*time.Minute),
		SiteDomain:      getEnv("BEACON_SITE_DOMAIN", ""),
		SourceRulesFile: getEnv("BEACON_SOURCE_RULES", ""),
	}
}

// loadStreamConfig loads event stream configuration from environment
func loadStreamConfig() StreamConfig {
	return StreamConfig{
		Buffer:            getEnvInt("BEACON_STREAM_BUFFER", 16),
		MetricsInterval:   getEnvDuration("BEACON_METRICS_BROADCAST_INTERVAL", 5*time.Second),
		HeartbeatInterval: getEnvDuration("BEACON_HEARTBEAT_INTERVAL", 30*time.Second),
		StatusInterval:    getEnvDuration("BEACON_STATUS_INTERVAL", 60*time.Second),
		AlertInterval:     getEnvDuration("BEACON_ALERT_INTERVAL", 60*time.Second),
	}
}

// loadAlertConfig loads alert thresholds from environment
func loadAlertConfig() AlertConfig {
	return AlertConfig{
		MaxErrorRate:  getEnvFloat("BEACON_ALERT_MAX_ERROR_RATE", 1.0),
		MaxErrorRatio: getEnvFloat("BEACON_ALERT_MAX_ERROR_RATIO", 0.05),
		MaxBounceRate: getEnvFloat("BEACON_ALERT_MAX_BOUNCE_RATE", 90.0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:           observability.ParseLevel(getEnv("BEACON_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("BEACON_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BEACON_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BEACON_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BEACON_OTEL_SERVICE_NAME", "beacon"),
		OTelServiceVersion: getEnv("BEACON_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BEACON_OTEL_INSECURE", true),
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.RateLimitEnabled {
		if c.Server.RateLimitPerMinute < 1 {
			return fmt.Errorf("rate limit per minute must be at least 1 when rate limiting is enabled")
		}
		if c.Server.RateLimitBurst < 1 {
			return fmt.Errorf("rate limit burst must be at least 1 when rate limiting is enabled")
		}
	}

	// Validate engine config
	if c.Engine.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.Engine.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}
	if c.Engine.PersistInterval <= 0 {
		return fmt.Errorf("persist interval must be positive")
	}

	// Validate stream config
	if c.Stream.Buffer < 1 {
		return fmt.Errorf("stream buffer must be at least 1")
	}
	if c.Stream.MetricsInterval <= 0 || c.Stream.HeartbeatInterval <= 0 ||
		c.Stream.StatusInterval <= 0 || c.Stream.AlertInterval <= 0 {
		return fmt.Errorf("stream broadcast intervals must be positive")
	}

	// Validate alert thresholds
	if c.Alerts.MaxErrorRate < 0 || c.Alerts.MaxErrorRatio < 0 || c.Alerts.MaxBounceRate < 0 {
		return fmt.Errorf("alert thresholds must not be negative")
	}

	// Validate OpenTelemetry config
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

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvStrings returns a comma-separated environment variable as a slice or a default
func getEnvStrings(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
