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
//	BEACON_HOST="0.0.0.0"
//	BEACON_PORT="8080"
//	BEACON_HEALTH_PORT="9090"
//	BEACON_READ_TIMEOUT="15s"
//	BEACON_WRITE_TIMEOUT="0"  # 0 keeps event stream responses open
//	BEACON_RATE_LIMIT_ENABLED="false"
//	BEACON_CORS_ORIGINS="*"
//
// Engine settings:
//
//	BEACON_DATA_DIR="data/metrics"
//	BEACON_DEVELOPMENT="false"
//	BEACON_CLEANUP_INTERVAL="1h"
//	BEACON_PERSIST_INTERVAL="5m"
//	BEACON_SITE_DOMAIN="example.com"
//	BEACON_SOURCE_RULES="/etc/beacon/sources.yaml"
//
// Stream settings:
//
//	BEACON_STREAM_BUFFER="16"
//	BEACON_METRICS_BROADCAST_INTERVAL="5s"
//	BEACON_HEARTBEAT_INTERVAL="30s"
//
// Alert thresholds:
//
//	BEACON_ALERT_MAX_ERROR_RATE="1.0"   # errors per second
//	BEACON_ALERT_MAX_ERROR_RATIO="0.05" # errors / requests
//	BEACON_ALERT_MAX_BOUNCE_RATE="90"   # percent
//
// Observability settings:
//
//	BEACON_LOG_LEVEL="info"  # debug, info, warn, error
//	BEACON_METRICS_ENABLED="true"
//	BEACON_OTEL_ENABLED="false"
//	BEACON_OTEL_ENDPOINT="otel-collector:4317"
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
//	fmt.Printf("Data dir: %s\n", cfg.Engine.DataDir)
//	fmt.Printf("Log level: %v\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/analytics: Consumes engine and alert configuration
//   - pkg/observability: Uses observability configuration
package config
