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
//	MEDIACMS_HOST="0.0.0.0"
//	MEDIACMS_PORT="8080"
//	MEDIACMS_HEALTH_PORT="9090"
//	MEDIACMS_READ_TIMEOUT="15s"
//	MEDIACMS_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	MEDIACMS_POSTGRES_URL="postgres://localhost/mediacms"
//	MEDIACMS_POSTGRES_REPLICA_URLS="postgres://replica1/mediacms,postgres://replica2/mediacms"
//	MEDIACMS_POSTGRES_MAX_CONNS="25"
//
// Asset store settings:
//
//	MEDIACMS_S3_BUCKET="mediacms-files"
//	MEDIACMS_S3_REGION="us-east-1"
//	MEDIACMS_S3_ENDPOINT=""  # set for MinIO and other S3-compatible stores
//
// Policy settings:
//
//	MEDIACMS_RBAC_ENABLED="false"
//	MEDIACMS_WORKFLOW="private"  # private, public, unlisted
//	MEDIACMS_MAX_ITEMS_PER_PLAYLIST="100"
//	MEDIACMS_RESULT_CAP="1000"
//
// Cache settings:
//
//	MEDIACMS_REDIS_URL="redis://localhost:6379"
//	MEDIACMS_REDIS_CACHE_TTL="5m"
//
// Observability settings:
//
//	MEDIACMS_LOG_LEVEL="info"  # debug, info, warn, error
//	MEDIACMS_METRICS_ENABLED="true"
//	MEDIACMS_OTEL_ENABLED="true"
//	MEDIACMS_OTEL_ENDPOINT="otel-collector:4317"
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
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage: Uses database configuration
//   - pkg/policy: Built from policy settings via PolicyConfig.ToPolicy
//   - pkg/observability: Uses observability configuration
package config
