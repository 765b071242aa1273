package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/assets"
	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/storage"
)

// Config holds all engine configuration, loaded from environment variables.
type Config struct {
	Server        ServerConfig
	Database      storage.ConnectionConfig
	Redis         RedisConfig
	Assets        assets.S3Config
	Policy        PolicyConfig
	Search        SearchConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s liveness checks)
	HealthPort string

	AllowedOrigins []string
	MaxBodyBytes   int64
}

// RedisConfig holds the principal cache configuration.
type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// PolicyConfig holds the deployment policy knobs; ToPolicy converts it to
// the engine's immutable configuration value.
type PolicyConfig struct {
	RBACEnabled         bool
	Workflow            string
	MaxItemsPerPlaylist int
	SharedFanoutCap     int
	ResultCap           int
}

// SearchConfig holds search tuning.
type SearchConfig struct {
	// StopWordFile is an optional YAML file overriding the built-in
	// stop-word set; it is hot-reloaded on change.
	StopWordFile string
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Assets:        loadAssetsConfig(),
		Policy:        loadPolicyConfig(),
		Search:        loadSearchConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MEDIACMS_HOST", "0.0.0.0"),
		Port:            getEnv("MEDIACMS_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MEDIACMS_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MEDIACMS_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("MEDIACMS_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MEDIACMS_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("MEDIACMS_HEALTH_PORT", "9090"),
		AllowedOrigins:  splitList(getEnv("MEDIACMS_ALLOWED_ORIGINS", "*")),
		MaxBodyBytes:    int64(getEnvInt("MEDIACMS_MAX_BODY_BYTES", 10<<20)),
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadDatabaseConfig() storage.ConnectionConfig {
	cfg := storage.ConnectionConfig{
		PrimaryURL:  getEnv("MEDIACMS_POSTGRES_URL", ""),
		MaxConns:    getEnvInt("MEDIACMS_POSTGRES_MAX_CONNS", 25),
		MinConns:    getEnvInt("MEDIACMS_POSTGRES_MIN_CONNS", 5),
		Timeout:     getEnvDuration("MEDIACMS_POSTGRES_TIMEOUT", 10*time.Second),
		MaxLifetime: getEnvDuration("MEDIACMS_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		MaxIdleTime: getEnvDuration("MEDIACMS_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
	}

	if replicaURLs := getEnv("MEDIACMS_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		for _, url := range strings.Split(replicaURLs, ",") {
			if url = strings.TrimSpace(url); url != "" {
				cfg.ReplicaURLs = append(cfg.ReplicaURLs, url)
			}
		}
	}

	return cfg
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("MEDIACMS_REDIS_URL", ""),
		CacheTTL: getEnvDuration("MEDIACMS_REDIS_CACHE_TTL", 5*time.Minute),
	}
}

func loadAssetsConfig() assets.S3Config {
	return assets.S3Config{
		Bucket:    getEnv("MEDIACMS_S3_BUCKET", ""),
		Prefix:    getEnv("MEDIACMS_S3_PREFIX", ""),
		Region:    getEnv("MEDIACMS_S3_REGION", "us-east-1"),
		Endpoint:  getEnv("MEDIACMS_S3_ENDPOINT", ""),
		AccessKey: getEnv("MEDIACMS_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("MEDIACMS_S3_SECRET_KEY", ""),
	}
}

func loadPolicyConfig() PolicyConfig {
	defaults := policy.DefaultConfiguration()
	return PolicyConfig{
		RBACEnabled:         getEnvBool("MEDIACMS_RBAC_ENABLED", defaults.RBACEnabled),
		Workflow:            getEnv("MEDIACMS_WORKFLOW", string(defaults.Workflow)),
		MaxItemsPerPlaylist: getEnvInt("MEDIACMS_MAX_ITEMS_PER_PLAYLIST", defaults.MaxItemsPerPlaylist),
		SharedFanoutCap:     getEnvInt("MEDIACMS_SHARED_FANOUT_CAP", defaults.SharedFanoutCap),
		ResultCap:           getEnvInt("MEDIACMS_RESULT_CAP", defaults.ResultCap),
	}
}

func loadSearchConfig() SearchConfig {
	return SearchConfig{
		StopWordFile: getEnv("MEDIACMS_STOP_WORD_FILE", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("MEDIACMS_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("MEDIACMS_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("MEDIACMS_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MEDIACMS_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MEDIACMS_OTEL_SERVICE_NAME", "mediacms-engine"),
		OTelServiceVersion: getEnv("MEDIACMS_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("MEDIACMS_OTEL_INSECURE", true),
	}
}

// ToPolicy converts the loaded policy knobs into the engine's configuration
// value.
func (p PolicyConfig) ToPolicy() (policy.Configuration, error) {
	workflow, err := media.ParseWorkflow(p.Workflow)
	if err != nil {
		return policy.Configuration{}, err
	}

	cfg := policy.DefaultConfiguration()
	cfg.RBACEnabled = p.RBACEnabled
	cfg.Workflow = workflow
	cfg.MaxItemsPerPlaylist = p.MaxItemsPerPlaylist
	cfg.SharedFanoutCap = p.SharedFanoutCap
	cfg.ResultCap = p.ResultCap
	return cfg, nil
}

// Validate checks if the configuration is valid.
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

	if c.Database.PrimaryURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if _, err := media.ParseWorkflow(c.Policy.Workflow); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}
	if c.Policy.MaxItemsPerPlaylist <= 0 {
		return fmt.Errorf("max items per playlist must be positive")
	}
	if c.Policy.ResultCap <= 0 || c.Policy.SharedFanoutCap <= 0 {
		return fmt.Errorf("result and fan-out caps must be positive")
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

// parseLogLevel parses a log level string.
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

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
