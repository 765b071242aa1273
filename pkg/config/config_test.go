package config

import (
	"os"
	"testing"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
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
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{name: "returns true for 'true'", key: "TEST_BOOL", envValue: "true", want: true},
		{name: "returns true for '1'", key: "TEST_BOOL", envValue: "1", want: true},
		{name: "returns false for 'false'", key: "TEST_BOOL", defaultValue: true, envValue: "false", want: false},
		{name: "returns default when not set", key: "TEST_BOOL_NOT_SET", defaultValue: true, envValue: "", want: true},
		{name: "returns true for 'TRUE' (case insensitive)", key: "TEST_BOOL", envValue: "TRUE", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{name: "returns parsed int", key: "TEST_INT", defaultValue: 10, envValue: "42", want: 42},
		{name: "returns default when not set", key: "TEST_INT_NOT_SET", defaultValue: 10, envValue: "", want: 10},
		{name: "returns default for invalid int", key: "TEST_INT", defaultValue: 10, envValue: "not-a-number", want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{name: "returns parsed duration", key: "TEST_DUR", defaultValue: time.Second, envValue: "45s", want: 45 * time.Second},
		{name: "returns default when not set", key: "TEST_DUR_NOT_SET", defaultValue: time.Second, envValue: "", want: time.Second},
		{name: "returns default for invalid duration", key: "TEST_DUR", defaultValue: time.Second, envValue: "forever", want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnvDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseLogLevel tests log level parsing
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  observability.LogLevel
	}{
		{"debug", observability.DebugLevel},
		{"info", observability.InfoLevel},
		{"warn", observability.WarnLevel},
		{"warning", observability.WarnLevel},
		{"error", observability.ErrorLevel},
		{"ERROR", observability.ErrorLevel},
		{"unknown", observability.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestLoadConfigDefaults tests loading with only the required settings
func TestLoadConfigDefaults(t *testing.T) {
	os.Setenv("MEDIACMS_POSTGRES_URL", "postgres://localhost/mediacms_test")
	defer os.Unsetenv("MEDIACMS_POSTGRES_URL")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("Server.HealthPort = %v, want 9090", cfg.Server.HealthPort)
	}
	if cfg.Policy.Workflow != "private" {
		t.Errorf("Policy.Workflow = %v, want private", cfg.Policy.Workflow)
	}
	if cfg.Policy.RBACEnabled {
		t.Error("Policy.RBACEnabled = true, want false by default")
	}
	if cfg.Policy.ResultCap != 1000 {
		t.Errorf("Policy.ResultCap = %v, want 1000", cfg.Policy.ResultCap)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %v, want 25", cfg.Database.MaxConns)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("Observability.LogLevel = %v, want info", cfg.Observability.LogLevel)
	}
}

// TestLoadConfigFromEnvironment tests loading overridden settings
func TestLoadConfigFromEnvironment(t *testing.T) {
	env := map[string]string{
		"MEDIACMS_POSTGRES_URL":           "postgres://primary/mediacms",
		"MEDIACMS_POSTGRES_REPLICA_URLS":  "postgres://r1/mediacms, postgres://r2/mediacms",
		"MEDIACMS_RBAC_ENABLED":           "true",
		"MEDIACMS_WORKFLOW":               "public",
		"MEDIACMS_MAX_ITEMS_PER_PLAYLIST": "50",
		"MEDIACMS_REDIS_CACHE_TTL":        "2m",
		"MEDIACMS_LOG_LEVEL":              "debug",
	}
	for k, v := range env {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range env {
			os.Unsetenv(k)
		}
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.Database.ReplicaURLs) != 2 {
		t.Errorf("Database.ReplicaURLs = %v, want 2 entries", cfg.Database.ReplicaURLs)
	}
	if !cfg.Policy.RBACEnabled {
		t.Error("Policy.RBACEnabled = false, want true")
	}
	if cfg.Policy.MaxItemsPerPlaylist != 50 {
		t.Errorf("Policy.MaxItemsPerPlaylist = %v, want 50", cfg.Policy.MaxItemsPerPlaylist)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("Redis.CacheTTL = %v, want 2m", cfg.Redis.CacheTTL)
	}

	pol, err := cfg.Policy.ToPolicy()
	if err != nil {
		t.Fatalf("ToPolicy() error = %v", err)
	}
	if pol.Workflow != media.WorkflowPublic {
		t.Errorf("ToPolicy().Workflow = %v, want public", pol.Workflow)
	}
}

// TestValidate tests configuration validation rules
func TestValidate(t *testing.T) {
	valid := &Config{
		Server:   ServerConfig{Port: "8080", HealthPort: "9090"},
		Database: loadDatabaseConfig(),
		Policy:   loadPolicyConfig(),
	}
	valid.Database.PrimaryURL = "postgres://localhost/mediacms"
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid config error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }},
		{"same port and health port", func(c *Config) { c.Server.HealthPort = c.Server.Port }},
		{"missing postgres URL", func(c *Config) { c.Database.PrimaryURL = "" }},
		{"invalid workflow", func(c *Config) { c.Policy.Workflow = "draft" }},
		{"non-positive playlist cap", func(c *Config) { c.Policy.MaxItemsPerPlaylist = 0 }},
		{"otel enabled without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

// TestLoadServerConfigOrigins tests allowed-origin parsing
func TestLoadServerConfigOrigins(t *testing.T) {
	os.Setenv("MEDIACMS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	defer os.Unsetenv("MEDIACMS_ALLOWED_ORIGINS")

	cfg := loadServerConfig()
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[0] != "https://a.example.com" || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxBodyBytes != 10<<20 {
		t.Errorf("MaxBodyBytes = %d, want default 10MB", cfg.MaxBodyBytes)
	}
}
