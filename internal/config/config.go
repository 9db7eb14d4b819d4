package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFS       = "fs"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Failure policies for the processor when one text item fails.
const (
	FailurePolicyFail    = "fail"
	FailurePolicyPartial = "partial"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	StoreBackend      string        `envconfig:"STORE_BACKEND" default:"fs"`
	DataDir           string        `envconfig:"DATA_DIR" default:"./data"`
	DatabaseURL       string        `envconfig:"DATABASE_URL" default:""`
	SQLitePath        string        `envconfig:"SQLITE_PATH" default:"./data/lingodrop.db"`
	DBMinConns        int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"8"`
	WatchPollInterval time.Duration `envconfig:"WATCH_POLL_INTERVAL" default:"2s"`

	KeyPattern    string `envconfig:"KEY_PATTERN" default:"*.json"`
	WorkerCount   int    `envconfig:"WORKER_COUNT" default:"4"`
	FailurePolicy string `envconfig:"FAILURE_POLICY" default:"fail"`

	ProviderRateLimit    float64       `envconfig:"PROVIDER_RATE_LIMIT" default:"0"`
	ProviderRateBurst    int           `envconfig:"PROVIDER_RATE_BURST" default:"1"`
	ProviderRetries      int           `envconfig:"PROVIDER_RETRIES" default:"3"`
	ProviderRetryBackoff time.Duration `envconfig:"PROVIDER_RETRY_BACKOFF" default:"500ms"`
	ProviderBreaker      bool          `envconfig:"PROVIDER_BREAKER" default:"true"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	// Normalize the enum-style fields so later exact-match switches see
	// canonical values.
	c.StoreBackend = strings.TrimSpace(strings.ToLower(c.StoreBackend))
	c.FailurePolicy = strings.TrimSpace(strings.ToLower(c.FailurePolicy))

	switch c.StoreBackend {
	case BackendMemory, BackendFS, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, fs, postgres, sqlite")
	}
	if c.StoreBackend == BackendPostgres && strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}
	if c.StoreBackend == BackendFS && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DATA_DIR is required when STORE_BACKEND=fs")
	}
	if c.StoreBackend == BackendSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND=sqlite")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.WatchPollInterval < 100*time.Millisecond {
		return fmt.Errorf("WATCH_POLL_INTERVAL must be >= 100ms")
	}
	if strings.TrimSpace(c.KeyPattern) == "" {
		return fmt.Errorf("KEY_PATTERN is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be >= 1")
	}
	switch c.FailurePolicy {
	case FailurePolicyFail, FailurePolicyPartial:
	default:
		return fmt.Errorf("FAILURE_POLICY must be fail or partial")
	}
	if c.ProviderRateLimit < 0 {
		return fmt.Errorf("PROVIDER_RATE_LIMIT must be >= 0")
	}
	if c.ProviderRateBurst < 1 {
		return fmt.Errorf("PROVIDER_RATE_BURST must be >= 1")
	}
	if c.ProviderRetries < 0 {
		return fmt.Errorf("PROVIDER_RETRIES must be >= 0")
	}
	if c.ProviderRetryBackoff < 0 {
		return fmt.Errorf("PROVIDER_RETRY_BACKOFF must be >= 0")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
