package config

import (
	"reflect"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment:          "local",
		LogLevel:             "info",
		StoreBackend:         BackendFS,
		DataDir:              "./data",
		SQLitePath:           "./data/lingodrop.db",
		DBMinConns:           1,
		DBMaxConns:           8,
		WatchPollInterval:    2 * time.Second,
		KeyPattern:           "*.json",
		WorkerCount:          4,
		FailurePolicy:        FailurePolicyFail,
		ProviderRateLimit:    0,
		ProviderRateBurst:    1,
		ProviderRetries:      3,
		ProviderRetryBackoff: 500 * time.Millisecond,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }},
		{"postgres without url", func(c *Config) { c.StoreBackend = BackendPostgres; c.DatabaseURL = "  " }},
		{"fs without data dir", func(c *Config) { c.StoreBackend = BackendFS; c.DataDir = "" }},
		{"sqlite without path", func(c *Config) { c.StoreBackend = BackendSQLite; c.SQLitePath = "" }},
		{"negative min conns", func(c *Config) { c.DBMinConns = -1 }},
		{"zero max conns", func(c *Config) { c.DBMaxConns = 0 }},
		{"min exceeds max conns", func(c *Config) { c.DBMinConns = 9; c.DBMaxConns = 8 }},
		{"watch poll too short", func(c *Config) { c.WatchPollInterval = 50 * time.Millisecond }},
		{"blank key pattern", func(c *Config) { c.KeyPattern = "   " }},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }},
		{"unknown failure policy", func(c *Config) { c.FailurePolicy = "retry" }},
		{"negative rate limit", func(c *Config) { c.ProviderRateLimit = -1 }},
		{"zero rate burst", func(c *Config) { c.ProviderRateBurst = 0 }},
		{"negative retries", func(c *Config) { c.ProviderRetries = -1 }},
		{"negative retry backoff", func(c *Config) { c.ProviderRetryBackoff = -time.Second }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidateAcceptsMixedCaseBackend(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.StoreBackend = " Memory "
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected trimmed lowercase match, got %v", err)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("expected normalized backend %q, got %q", BackendMemory, cfg.StoreBackend)
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "https://horse.fit", []string{"https://horse.fit"}},
		{"trims and dedups", " https://a.example , https://b.example ,https://a.example,, ", []string{"https://a.example", "https://b.example"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.CORSAllowedOrigins = tc.raw
			got := cfg.CORSAllowedOriginsList()
			if tc.want == nil {
				if len(got) != 0 {
					t.Fatalf("expected no origins, got %v", got)
				}
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("origins mismatch: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCORSAllowedOriginsListNilConfig(t *testing.T) {
	t.Parallel()

	var cfg *Config
	if got := cfg.CORSAllowedOriginsList(); got != nil {
		t.Fatalf("expected nil for nil config, got %v", got)
	}
}
