package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/protorules/pkg/cache"
	"github.com/platinummonkey/protorules/pkg/compiler"
	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/store"
)

// RegexPrefix marks an empty matcher as a regular expression
const RegexPrefix = "regex:"

// Config holds all application configuration
type Config struct {
	// Compiler configuration
	Compiler CompilerConfig `yaml:"compiler"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Source store configuration
	Store StoreConfig `yaml:"store"`

	// Watch configuration
	Watch WatchConfig `yaml:"watch"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// CompilerConfig holds schema compiler settings
type CompilerConfig struct {
	// EmptyMatchers are literal strings, or patterns prefixed with "regex:",
	// treated as absent values on every field.
	EmptyMatchers   []string `yaml:"empty_matchers"`
	EnumsAsIntegers bool     `yaml:"enums_as_integers"`
	StrictTypes     bool     `yaml:"strict_types"`
	CycleGuard      string   `yaml:"cycle_guard"` // parent or ancestors
	MaxDepth        int      `yaml:"max_depth"`
}

// CacheConfig holds compiled schema cache settings
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// StoreConfig holds settings of the persistent schema source store
type StoreConfig struct {
	Type      string        `yaml:"type"` // memory, sqlite, postgres, redis, s3 or empty
	URL       string        `yaml:"url"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxConns  int           `yaml:"max_conns"`

	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`
}

// WatchConfig holds settings of the watch command
type WatchConfig struct {
	// Rescan is a cron schedule for full directory rescans, empty to disable
	Rescan string `yaml:"rescan"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`

	// OpenTelemetry
	OTelEnabled  bool   `yaml:"otel_enabled"`
	OTelEndpoint string `yaml:"otel_endpoint"`
	OTelInsecure bool   `yaml:"otel_insecure"`
	ServiceName  string `yaml:"service_name"`
}

// Default returns the default configuration
func Default() *Config {
	cacheDefaults := cache.DefaultConfig()
	storeDefaults := store.DefaultConfig()
	return &Config{
		Compiler: CompilerConfig{
			CycleGuard: compiler.CycleGuardParent.String(),
			MaxDepth:   compiler.DefaultMaxDepth,
		},
		Cache: CacheConfig{
			MaxEntries: cacheDefaults.MaxEntries,
			TTL:        cacheDefaults.TTL,
		},
		Store: StoreConfig{
			KeyPrefix: storeDefaults.KeyPrefix,
			Timeout:   storeDefaults.Timeout,
			MaxConns:  storeDefaults.MaxConns,
			S3Region:  storeDefaults.S3Region,
		},
		Observability: ObservabilityConfig{
			LogLevel:     "info",
			MetricsAddr:  ":9090",
			OTelEndpoint: "localhost:4317",
			OTelInsecure: true,
			ServiceName:  "protorules",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// PROTORULES_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// decode merges a YAML document into cfg. Unknown keys are rejected.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides cfg from environment variables
func applyEnv(cfg *Config) error {
	if raw := os.Getenv("PROTORULES_EMPTY_MATCHERS"); raw != "" {
		var matchers []string
		if err := yaml.Unmarshal([]byte(raw), &matchers); err != nil {
			return fmt.Errorf("PROTORULES_EMPTY_MATCHERS must be a YAML list: %w", err)
		}
		cfg.Compiler.EmptyMatchers = matchers
	}
	cfg.Compiler.EnumsAsIntegers = getEnvBool("PROTORULES_ENUMS_AS_INTEGERS", cfg.Compiler.EnumsAsIntegers)
	cfg.Compiler.StrictTypes = getEnvBool("PROTORULES_STRICT_TYPES", cfg.Compiler.StrictTypes)
	cfg.Compiler.CycleGuard = getEnv("PROTORULES_CYCLE_GUARD", cfg.Compiler.CycleGuard)
	cfg.Compiler.MaxDepth = getEnvInt("PROTORULES_MAX_DEPTH", cfg.Compiler.MaxDepth)

	cfg.Cache.MaxEntries = getEnvInt("PROTORULES_CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)
	cfg.Cache.TTL = getEnvDuration("PROTORULES_CACHE_TTL", cfg.Cache.TTL)

	cfg.Store.Type = getEnv("PROTORULES_STORE_TYPE", cfg.Store.Type)
	cfg.Store.URL = getEnv("PROTORULES_STORE_URL", cfg.Store.URL)
	cfg.Store.KeyPrefix = getEnv("PROTORULES_STORE_PREFIX", cfg.Store.KeyPrefix)
	cfg.Store.TTL = getEnvDuration("PROTORULES_STORE_TTL", cfg.Store.TTL)
	cfg.Store.S3Bucket = getEnv("PROTORULES_S3_BUCKET", cfg.Store.S3Bucket)
	cfg.Store.S3Region = getEnv("PROTORULES_S3_REGION", cfg.Store.S3Region)
	cfg.Store.S3Endpoint = getEnv("PROTORULES_S3_ENDPOINT", cfg.Store.S3Endpoint)
	cfg.Store.S3AccessKey = getEnv("PROTORULES_S3_ACCESS_KEY", cfg.Store.S3AccessKey)
	cfg.Store.S3SecretKey = getEnv("PROTORULES_S3_SECRET_KEY", cfg.Store.S3SecretKey)
	cfg.Store.S3UsePathStyle = getEnvBool("PROTORULES_S3_PATH_STYLE", cfg.Store.S3UsePathStyle)

	cfg.Observability.LogLevel = getEnv("PROTORULES_LOG_LEVEL", cfg.Observability.LogLevel)
	cfg.Observability.MetricsEnabled = getEnvBool("PROTORULES_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.MetricsAddr = getEnv("PROTORULES_METRICS_ADDR", cfg.Observability.MetricsAddr)
	cfg.Observability.OTelEnabled = getEnvBool("PROTORULES_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("PROTORULES_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelInsecure = getEnvBool("PROTORULES_OTEL_INSECURE", cfg.Observability.OTelInsecure)
	cfg.Observability.ServiceName = getEnv("PROTORULES_SERVICE_NAME", cfg.Observability.ServiceName)

	cfg.Watch.Rescan = getEnv("PROTORULES_WATCH_RESCAN", cfg.Watch.Rescan)
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := parseCycleGuard(c.Compiler.CycleGuard); err != nil {
		return err
	}
	if c.Compiler.MaxDepth < 1 {
		return fmt.Errorf("max depth must be positive, got %d", c.Compiler.MaxDepth)
	}
	if _, err := c.emptyMatchers(); err != nil {
		return err
	}

	if err := c.CacheConfig().Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.StoreConfig().Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if _, err := observability.ParseLogLevel(c.Observability.LogLevel); err != nil {
		return err
	}
	if c.Observability.MetricsEnabled && c.Observability.MetricsAddr == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}
	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("otel endpoint is required when otel is enabled")
	}

	if c.Watch.Rescan != "" {
		if _, err := cron.ParseStandard(c.Watch.Rescan); err != nil {
			return fmt.Errorf("invalid rescan schedule %q: %w", c.Watch.Rescan, err)
		}
	}

	return nil
}

// CompilerOptions converts the compiler section into compiler options
func (c *Config) CompilerOptions() ([]compiler.Option, error) {
	guard, err := parseCycleGuard(c.Compiler.CycleGuard)
	if err != nil {
		return nil, err
	}
	matchers, err := c.emptyMatchers()
	if err != nil {
		return nil, err
	}

	opts := []compiler.Option{
		compiler.WithEnumsAsIntegers(c.Compiler.EnumsAsIntegers),
		compiler.WithStrictTypes(c.Compiler.StrictTypes),
		compiler.WithCycleGuard(guard),
		compiler.WithMaxDepth(c.Compiler.MaxDepth),
	}
	if len(matchers) > 0 {
		opts = append(opts, compiler.WithEmptyMatchers(matchers...))
	}
	return opts, nil
}

// CacheConfig converts the cache section into a cache configuration
func (c *Config) CacheConfig() *cache.Config {
	return &cache.Config{
		MaxEntries: c.Cache.MaxEntries,
		TTL:        c.Cache.TTL,
	}
}

// StoreConfig converts the store section into a source store configuration
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Type:           strings.ToLower(c.Store.Type),
		URL:            c.Store.URL,
		KeyPrefix:      c.Store.KeyPrefix,
		TTL:            c.Store.TTL,
		Timeout:        c.Store.Timeout,
		MaxConns:       c.Store.MaxConns,
		S3Bucket:       c.Store.S3Bucket,
		S3Region:       c.Store.S3Region,
		S3Endpoint:     c.Store.S3Endpoint,
		S3AccessKey:    c.Store.S3AccessKey,
		S3SecretKey:    c.Store.S3SecretKey,
		S3UsePathStyle: c.Store.S3UsePathStyle,
	}
}

// TelemetryConfig converts the observability section into an OTLP export configuration
func (c *Config) TelemetryConfig(version string) observability.TelemetryConfig {
	return observability.TelemetryConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.ServiceName,
		ServiceVersion: version,
		Insecure:       c.Observability.OTelInsecure,
	}
}

// LogLevel returns the configured log level
func (c *Config) LogLevel() observability.LogLevel {
	level, err := observability.ParseLogLevel(c.Observability.LogLevel)
	if err != nil {
		return observability.InfoLevel
	}
	return level
}

func (c *Config) emptyMatchers() ([]any, error) {
	matchers := make([]any, 0, len(c.Compiler.EmptyMatchers))
	for _, m := range c.Compiler.EmptyMatchers {
		if pattern, ok := strings.CutPrefix(m, RegexPrefix); ok {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid empty matcher %q: %w", m, err)
			}
			matchers = append(matchers, re)
			continue
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

func parseCycleGuard(value string) (compiler.CycleGuard, error) {
	switch strings.ToLower(value) {
	case "", "parent":
		return compiler.CycleGuardParent, nil
	case "ancestors":
		return compiler.CycleGuardAncestors, nil
	default:
		return compiler.CycleGuardParent, fmt.Errorf("invalid cycle guard: %s (must be parent or ancestors)", value)
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
