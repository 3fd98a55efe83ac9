package config

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/protorules/pkg/compiler"
	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/store"
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
			key:          "PROTORULES_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "PROTORULES_TEST_VAR_NOT_SET",
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
		{
			name:         "returns true for 'true'",
			key:          "PROTORULES_TEST_BOOL",
			defaultValue: false,
			envValue:     "true",
			want:         true,
		},
		{
			name:         "returns true for '1'",
			key:          "PROTORULES_TEST_BOOL",
			defaultValue: false,
			envValue:     "1",
			want:         true,
		},
		{
			name:         "returns false for 'false'",
			key:          "PROTORULES_TEST_BOOL",
			defaultValue: true,
			envValue:     "false",
			want:         false,
		},
		{
			name:         "returns default when not set",
			key:          "PROTORULES_TEST_BOOL_NOT_SET",
			defaultValue: true,
			envValue:     "",
			want:         true,
		},
		{
			name:         "returns true for 'TRUE' (case insensitive)",
			key:          "PROTORULES_TEST_BOOL",
			defaultValue: false,
			envValue:     "TRUE",
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
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
		{
			name:         "returns parsed int",
			key:          "PROTORULES_TEST_INT",
			defaultValue: 10,
			envValue:     "42",
			want:         42,
		},
		{
			name:         "returns default for invalid int",
			key:          "PROTORULES_TEST_INT",
			defaultValue: 10,
			envValue:     "invalid",
			want:         10,
		},
		{
			name:         "returns default when not set",
			key:          "PROTORULES_TEST_INT_NOT_SET",
			defaultValue: 10,
			envValue:     "",
			want:         10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
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
		{
			name:         "returns parsed duration",
			key:          "PROTORULES_TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			want:         30 * time.Second,
		},
		{
			name:         "returns default for invalid duration",
			key:          "PROTORULES_TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "PROTORULES_TEST_DURATION_NOT_SET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protorules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "parent", cfg.Compiler.CycleGuard)
	assert.Equal(t, compiler.DefaultMaxDepth, cfg.Compiler.MaxDepth)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel())
}

func TestLoad(t *testing.T) {
	t.Run("without file uses defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("from yaml file", func(t *testing.T) {
		path := writeConfig(t, `
compiler:
  empty_matchers: ["", "regex:^\\s+$"]
  enums_as_integers: true
  strict_types: true
  cycle_guard: ancestors
  max_depth: 12
cache:
  max_entries: 8
  ttl: 90s
watch:
  rescan: "@every 1m"
observability:
  log_level: debug
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, []string{"", `regex:^\s+$`}, cfg.Compiler.EmptyMatchers)
		assert.True(t, cfg.Compiler.EnumsAsIntegers)
		assert.True(t, cfg.Compiler.StrictTypes)
		assert.Equal(t, "ancestors", cfg.Compiler.CycleGuard)
		assert.Equal(t, 12, cfg.Compiler.MaxDepth)
		assert.Equal(t, 8, cfg.Cache.MaxEntries)
		assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
		assert.Equal(t, observability.DebugLevel, cfg.LogLevel())
		assert.Equal(t, "@every 1m", cfg.Watch.Rescan)
		assert.Equal(t, ":9090", cfg.Observability.MetricsAddr, "unset keys keep defaults")
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, ""))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "compiler:\n  enums: true\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open config file")
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "compiler:\n  cycle_guard: everything\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cycle guard")
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "compiler:\n  max_depth: 12\ncache:\n  max_entries: 8\n")

	t.Setenv("PROTORULES_MAX_DEPTH", "20")
	t.Setenv("PROTORULES_ENUMS_AS_INTEGERS", "true")
	t.Setenv("PROTORULES_EMPTY_MATCHERS", `["", "N/A"]`)
	t.Setenv("PROTORULES_CYCLE_GUARD", "ancestors")
	t.Setenv("PROTORULES_CACHE_TTL", "1h")
	t.Setenv("PROTORULES_LOG_LEVEL", "warn")
	t.Setenv("PROTORULES_METRICS_ENABLED", "1")
	t.Setenv("PROTORULES_OTEL_ENABLED", "true")
	t.Setenv("PROTORULES_OTEL_ENDPOINT", "otel:4317")
	t.Setenv("PROTORULES_WATCH_RESCAN", "@hourly")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Compiler.MaxDepth)
	assert.True(t, cfg.Compiler.EnumsAsIntegers)
	assert.Equal(t, []string{"", "N/A"}, cfg.Compiler.EmptyMatchers)
	assert.Equal(t, "ancestors", cfg.Compiler.CycleGuard)
	assert.Equal(t, 8, cfg.Cache.MaxEntries, "file value kept when env is unset")
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, observability.WarnLevel, cfg.LogLevel())
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.True(t, cfg.Observability.OTelEnabled)
	assert.Equal(t, "otel:4317", cfg.Observability.OTelEndpoint)
	assert.Equal(t, "@hourly", cfg.Watch.Rescan)

	t.Run("malformed matcher list", func(t *testing.T) {
		t.Setenv("PROTORULES_EMPTY_MATCHERS", "[unclosed")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"zero max depth", func(c *Config) { c.Compiler.MaxDepth = 0 }, "max depth must be positive"},
		{"bad regex", func(c *Config) { c.Compiler.EmptyMatchers = []string{"regex:("} }, "invalid empty matcher"},
		{"zero cache entries", func(c *Config) { c.Cache.MaxEntries = 0 }, "cache: max entries"},
		{"bad log level", func(c *Config) { c.Observability.LogLevel = "loud" }, "invalid log level"},
		{"metrics without address", func(c *Config) {
			c.Observability.MetricsEnabled = true
			c.Observability.MetricsAddr = ""
		}, "metrics address is required"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "otel endpoint is required"},
		{"unknown store", func(c *Config) { c.Store.Type = "etcd" }, "store: unknown store type"},
		{"redis store without url", func(c *Config) { c.Store.Type = "redis" }, "redis store requires a url"},
		{"s3 store without bucket", func(c *Config) { c.Store.Type = "s3" }, "s3 store requires a bucket"},
		{"sqlite store", func(c *Config) {
			c.Store.Type = "sqlite"
			c.Store.URL = "schemas.db"
		}, ""},
		{"rescan descriptor", func(c *Config) { c.Watch.Rescan = "@every 5m" }, ""},
		{"rescan cron", func(c *Config) { c.Watch.Rescan = "*/10 * * * *" }, ""},
		{"bad rescan", func(c *Config) { c.Watch.Rescan = "every now and then" }, "invalid rescan schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompilerOptions(t *testing.T) {
	cfg := Default()
	cfg.Compiler.EmptyMatchers = []string{"", "regex:^-+$"}
	cfg.Compiler.EnumsAsIntegers = true

	opts, err := cfg.CompilerOptions()
	require.NoError(t, err)

	set, err := compiler.Compile(`
syntax = "proto3";
enum Color { RED = 0; BLUE = 1; }
message Row { string note = 1; Color color = 2; }
`, opts...)
	require.NoError(t, err)

	rule, ok := set.Get("Row")
	require.True(t, ok)
	note, _ := rule.Key("note")
	matchers := note.EmptyMatchers()
	require.Len(t, matchers, 2)
	assert.Equal(t, "", matchers[0])
	assert.IsType(t, &regexp.Regexp{}, matchers[1])

	out, err := set.Validate("Row", map[string]any{"note": "---", "color": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"color": int64(1)}, out)

	t.Run("invalid guard", func(t *testing.T) {
		cfg := Default()
		cfg.Compiler.CycleGuard = "nope"
		_, err := cfg.CompilerOptions()
		assert.Error(t, err)
	})

	t.Run("cache config", func(t *testing.T) {
		cc := Default().CacheConfig()
		assert.Equal(t, 256, cc.MaxEntries)
		assert.Equal(t, 10*time.Minute, cc.TTL)
	})
}

func TestStoreConfig(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		sc := Default().StoreConfig()
		assert.Equal(t, store.TypeNone, sc.Type)
		assert.Equal(t, store.DefaultConfig(), sc)
	})

	t.Run("from yaml file", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
store:
  type: S3
  key_prefix: schemas/
  s3_bucket: protorules
  s3_endpoint: http://localhost:9000
  s3_access_key: minio
  s3_secret_key: minio123
  s3_use_path_style: true
`))
		require.NoError(t, err)

		sc := cfg.StoreConfig()
		assert.Equal(t, store.TypeS3, sc.Type)
		assert.Equal(t, "schemas/", sc.KeyPrefix)
		assert.Equal(t, "protorules", sc.S3Bucket)
		assert.Equal(t, "us-east-1", sc.S3Region, "unset keys keep defaults")
		assert.Equal(t, "http://localhost:9000", sc.S3Endpoint)
		assert.True(t, sc.S3UsePathStyle)
		assert.Equal(t, 5*time.Second, sc.Timeout)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("PROTORULES_STORE_TYPE", "redis")
		t.Setenv("PROTORULES_STORE_URL", "redis://localhost:6379/1")
		t.Setenv("PROTORULES_STORE_PREFIX", "rules:")
		t.Setenv("PROTORULES_STORE_TTL", "24h")

		cfg, err := Load("")
		require.NoError(t, err)

		sc := cfg.StoreConfig()
		assert.Equal(t, store.TypeRedis, sc.Type)
		assert.Equal(t, "redis://localhost:6379/1", sc.URL)
		assert.Equal(t, "rules:", sc.KeyPrefix)
		assert.Equal(t, 24*time.Hour, sc.TTL)
	})
}

func TestTelemetryConfig(t *testing.T) {
	cfg := Default()
	cfg.Observability.OTelEnabled = true
	cfg.Observability.OTelEndpoint = "collector:4317"

	otelCfg := cfg.TelemetryConfig("v1.2.3")
	assert.True(t, otelCfg.Enabled)
	assert.Equal(t, "collector:4317", otelCfg.Endpoint)
	assert.Equal(t, "protorules", otelCfg.ServiceName)
	assert.Equal(t, "v1.2.3", otelCfg.ServiceVersion)
	assert.True(t, otelCfg.Insecure)
}
