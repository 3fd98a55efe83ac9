package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no source is stored under a key
var ErrNotFound = errors.New("source not found")

// SourceStore persists schema source text under its cache key so compiled
// schemas can be rebuilt after eviction, a restart, or on another replica.
// Keys are content hashes: storing the same key twice stores the same text.
type SourceStore interface {
	Put(ctx context.Context, key, source string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted in Config.Type
const (
	TypeNone     = ""
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
	TypeS3       = "s3"
)

// Config selects and configures a SourceStore backend
type Config struct {
	Type string

	// URL is the SQLite path, PostgreSQL DSN or Redis URL
	URL string

	// KeyPrefix namespaces Redis keys and S3 object names
	KeyPrefix string

	// TTL expires Redis entries. Zero keeps them.
	TTL time.Duration

	// Timeout bounds connecting and the initial ping
	Timeout time.Duration

	// MaxConns caps the PostgreSQL connection pool
	MaxConns int

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// DefaultConfig returns a disabled store configuration
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "protorules/",
		Timeout:   5 * time.Second,
		MaxConns:  10,
		S3Region:  "us-east-1",
	}
}

// Validate checks the settings the selected backend needs
func (c Config) Validate() error {
	switch c.Type {
	case TypeNone, TypeMemory:
	case TypeSQLite, TypePostgres, TypeRedis:
		if c.URL == "" {
			return fmt.Errorf("%s store requires a url", c.Type)
		}
	case TypeS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 store requires a bucket")
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			return fmt.Errorf("s3 access key and secret key must be set together")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Type)
	}
	if c.TTL < 0 {
		return fmt.Errorf("store ttl must not be negative, got %s", c.TTL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("store timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// connectTimeout is Timeout, or the default when unset
func (c Config) connectTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultConfig().Timeout
}

// Open connects the configured backend and wraps it with tracing. It
// returns nil, nil when no store is configured.
func Open(ctx context.Context, cfg Config) (SourceStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	var (
		s   SourceStore
		err error
	)
	switch cfg.Type {
	case TypeNone:
		return nil, nil
	case TypeMemory:
		s = NewMemory()
	case TypeSQLite:
		s, err = OpenSQLite(ctx, cfg)
	case TypePostgres:
		s, err = OpenPostgres(ctx, cfg)
	case TypeRedis:
		s, err = OpenRedis(ctx, cfg)
	case TypeS3:
		s, err = OpenS3(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(s, cfg.Type), nil
}
