package cache

import (
	"fmt"
	"time"
)

// Config holds cache settings
type Config struct {
	// MaxEntries is the number of compiled schemas kept
	MaxEntries int

	// TTL expires entries after this long. Zero keeps entries until evicted.
	TTL time.Duration
}

// DefaultConfig returns the default cache settings
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: 256,
		TTL:        10 * time.Minute,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.MaxEntries < 1 {
		return fmt.Errorf("max entries must be positive, got %d", c.MaxEntries)
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl must not be negative, got %s", c.TTL)
	}
	return nil
}
