package pre

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the library knobs shared by the grantor, grantee and
// originator roles.
type Config struct {
	// NodeTimeout bounds a single re-encryption request to one node.
	NodeTimeout time.Duration

	// RetrievalTimeout bounds a whole retrieval. Zero means the caller's
	// context alone decides.
	RetrievalTimeout time.Duration

	// MaxConcurrency caps the number of node requests in flight per
	// retrieval.
	MaxConcurrency int

	// MaxPlaintextSize is the largest plaintext an originator accepts.
	MaxPlaintextSize int
}

// DefaultMaxPlaintextSize is 1 MiB.
const DefaultMaxPlaintextSize = 1 << 20

// DefaultConfig returns the settings used when a role is built without an
// explicit Config.
func DefaultConfig() Config {
	return Config{
		NodeTimeout:      5 * time.Second,
		RetrievalTimeout: 30 * time.Second,
		MaxConcurrency:   8,
		MaxPlaintextSize: DefaultMaxPlaintextSize,
	}
}

// Validate rejects settings that would make a role unusable.
func (c Config) Validate() error {
	if c.NodeTimeout <= 0 {
		return errors.New("node timeout must be positive")
	}
	if c.RetrievalTimeout < 0 {
		return errors.New("retrieval timeout must not be negative")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.MaxPlaintextSize < 0 {
		return fmt.Errorf("max plaintext size must not be negative, got %d", c.MaxPlaintextSize)
	}
	return nil
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.NodeTimeout == 0 {
		c.NodeTimeout = d.NodeTimeout
	}
	if c.RetrievalTimeout == 0 {
		c.RetrievalTimeout = d.RetrievalTimeout
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.MaxPlaintextSize == 0 {
		c.MaxPlaintextSize = d.MaxPlaintextSize
	}
	return c
}
