package pre

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []Config{
		{NodeTimeout: 0, MaxConcurrency: 1},
		{NodeTimeout: time.Second, MaxConcurrency: 0},
		{NodeTimeout: time.Second, MaxConcurrency: 1, RetrievalTimeout: -1},
		{NodeTimeout: time.Second, MaxConcurrency: 1, MaxPlaintextSize: -1},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestConfigWithDefaults(t *testing.T) {
	c := Config{MaxConcurrency: 2}.WithDefaults()
	if c.MaxConcurrency != 2 {
		t.Fatalf("explicit value overwritten: %d", c.MaxConcurrency)
	}
	if c.NodeTimeout != DefaultConfig().NodeTimeout {
		t.Fatalf("node timeout not defaulted: %v", c.NodeTimeout)
	}
	if c.MaxPlaintextSize != DefaultMaxPlaintextSize {
		t.Fatalf("max plaintext not defaulted: %d", c.MaxPlaintextSize)
	}
}
