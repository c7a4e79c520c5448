// Package config loads the YAML configuration of the pred daemon.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/logging"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the control API address.
	Listen string `yaml:"listen"`
	// Nodes is the size of the simulated node network.
	Nodes int `yaml:"nodes"`
	// Label is the policy label the originator control encrypts under.
	Label string `yaml:"label"`

	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Keyring   KeyringConfig   `yaml:"keyring"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig configures the policy and treasure map store.
type StoreConfig struct {
	InMemory   bool   `yaml:"in_memory"`
	Path       string `yaml:"path"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// KeyringConfig configures where identities are kept.
type KeyringConfig struct {
	// Backend is a 99designs/keyring backend name; "memory" keeps keys in
	// process only.
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	// PasswordEnv names the environment variable holding the file backend
	// password.
	PasswordEnv string `yaml:"password_env"`
}

// RetrievalConfig mirrors pre.Config.
type RetrievalConfig struct {
	NodeTimeout      time.Duration `yaml:"node_timeout"`
	RetrievalTimeout time.Duration `yaml:"retrieval_timeout"`
	MaxConcurrency   int           `yaml:"max_concurrency"`
	MaxPlaintextSize int           `yaml:"max_plaintext_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	d := pre.DefaultConfig()
	return &Config{
		Listen:  "127.0.0.1:11151",
		Nodes:   5,
		Label:   "default",
		Log:     LogConfig{Level: "info", Format: "text"},
		Store:   StoreConfig{InMemory: true},
		Keyring: KeyringConfig{Backend: "memory"},
		Retrieval: RetrievalConfig{
			NodeTimeout:      d.NodeTimeout,
			RetrievalTimeout: d.RetrievalTimeout,
			MaxConcurrency:   d.MaxConcurrency,
			MaxPlaintextSize: d.MaxPlaintextSize,
		},
	}
}

// Load reads path over Default and validates the result. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	absPath, err := SecurePath(path)
	if err != nil {
		return nil, fmt.Errorf("secure path: %w", err)
	}
	data, err := os.ReadFile(absPath) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshal YAML: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SecurePath validates that a file path doesn't escape the working directory.
// This prevents path traversal attacks when loading user-specified config files.
func SecurePath(path string) (string, error) {
	clean := filepath.Clean(path)
	absPath, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	base, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	rel, err := filepath.Rel(base, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %q escapes working directory", path)
	}
	return absPath, nil
}

// Validate performs sanity checks on cfg and sanitizes its file paths. It
// does not open files.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("listen: invalid address %q: %v", cfg.Listen, err)
	}
	if cfg.Nodes < 1 || cfg.Nodes > umbral.MaxShares {
		return fmt.Errorf("nodes: need 1..%d, got %d", umbral.MaxShares, cfg.Nodes)
	}
	if cfg.Label == "" {
		return errors.New("label is required")
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "text", "json", "logrus":
	default:
		return fmt.Errorf("log.format: want text, json or logrus, got %q", cfg.Log.Format)
	}

	if !cfg.Store.InMemory {
		if cfg.Store.Path == "" {
			return errors.New("store.path is required unless store.in_memory is set")
		}
		if _, err := SecurePath(cfg.Store.Path); err != nil {
			return fmt.Errorf("store.path: %w", err)
		}
	}

	switch cfg.Keyring.Backend {
	case "", "memory":
	case "file":
		if cfg.Keyring.Dir == "" {
			return errors.New("keyring.dir is required for the file backend")
		}
		if _, err := SecurePath(cfg.Keyring.Dir); err != nil {
			return fmt.Errorf("keyring.dir: %w", err)
		}
		if cfg.Keyring.PasswordEnv == "" {
			return errors.New("keyring.password_env is required for the file backend")
		}
	}

	if err := cfg.PreConfig().Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	return nil
}

// PreConfig returns the library knobs.
func (c *Config) PreConfig() pre.Config {
	return pre.Config{
		NodeTimeout:      c.Retrieval.NodeTimeout,
		RetrievalTimeout: c.Retrieval.RetrievalTimeout,
		MaxConcurrency:   c.Retrieval.MaxConcurrency,
		MaxPlaintextSize: c.Retrieval.MaxPlaintextSize,
	}
}

// KeyringPassword reads the file backend password from the configured
// environment variable.
func (c *Config) KeyringPassword() string {
	if c.Keyring.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.Keyring.PasswordEnv)
}
