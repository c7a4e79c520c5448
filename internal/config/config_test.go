package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a fresh temp dir for the duration of the test so that
// SecurePath accepts files created there.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func write(t *testing.T, name, body string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(body), 0o600))
	return name
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad(t *testing.T) {
	chdir(t)
	path := write(t, "pred.yaml", `
listen: 127.0.0.1:9000
nodes: 7
label: flippering
log:
  level: debug
  format: json
store:
  in_memory: false
  path: data/policies
retrieval:
  node_timeout: 2s
  max_concurrency: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, 7, cfg.Nodes)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "data/policies", cfg.Store.Path)

	pc := cfg.PreConfig()
	assert.Equal(t, 2*time.Second, pc.NodeTimeout)
	assert.Equal(t, 3, pc.MaxConcurrency)
	// Unset keys keep their defaults.
	assert.Equal(t, Default().Retrieval.RetrievalTimeout, pc.RetrievalTimeout)
	assert.Equal(t, "memory", cfg.Keyring.Backend)
}

func TestLoadEmptyFile(t *testing.T) {
	chdir(t)
	cfg, err := Load(write(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	chdir(t)
	_, err := Load(write(t, "bad.yaml", "listen: 127.0.0.1:1\nlistne: oops\n"))
	require.Error(t, err)
}

func TestLoadRejectsTraversal(t *testing.T) {
	dir := chdir(t)
	_, err := Load(filepath.Join(dir, "..", "outside.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes working directory")
}

func TestSecurePath(t *testing.T) {
	dir := chdir(t)

	p, err := SecurePath("a/b/../c.yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, dir), "%s not under %s", p, dir)

	_, err = SecurePath("../x")
	require.Error(t, err)
	_, err = SecurePath("..")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t)
	for name, mutate := range map[string]func(*Config){
		"bad listen":        func(c *Config) { c.Listen = "nowhere" },
		"no nodes":          func(c *Config) { c.Nodes = 0 },
		"too many nodes":    func(c *Config) { c.Nodes = 256 },
		"empty label":       func(c *Config) { c.Label = "" },
		"bad level":         func(c *Config) { c.Log.Level = "loud" },
		"bad format":        func(c *Config) { c.Log.Format = "xml" },
		"missing path":      func(c *Config) { c.Store.InMemory = false },
		"escaping path":     func(c *Config) { c.Store.InMemory, c.Store.Path = false, "../db" },
		"file without dir":  func(c *Config) { c.Keyring.Backend = "file" },
		"file without pass": func(c *Config) { c.Keyring.Backend, c.Keyring.Dir = "file", "keys" },
		"zero concurrency":  func(c *Config) { c.Retrieval.MaxConcurrency = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.Error(t, Validate(cfg))
		})
	}
	require.Error(t, Validate(nil))

	for _, format := range []string{"text", "json", "logrus"} {
		cfg := Default()
		cfg.Log.Format = format
		require.NoError(t, Validate(cfg), format)
	}
}

func TestKeyringPassword(t *testing.T) {
	t.Setenv("PRED_TEST_KEYRING_PASSWORD", "hunter2")
	cfg := Default()
	assert.Empty(t, cfg.KeyringPassword())
	cfg.Keyring.PasswordEnv = "PRED_TEST_KEYRING_PASSWORD"
	assert.Equal(t, "hunter2", cfg.KeyringPassword())
}
