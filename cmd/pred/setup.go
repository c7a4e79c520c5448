package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manishvishnoi2/nucypher/internal/config"
	"github.com/manishvishnoi2/nucypher/pkg/pre/keyring"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openRegistry(cfg *config.Config) (keyring.Registry, error) {
	if cfg.Keyring.Backend == "" || cfg.Keyring.Backend == "memory" {
		return keyring.NewMemory(), nil
	}
	return keyring.Open(keyring.Config{
		Backend:  cfg.Keyring.Backend,
		FileDir:  cfg.Keyring.Dir,
		Password: cfg.KeyringPassword(),
	})
}
