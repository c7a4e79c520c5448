package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
	"github.com/manishvishnoi2/nucypher/pkg/pre/keyring"
)

// NewIdentityCmd groups the identity management commands.
func NewIdentityCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "identity",
		Short: "Manage identities in the configured keyring",
	}
	cmd.AddCommand(newIdentityGenerateCmd())
	cmd.AddCommand(newIdentityListCmd())
	return cmd
}

func newIdentityGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate NAME",
		Short: "Generate an identity and store it under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			if _, err := reg.Load(args[0]); err == nil {
				return fmt.Errorf("identity %q already exists", args[0])
			} else if !errors.Is(err, keyring.ErrNotFound) {
				return err
			}
			id, err := identity.Generate()
			if err != nil {
				return err
			}
			defer id.Zeroize()
			if err := reg.Store(args[0], id); err != nil {
				return err
			}
			printCard(cmd, args[0], id.Card())
			return nil
		},
	}
}

func newIdentityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfg)
			if err != nil {
				return err
			}
			names, err := reg.Names()
			if err != nil {
				return err
			}
			for _, name := range names {
				id, err := reg.Load(name)
				if err != nil {
					return fmt.Errorf("load %s: %w", name, err)
				}
				printCard(cmd, name, id.Card())
				id.Zeroize()
			}
			return nil
		},
	}
}

func printCard(cmd *cobra.Command, name string, card *identity.Card) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n  address:        %s\n  signing key:    %s\n  encrypting key: %s\n",
		name, card.NodeID(), card.SigningKey, card.EncryptingKey)
}
