// Command pred is a development daemon for threshold proxy re-encryption.
// It hosts the grantor, grantee and originator controls over a simulated
// network of re-encryption nodes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "pred",
		Short:        "Threshold proxy re-encryption daemon",
		Long:         "Development daemon hosting the grantor, grantee and originator controls over a local node network",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to YAML configuration file")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewIdentityCmd())
	rootCmd.AddCommand(NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
