package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manishvishnoi2/nucypher/pkg/pre"
)

func NewVersionCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "Display version",
		Long:  "Display the module version and protocol tag",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pred version %s (%s)\n", pre.ModuleVersion(), pre.ProtocolTag)
		},
	}
	return cmd
}
