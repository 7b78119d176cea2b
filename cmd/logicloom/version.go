package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/logicloom"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of logicloom",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "logicloom version %s\n", strings.TrimSpace(logicloom.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
