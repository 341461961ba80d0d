package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/graff"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of graff",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "graff version %s\n", strings.TrimSpace(graff.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
