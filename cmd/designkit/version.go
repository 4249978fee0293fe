package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"designkit/internal/mcp"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "designkit", mcp.Version)
	},
}
