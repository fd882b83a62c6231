package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wkd-tester/internal/platform/version"
)

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the version",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wkd version: %s\n", version.Version)
			if verbose {
				fmt.Fprintf(out, "  commit: %s\n", version.Commit)
				fmt.Fprintf(out, "  built: %s\n", version.BuildDate)
				fmt.Fprintf(out, "  go: %s\n", version.GoVersion)
			}
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "If enabled, displays the additional information about this build.")
	return cmd
}
