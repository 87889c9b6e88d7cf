package main

import (
	"fmt"

	"github.com/spf13/cobra"

	v "github.com/keithlinneman/charactergen/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			vi := v.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version: %s\n", vi.App, vi.Version)
			fmt.Fprintf(out, "commit: %s\n", vi.Commit)
			if vi.BuildDate != "" {
				fmt.Fprintf(out, "build date: %s\n", vi.BuildDate)
			}
			fmt.Fprintf(out, "go version: %s\n", vi.GoVersion)
		},
	}
}
