package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sum256 version %s\n", version)
			fmt.Fprintf(out, "\nFeatures:\n")
			fmt.Fprintf(out, "  • Cross-implementation digest verification\n")
			fmt.Fprintf(out, "  • sha256sum and BSD manifest formats\n")
			fmt.Fprintf(out, "  • Checksum database with drift detection\n")
			fmt.Fprintf(out, "  • JSON audit log\n")
			fmt.Fprintf(out, "  • Rate-limited directory scanning\n")
			fmt.Fprintf(out, "  • Throughput benchmarking\n")
		},
	}
}
