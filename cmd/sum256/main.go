// sum256 computes and verifies SHA-256 checksums, cross-checking digests
// against independent implementations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Set at build time via -ldflags
	version = "dev"

	cfgFile     string
	logLevel    string
	logFile     string
	dbPath      string
	metricsFile string
)

// newRootCmd assembles the command tree. Tests call it to get a fresh root.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sum256",
		Short: "Compute and verify SHA-256 checksums",
		Long: `sum256 computes and verifies SHA-256 checksums. Every digest can be
cross-checked against independent implementations, so a bug in any single
implementation cannot silently produce a wrong answer.

Features:
  • hash files or stdin in sha256sum or BSD format
  • verify files against checksum manifests (.gz/.xz supported)
  • scan directory trees into a local checksum database
  • detect silent file drift by re-hashing recorded files
  • cross-implementation self-test and throughput benchmarks`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "checksum database path")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write metrics in Prometheus textfile format on exit")

	rootCmd.AddCommand(hashCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(dbCmd())
	rootCmd.AddCommand(selftestCmd())
	rootCmd.AddCommand(benchCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
