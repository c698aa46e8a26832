package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sum256/sum256/internal/benchmark"
	"github.com/sum256/sum256/internal/config"
)

func benchCmd() *cobra.Command {
	var (
		inputSize  string
		iterations int
		writeSize  int
		scenario   string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run hashing throughput benchmarks",
		Long: `Benchmark every compiled-in SHA-256 implementation across a range of
input sizes and write patterns.

Each run hashes deterministic pseudo-random data and checks every digest
against the reference implementation, so a benchmark doubles as a
correctness torture test.

Examples:
  sum256 bench                          # Run default scenarios
  sum256 bench --scenario all           # Run all scenarios
  sum256 bench --input-size 64MB --iterations 10
  sum256 bench --scenario stream_1m_4k`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Handle interrupt
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				fmt.Println("\nInterrupted, stopping benchmark...")
				cancel()
			}()

			out := cmd.OutOrStdout()
			runner := benchmark.NewRunner(out)

			var scenarios []benchmark.Scenario

			if scenario != "" && scenario != "all" {
				// Find specific scenario
				for _, s := range benchmark.DefaultScenarios() {
					if s.Name == scenario {
						scenarios = []benchmark.Scenario{s}
						break
					}
				}
				if len(scenarios) == 0 {
					fmt.Fprintf(out, "Unknown scenario: %s\n\nAvailable scenarios:\n", scenario)
					for _, s := range benchmark.DefaultScenarios() {
						fmt.Fprintf(out, "  %-15s %s\n", s.Name, s.Description)
					}
					cmd.SilenceUsage = true
					return fmt.Errorf("scenario not found")
				}
			} else if inputSize != "" {
				// Custom scenario from flags
				size, err := config.ParseSize(inputSize)
				if err != nil {
					return fmt.Errorf("invalid input-size: %w", err)
				}

				scenarios = []benchmark.Scenario{{
					Name:        "custom",
					Description: "Custom benchmark from flags",
					InputSize:   size,
					WriteSize:   writeSize,
					Iterations:  iterations,
				}}
			} else {
				// Default: run all scenarios
				scenarios = benchmark.DefaultScenarios()
			}

			fmt.Fprintf(out, "sum256 Benchmark\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n\n")

			results, err := runner.RunAll(ctx, scenarios)
			if err != nil && err != context.Canceled {
				return err
			}

			benchmark.PrintResults(out, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputSize, "input-size", "", "Input size to test (e.g., 64MB)")
	cmd.Flags().IntVar(&iterations, "iterations", 3, "Number of iterations per test")
	cmd.Flags().IntVar(&writeSize, "write-size", 0, "Write chunk size in bytes (0 hashes in one call)")
	cmd.Flags().StringVar(&scenario, "scenario", "", "Run specific scenario (or 'all')")

	cmd.AddCommand(benchListCmd())
	cmd.AddCommand(benchStressCmd())
	cmd.AddCommand(benchWriteSizeCmd())

	return cmd
}

func benchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available benchmark scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Available Benchmark Scenarios\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n\n")
			for _, s := range benchmark.DefaultScenarios() {
				fmt.Fprintf(out, "  %-15s %s\n", s.Name, s.Description)
				if s.WriteSize > 0 {
					fmt.Fprintf(out, "    Input: %s in %d-byte writes, Iterations: %d\n\n",
						formatBytes(s.InputSize), s.WriteSize, s.Iterations)
				} else {
					fmt.Fprintf(out, "    Input: %s, Iterations: %d\n\n",
						formatBytes(s.InputSize), s.Iterations)
				}
			}
		},
	}
}

func benchStressCmd() *cobra.Command {
	var (
		impl        string
		inputSize   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run concurrent hashing stress test",
		Long: `Hash the same input from many goroutines at once.

This tests how an implementation behaves under parallel load and reports
the aggregate throughput across all hashers.

Examples:
  sum256 bench stress                         # 8 concurrent, 16MB each
  sum256 bench stress --concurrency 64        # 64 concurrent hashers
  sum256 bench stress --impl simd -n 16       # stress one implementation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Handle interrupt
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				fmt.Println("\nInterrupted, stopping stress test...")
				cancel()
			}()

			size, err := config.ParseSize(inputSize)
			if err != nil {
				return fmt.Errorf("invalid input-size: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stress Test\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n")
			fmt.Fprintf(out, "  Implementation:     %s\n", impl)
			fmt.Fprintf(out, "  Concurrent hashers: %d\n", concurrency)
			fmt.Fprintf(out, "  Input size:         %s\n", formatBytes(size))
			fmt.Fprintf(out, "══════════════════════════════════════\n\n")

			runner := benchmark.NewRunner(out)
			result, err := runner.StressBenchmark(ctx, impl, size, concurrency)
			if err != nil {
				return err
			}

			// Print results
			fmt.Fprintf(out, "\nStress Test Results\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n")
			fmt.Fprintf(out, "  Total duration:      %v\n", result.TotalDuration.Round(time.Millisecond))
			fmt.Fprintf(out, "  Successful:          %d / %d\n", result.SuccessCount, result.Concurrent)
			fmt.Fprintf(out, "  Failed:              %d\n", result.ErrorCount)

			if len(result.Durations) > 0 {
				var total time.Duration
				min, max := result.Durations[0], result.Durations[0]
				for _, d := range result.Durations {
					total += d
					if d < min {
						min = d
					}
					if d > max {
						max = d
					}
				}
				avg := total / time.Duration(len(result.Durations))

				fmt.Fprintf(out, "  Avg hash time:       %v\n", avg.Round(time.Microsecond))
				fmt.Fprintf(out, "  Min/Max:             %v / %v\n",
					min.Round(time.Microsecond), max.Round(time.Microsecond))
				fmt.Fprintf(out, "  Aggregate throughput: %.2f MB/s\n", result.AggregateThroughputMB)
			}

			if result.ErrorCount > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d hashers failed", result.ErrorCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&impl, "impl", "sum256", "Implementation to stress")
	cmd.Flags().StringVar(&inputSize, "input-size", "16MB", "Input size per hasher")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 8, "Number of concurrent hashers")

	return cmd
}

func benchWriteSizeCmd() *cobra.Command {
	var (
		inputSize    string
		maxWriteSize int
	)

	cmd := &cobra.Command{
		Use:   "writesize",
		Short: "Test different write chunk sizes",
		Long: `Hash the same input using varying write sizes.

This shows how per-call overhead and block buffering affect streaming
throughput for each implementation.

Examples:
  sum256 bench writesize
  sum256 bench writesize --input-size 16MB --max-write-size 1048576`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Handle interrupt
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				fmt.Println("\nInterrupted, stopping benchmark...")
				cancel()
			}()

			size, err := config.ParseSize(inputSize)
			if err != nil {
				return fmt.Errorf("invalid input-size: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Write Size Benchmark\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n")
			fmt.Fprintf(out, "  Input size:          %s\n", formatBytes(size))
			fmt.Fprintf(out, "  Testing write sizes: 256 to %d bytes\n", maxWriteSize)
			fmt.Fprintf(out, "══════════════════════════════════════\n\n")

			// Test write sizes: 256, 1024, 4096, ... up to max
			writeSizes := []int{}
			for ws := 256; ws <= maxWriteSize; ws *= 4 {
				writeSizes = append(writeSizes, ws)
			}
			// Add max if not already included
			if len(writeSizes) == 0 || writeSizes[len(writeSizes)-1] != maxWriteSize {
				writeSizes = append(writeSizes, maxWriteSize)
			}

			runner := benchmark.NewRunner(out)
			results, err := runner.WriteSizeBenchmark(ctx, size, writeSizes)
			if err != nil {
				return err
			}

			benchmark.PrintResults(out, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputSize, "input-size", "4MB", "Input size to test")
	cmd.Flags().IntVar(&maxWriteSize, "max-write-size", 256*1024, "Maximum write size in bytes")

	return cmd
}
