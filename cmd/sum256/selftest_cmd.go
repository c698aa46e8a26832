package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sum256/sum256/internal/audit"
	"github.com/sum256/sum256/internal/metrics"
	"github.com/sum256/sum256/internal/runid"
	"github.com/sum256/sum256/internal/verify"
)

var (
	selftestCases int
	selftestSeed  int64
)

func selftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Cross-check all SHA-256 implementations against each other",
		Long: `Run known-answer vectors, block-boundary lengths and randomized inputs
through every compiled-in SHA-256 implementation and require that they all
agree on every digest.

Examples:
  # Default run with a time-based seed
  sum256 selftest

  # Reproduce a previous run
  sum256 selftest --seed 1724300000000000000 --cases 256`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, warnings, err := loadConfigWithWarnings()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err := setupLogger(cfg)
			if err != nil {
				return fmt.Errorf("failed to setup logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			for _, w := range warnings {
				logger.Warn("Config warning", zap.String("message", w))
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			ctx = newRunContext(ctx, logger)
			log := runid.LoggerFromContext(ctx, logger)
			rid := runid.FromContext(ctx)

			auditLog, err := openAudit(cfg)
			if err != nil {
				return fmt.Errorf("failed to open audit log: %w", err)
			}
			defer auditLog.Close()

			seed := selftestSeed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			m := metrics.New()
			vcfg := verify.DefaultConfig()
			vcfg.SelfTestCases = selftestCases
			v := verify.New(vcfg, log, m, auditLog)
			defer v.Close()

			res := v.SelfTest(ctx, seed)

			names := make([]string, 0, len(verify.Implementations()))
			for _, impl := range verify.Implementations() {
				names = append(names, impl.Name)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Self-Test\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n")
			fmt.Fprintf(out, "Implementations: %s\n", strings.Join(names, ", "))
			fmt.Fprintf(out, "Cases:           %d\n", res.Cases)
			fmt.Fprintf(out, "Seed:            %d\n", res.Seed)
			fmt.Fprintf(out, "Duration:        %v\n", res.Duration.Round(time.Millisecond))

			errStr := ""
			if !res.OK() {
				errStr = fmt.Sprintf("%d failures", len(res.Failures))
			}
			auditLog.Log(audit.NewSelfTestCompleteEvent(
				res.Cases, res.Duration.Milliseconds(), errStr).WithRunID(rid))

			if err := writeMetricsFile(m); err != nil {
				log.Warn("Failed to write metrics file", zap.Error(err))
			}

			if !res.OK() {
				fmt.Fprintf(out, "\nFailures:\n")
				for _, f := range res.Failures {
					fmt.Fprintf(out, "  %s\n", f)
				}
				cmd.SilenceUsage = true
				return fmt.Errorf("self-test failed: %d of %d cases", len(res.Failures), res.Cases)
			}

			fmt.Fprintf(out, "\nAll implementations agree.\n")
			return nil
		},
	}

	cmd.Flags().IntVar(&selftestCases, "cases", 64, "number of randomized test cases")
	cmd.Flags().Int64Var(&selftestSeed, "seed", 0, "random seed (0 picks a time-based seed)")

	return cmd
}
