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
	"github.com/sum256/sum256/internal/manifest"
	"github.com/sum256/sum256/internal/metrics"
	"github.com/sum256/sum256/internal/runid"
	"github.com/sum256/sum256/internal/sanitize"
	"github.com/sum256/sum256/internal/scanner"
)

func checkCmd() *cobra.Command {
	var sumfile string

	cmd := &cobra.Command{
		Use:   "check -c <sumfile> [dir]",
		Short: "Verify files against a checksum manifest",
		Long: `Verify files against a checksum manifest in sha256sum or BSD format.
Manifests ending in .gz or .xz are decompressed while reading.

Each listed file prints one line, "<path>: OK", "<path>: FAILED" or
"<path>: MISSING". Names are resolved relative to dir (default: the current
directory); entries naming absolute paths or escaping dir are rejected.

Exits non-zero when any file fails or is missing.

Examples:
  sum256 check -c SHA256SUMS
  sum256 check -c SHA256SUMS.gz /srv/files
  sum256 check -c release.sha256 downloads/`,
		Args: cobra.MaximumNArgs(1),
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

			man := manifest.New(log)
			if err := man.LoadFromFile(sumfile); err != nil {
				return fmt.Errorf("failed to load manifest: %w", err)
			}
			if man.Count() == 0 {
				return fmt.Errorf("manifest %s contains no checksum lines", sumfile)
			}

			baseDir := "."
			if len(args) == 1 {
				baseDir = args[0]
			}

			entries := man.Entries()
			resolved := make(map[string]string, len(entries))
			seen := make(map[string]bool, len(entries))
			paths := make([]string, 0, len(entries))
			for _, e := range entries {
				p, err := manifest.ResolvePath(baseDir, e.Path)
				if err != nil {
					log.Warn("Rejecting manifest entry",
						zap.String("name", sanitize.Path(e.Path)),
						zap.Error(err))
					continue
				}
				resolved[e.Path] = p
				if !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}

			m := metrics.New()
			s := scanner.New(scanner.Config{
				Workers:     cfg.Scan.EffectiveWorkers(),
				BufferSize:  cfg.Hash.BufferSizeBytes(),
				MaxReadRate: cfg.Scan.MaxReadRateBytes(),
				Operation:   "check",
			}, log, m)

			start := time.Now()
			results := make(map[string]scanner.FileResult, len(paths))
			if _, err := s.HashFiles(ctx, paths, func(r scanner.FileResult) {
				results[r.Path] = r
			}); err != nil {
				return err
			}

			// Report in manifest order, not hashing completion order.
			out := cmd.OutOrStdout()
			var ok, failed, missing int
			for _, e := range entries {
				p, safe := resolved[e.Path]
				if !safe {
					fmt.Fprintf(out, "%s: FAILED\n", sanitize.Path(e.Path))
					failed++
					continue
				}

				r := results[p]
				switch {
				case r.Missing():
					fmt.Fprintf(out, "%s: MISSING\n", sanitize.Path(e.Path))
					missing++
					auditLog.Log(audit.NewFileMissingEvent(p).WithRunID(rid))
				case r.Err != nil:
					fmt.Fprintf(out, "%s: FAILED open or read\n", sanitize.Path(e.Path))
					failed++
				case strings.EqualFold(r.Digest, e.SHA256):
					fmt.Fprintf(out, "%s: OK\n", sanitize.Path(e.Path))
					ok++
					auditLog.Log(audit.NewFileVerifiedEvent(p, r.Digest, r.Size).WithRunID(rid))
				default:
					fmt.Fprintf(out, "%s: FAILED\n", sanitize.Path(e.Path))
					failed++
					auditLog.Log(audit.NewFileMismatchEvent(p, e.SHA256, r.Digest).WithRunID(rid))
				}
			}

			if failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %d computed checksums did NOT match\n", failed)
			}
			if missing > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %d listed files could not be read\n", missing)
			}

			auditLog.Log(audit.NewCheckCompleteEvent(
				len(entries), failed, missing, time.Since(start).Milliseconds()).WithRunID(rid))

			if err := writeMetricsFile(m); err != nil {
				log.Warn("Failed to write metrics file", zap.Error(err))
			}

			if failed > 0 || missing > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d of %d files did not verify", failed+missing, len(entries))
			}

			log.Info("All files verified", zap.Int("files", ok))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sumfile, "sumfile", "c", "", "checksum manifest to verify against (required)")
	_ = cmd.MarkFlagRequired("sumfile")

	return cmd
}
