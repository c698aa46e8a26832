package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sum256/sum256/internal/audit"
	"github.com/sum256/sum256/internal/config"
	"github.com/sum256/sum256/internal/manifest"
	"github.com/sum256/sum256/internal/metrics"
	"github.com/sum256/sum256/internal/runid"
	"github.com/sum256/sum256/internal/sanitize"
	"github.com/sum256/sum256/internal/scanner"
)

func scanCmd() *cobra.Command {
	var (
		prune          bool
		outputPath     string
		maxReadRate    string
		workers        int
		followSymlinks bool
	)

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Hash directory trees into the checksum database",
		Long: `Walk directories, hash every regular file and record path, digest, size
and modification time in the checksum database. Later runs of "db verify"
detect files whose contents changed.

Examples:
  sum256 scan /srv/files
  sum256 scan --prune /srv/files               # also drop records of deleted files
  sum256 scan --output SHA256SUMS /srv/files   # also write a manifest
  sum256 scan --max-read-rate 50MB/s /srv/files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, warnings, err := loadConfigWithWarnings()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Flags override the config file
			if maxReadRate != "" {
				if _, err := config.ParseRate(maxReadRate); err != nil {
					return fmt.Errorf("invalid max-read-rate: %w", err)
				}
				cfg.Scan.MaxReadRate = maxReadRate
			}
			if workers > 0 {
				cfg.Scan.Workers = workers
			}
			if cmd.Flags().Changed("follow-symlinks") {
				cfg.Scan.FollowSymlinks = followSymlinks
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

			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}

			db, err := openDB(cfg, log)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			auditLog, err := openAudit(cfg)
			if err != nil {
				return fmt.Errorf("failed to open audit log: %w", err)
			}
			defer auditLog.Close()

			m := metrics.New()
			s := scanner.New(scanner.Config{
				Workers:        cfg.Scan.EffectiveWorkers(),
				BufferSize:     cfg.Hash.BufferSizeBytes(),
				MaxReadRate:    cfg.Scan.MaxReadRateBytes(),
				FollowSymlinks: cfg.Scan.FollowSymlinks,
				Operation:      "scan",
			}, log, m)

			log.Info("Starting scan",
				zap.Strings("roots", roots),
				zap.Int("workers", cfg.Scan.EffectiveWorkers()),
				zap.String("db", db.Path()))

			var entries []manifest.Entry
			var recordErrs int
			summary, err := s.Scan(ctx, roots, func(r scanner.FileResult) {
				if r.Err != nil {
					return // already logged and counted by the scanner
				}

				// The database stores absolute paths so verification
				// works from any working directory.
				absPath, absErr := filepath.Abs(r.Path)
				if absErr != nil {
					absPath = r.Path
				}

				if err := db.Record(absPath, r.Digest, r.Size, r.ModTime); err != nil {
					recordErrs++
					log.Warn("Failed to record file",
						zap.String("path", sanitize.Path(r.Path)),
						zap.Error(err))
					return
				}
				auditLog.Log(audit.NewFileRecordedEvent(absPath, r.Digest, r.Size).WithRunID(rid))

				if outputPath != "" {
					entries = append(entries, manifest.Entry{Path: r.Path, SHA256: r.Digest})
				}
			})
			if err != nil {
				return err
			}

			var pruned int
			if prune {
				pruned, err = db.Prune()
				if err != nil {
					return fmt.Errorf("prune failed: %w", err)
				}
				if pruned > 0 {
					auditLog.Log(audit.NewDatabasePrunedEvent(pruned).WithRunID(rid))
				}
			}

			if outputPath != "" {
				sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
				f, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("failed to create manifest: %w", err)
				}
				if err := manifest.Write(f, entries); err != nil {
					f.Close()
					return fmt.Errorf("failed to write manifest: %w", err)
				}
				if err := f.Close(); err != nil {
					return err
				}
			}

			auditLog.Log(audit.NewScanCompleteEvent(
				summary.Files, summary.Bytes, summary.Duration.Milliseconds()).WithRunID(rid))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scan Summary\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n")
			fmt.Fprintf(out, "  Files hashed:  %d\n", summary.Files)
			fmt.Fprintf(out, "  Bytes hashed:  %s\n", formatBytes(summary.Bytes))
			fmt.Fprintf(out, "  Errors:        %d\n", summary.Errors+recordErrs)
			fmt.Fprintf(out, "  Skipped:       %d\n", summary.Skipped)
			fmt.Fprintf(out, "  Duration:      %v\n", summary.Duration.Round(time.Millisecond))
			if secs := summary.Duration.Seconds(); secs > 0 && summary.Bytes > 0 {
				fmt.Fprintf(out, "  Throughput:    %.1f MB/s\n", float64(summary.Bytes)/secs/(1024*1024))
			}
			if prune {
				fmt.Fprintf(out, "  Pruned:        %d\n", pruned)
			}
			if outputPath != "" {
				fmt.Fprintf(out, "  Manifest:      %s (%d entries)\n", outputPath, len(entries))
			}
			fmt.Fprintf(out, "  Database:      %s (%d files)\n", db.Path(), db.Count())

			if err := writeMetricsFile(m); err != nil {
				log.Warn("Failed to write metrics file", zap.Error(err))
			}

			if summary.Errors+recordErrs > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d files could not be recorded", summary.Errors+recordErrs)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "drop database records whose files no longer exist")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "also write a sha256sum manifest to this file")
	cmd.Flags().StringVar(&maxReadRate, "max-read-rate", "", "limit read bandwidth (e.g., 50MB/s, 0 = unlimited)")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of hashing workers (0 = number of CPUs)")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "hash symlinks that point at regular files")

	return cmd
}
