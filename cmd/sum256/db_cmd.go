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
	"github.com/sum256/sum256/internal/sanitize"
	"github.com/sum256/sum256/internal/scanner"
	"github.com/sum256/sum256/internal/sumdb"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect the checksum database",
	}

	cmd.AddCommand(dbListCmd())
	cmd.AddCommand(dbStatsCmd())
	cmd.AddCommand(dbVerifyCmd())
	cmd.AddCommand(dbClearCmd())

	return cmd
}

func dbListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := openDB(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			records, err := db.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tracked Files: %d\n\n", len(records))
			for _, rec := range records {
				fmt.Fprintf(out, "  %s  %10s  %s\n",
					rec.SHA256[:16],
					formatBytes(rec.Size),
					sanitize.Path(rec.Path))
			}

			return nil
		},
	}
}

func dbStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := openDB(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			s, err := db.Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database Statistics\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n")
			fmt.Fprintf(out, "Path:           %s\n", db.Path())
			fmt.Fprintf(out, "Tracked files:  %d\n", s.Files)
			fmt.Fprintf(out, "Total size:     %s\n", formatBytes(s.TotalBytes))
			fmt.Fprintf(out, "Unique digests: %d\n", s.UniqueHashes)
			if s.Files > 0 {
				fmt.Fprintf(out, "Oldest seen:    %s\n", s.OldestSeen.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "Last verified:  %s\n", s.LastVerified.Format("2006-01-02 15:04:05"))
			}

			return nil
		},
	}
}

func dbVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash recorded files and report drift",
		Long: `Re-hash every file in the checksum database and compare against the
recorded digest. Files that still match have their verification bookkeeping
refreshed; files whose contents changed are reported as DRIFT.

Exits non-zero when any file drifted, is missing or could not be read.`,
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

			records, err := db.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Database is empty")
				return nil
			}

			byPath := make(map[string]*sumdb.Record, len(records))
			paths := make([]string, 0, len(records))
			for _, rec := range records {
				byPath[rec.Path] = rec
				paths = append(paths, rec.Path)
			}

			m := metrics.New()
			s := scanner.New(scanner.Config{
				Workers:     cfg.Scan.EffectiveWorkers(),
				BufferSize:  cfg.Hash.BufferSizeBytes(),
				MaxReadRate: cfg.Scan.MaxReadRateBytes(),
				Operation:   "verify",
			}, log, m)

			// Matching files stay quiet; only problems print.
			start := time.Now()
			var okCount, drifted, missing, unreadable int
			if _, err := s.HashFiles(ctx, paths, func(r scanner.FileResult) {
				rec := byPath[r.Path]
				switch {
				case r.Missing():
					missing++
					fmt.Fprintf(out, "%s: MISSING\n", sanitize.Path(r.Path))
					auditLog.Log(audit.NewFileMissingEvent(r.Path).WithRunID(rid))
				case r.Err != nil:
					unreadable++
					fmt.Fprintf(out, "%s: FAILED open or read\n", sanitize.Path(r.Path))
				case strings.EqualFold(r.Digest, rec.SHA256):
					okCount++
					if err := db.Record(r.Path, r.Digest, r.Size, r.ModTime); err != nil {
						log.Warn("Failed to refresh record",
							zap.String("path", sanitize.Path(r.Path)),
							zap.Error(err))
					}
					auditLog.Log(audit.NewFileVerifiedEvent(r.Path, r.Digest, r.Size).WithRunID(rid))
				default:
					drifted++
					fmt.Fprintf(out, "%s: DRIFT (expected %s..., got %s...)\n",
						sanitize.Path(r.Path), rec.SHA256[:16], r.Digest[:16])
					auditLog.Log(audit.NewFileMismatchEvent(r.Path, rec.SHA256, r.Digest).WithRunID(rid))
				}
			}); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nVerified %d files: %d ok, %d drifted, %d missing, %d unreadable\n",
				len(records), okCount, drifted, missing, unreadable)

			auditLog.Log(audit.NewCheckCompleteEvent(
				len(records), drifted+unreadable, missing, time.Since(start).Milliseconds()).WithRunID(rid))

			if err := writeMetricsFile(m); err != nil {
				log.Warn("Failed to write metrics file", zap.Error(err))
			}

			if drifted+missing+unreadable > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d of %d files did not verify", drifted+missing+unreadable, len(records))
			}
			return nil
		},
	}
}

func dbClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all records from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := newRunContext(context.Background(), logger)
			rid := runid.FromContext(ctx)

			db, err := openDB(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			auditLog, err := openAudit(cfg)
			if err != nil {
				return fmt.Errorf("failed to open audit log: %w", err)
			}
			defer auditLog.Close()

			count := db.Count()
			if err := db.Clear(); err != nil {
				return err
			}
			auditLog.Log(audit.NewDatabaseClearedEvent(count).WithRunID(rid))

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", count)
			return nil
		},
	}
}
