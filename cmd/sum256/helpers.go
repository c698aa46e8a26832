package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sum256/sum256/internal/audit"
	"github.com/sum256/sum256/internal/config"
	"github.com/sum256/sum256/internal/metrics"
	"github.com/sum256/sum256/internal/runid"
	"github.com/sum256/sum256/internal/sumdb"
)

// runIDEnv lets a wrapper script correlate several invocations in the audit log.
const runIDEnv = "SUM256_RUN_ID"

// setupLogger creates a configured zap logger. Flags override the config file.
func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	lvlName := cfg.Logging.Level
	if logLevel != "" {
		lvlName = logLevel
	}

	level := zapcore.InfoLevel
	switch lvlName {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	out := cfg.Logging.File
	if logFile != "" {
		out = logFile
	}
	if out != "" {
		zapCfg.OutputPaths = []string{out}
	}

	return zapCfg.Build()
}

// configPaths returns the list of config file paths to search.
func configPaths() []string {
	if cfgFile != "" {
		return []string{cfgFile}
	}
	homeDir, _ := os.UserHomeDir()
	return []string{
		"/etc/sum256/config.toml",
		filepath.Join(homeDir, ".config", "sum256", "config.toml"),
	}
}

// loadConfig loads and validates configuration from the first available
// config file.
func loadConfig() (*config.Config, error) {
	cfg, _, err := loadConfigWithWarnings()
	return cfg, err
}

// loadConfigWithWarnings loads config and returns warnings for settings that
// weaken integrity guarantees.
func loadConfigWithWarnings() (*config.Config, []string, error) {
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, warnings, err := config.LoadWithWarnings(path)
			if err != nil {
				return nil, nil, err
			}
			if err := cfg.Validate(); err != nil {
				return nil, nil, fmt.Errorf("invalid config %s: %w", path, err)
			}
			return cfg, warnings, nil
		}
	}
	return config.DefaultConfig(), nil, nil
}

// openDB opens the checksum database, honoring the --db flag override.
func openDB(cfg *config.Config, logger *zap.Logger) (*sumdb.DB, error) {
	path := cfg.DB.Path
	if dbPath != "" {
		path = dbPath
	}
	return sumdb.New(path, logger)
}

// openAudit returns the configured audit logger, or a no-op when disabled.
func openAudit(cfg *config.Config) (audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return &audit.NoopLogger{}, nil
	}
	return audit.NewJSONWriter(audit.JSONWriterConfig{
		Path:       cfg.Audit.Path,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
	})
}

// newRunContext tags the context with a run ID and a scoped logger. A valid
// ID in the environment is reused so wrapped invocations share an audit trail.
func newRunContext(ctx context.Context, logger *zap.Logger) context.Context {
	if id := os.Getenv(runIDEnv); runid.IsValid(id) {
		return runid.NewContextWithID(ctx, id, logger)
	}
	return runid.NewContext(ctx, logger)
}

// writeMetricsFile dumps metrics in Prometheus textfile collector format when
// --metrics-file is set. Written via a temp file so collectors never see a
// partial dump.
func writeMetricsFile(m *metrics.Metrics) error {
	if metricsFile == "" || m == nil {
		return nil
	}

	var buf bytes.Buffer
	m.WriteText(&buf)

	tmp := metricsFile + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, metricsFile)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
