// Package config handles configuration loading and defaults for sum256
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for sum256
type Config struct {
	Hash    HashConfig    `toml:"hash"`
	Scan    ScanConfig    `toml:"scan"`
	DB      DBConfig      `toml:"db"`
	Audit   AuditConfig   `toml:"audit"`
	Logging LoggingConfig `toml:"logging"`
}

// HashConfig holds digest computation settings
type HashConfig struct {
	// Paranoid cross-checks every digest with independent implementations
	Paranoid   bool   `toml:"paranoid"`
	BufferSize string `toml:"buffer_size"`
}

// ScanConfig holds directory scan settings
type ScanConfig struct {
	Workers        int    `toml:"workers"`
	MaxReadRate    string `toml:"max_read_rate"`
	FollowSymlinks bool   `toml:"follow_symlinks"`
}

// DBConfig holds checksum database settings
type DBConfig struct {
	Path string `toml:"path"`
}

// AuditConfig holds audit log settings
type AuditConfig struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "sum256")
	return &Config{
		Hash: HashConfig{
			Paranoid:   false,
			BufferSize: "256KB",
		},
		Scan: ScanConfig{
			Workers:        0, // 0 = number of CPUs
			MaxReadRate:    "0",
			FollowSymlinks: false,
		},
		DB: DBConfig{
			Path: filepath.Join(dataDir, "sums.db"),
		},
		Audit: AuditConfig{
			Enabled:    false,
			Path:       filepath.Join(dataDir, "audit.json"),
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load reads configuration from a file, merging with defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if no config file
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithWarnings loads configuration and reports non-fatal issues a user
// should know about. A config file writable by group or others can be used
// to repoint the checksum database, so that earns a warning.
func LoadWithWarnings(path string) (*Config, []string, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if info, statErr := os.Stat(path); statErr == nil {
		if info.Mode().Perm()&0022 != 0 {
			warnings = append(warnings,
				fmt.Sprintf("config file %s is writable by group or others; it controls which database digests are trusted", path))
		}
	}

	return cfg, warnings, nil
}

// Save writes configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ValidationErrors collects all problems found in a configuration
type ValidationErrors []error

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Hash.BufferSize != "" {
		if _, err := ParseSize(c.Hash.BufferSize); err != nil {
			errs = append(errs, fmt.Errorf("hash.buffer_size: %w", err))
		}
	}

	if c.Scan.Workers < 0 || c.Scan.Workers > 256 {
		errs = append(errs, fmt.Errorf("scan.workers must be between 0 and 256, got %d", c.Scan.Workers))
	}
	if _, err := ParseRate(c.Scan.MaxReadRate); err != nil {
		errs = append(errs, fmt.Errorf("scan.max_read_rate: %w", err))
	}

	if c.Audit.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("audit.max_size_mb must not be negative, got %d", c.Audit.MaxSizeMB))
	}
	if c.Audit.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("audit.max_backups must not be negative, got %d", c.Audit.MaxBackups))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

const (
	defaultBufferSize = 256 * 1024
	minBufferSize     = 4 * 1024
	maxBufferSize     = 16 * 1024 * 1024
)

// BufferSizeBytes returns the configured read buffer size, falling back to
// the default when the value is missing, unparseable, or out of range.
func (c *HashConfig) BufferSizeBytes() int {
	size, err := ParseSize(c.BufferSize)
	if err != nil || size < minBufferSize || size > maxBufferSize {
		return defaultBufferSize
	}
	return int(size)
}

// MaxReadRateBytes returns the configured read throttle in bytes per second,
// with 0 meaning unlimited. Unparseable values fall back to unlimited.
func (c *ScanConfig) MaxReadRateBytes() int64 {
	rate, err := ParseRate(c.MaxReadRate)
	if err != nil {
		return 0
	}
	return rate
}

// EffectiveWorkers returns the worker count to use for scans
func (c *ScanConfig) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// ParseSize parses a size string like "256KB" or "10GB" into bytes
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	var size int64
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		size = size*10 + int64(s[n]-'0')
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}

	switch strings.ToUpper(strings.TrimSpace(s[n:])) {
	case "", "B":
	case "KB", "K":
		size *= 1024
	case "MB", "M":
		size *= 1024 * 1024
	case "GB", "G":
		size *= 1024 * 1024 * 1024
	case "TB", "T":
		size *= 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size unit in %q", s)
	}

	return size, nil
}

// ParseRate parses a rate string like "10MB/s" or "100KB" into bytes per second.
// Returns 0 for unlimited (empty string, "0", or "unlimited").
func ParseRate(s string) (int64, error) {
	if s == "" || s == "0" || s == "unlimited" {
		return 0, nil
	}

	rateStr := s
	if len(s) > 2 && s[len(s)-2:] == "/s" {
		rateStr = s[:len(s)-2]
	}

	return ParseSize(rateStr)
}
