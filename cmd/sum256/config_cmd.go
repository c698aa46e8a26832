package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sum256/sum256/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configInitCmd())

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration\n")
			fmt.Fprintf(out, "══════════════════════════════════════\n")
			fmt.Fprintf(out, "\n[hash]\n")
			fmt.Fprintf(out, "  paranoid        = %v\n", cfg.Hash.Paranoid)
			fmt.Fprintf(out, "  buffer_size     = %s\n", cfg.Hash.BufferSize)
			fmt.Fprintf(out, "\n[scan]\n")
			fmt.Fprintf(out, "  workers         = %d\n", cfg.Scan.Workers)
			fmt.Fprintf(out, "  max_read_rate   = %s\n", cfg.Scan.MaxReadRate)
			fmt.Fprintf(out, "  follow_symlinks = %v\n", cfg.Scan.FollowSymlinks)
			fmt.Fprintf(out, "\n[db]\n")
			fmt.Fprintf(out, "  path            = %s\n", cfg.DB.Path)
			fmt.Fprintf(out, "\n[audit]\n")
			fmt.Fprintf(out, "  enabled         = %v\n", cfg.Audit.Enabled)
			fmt.Fprintf(out, "  path            = %s\n", cfg.Audit.Path)
			fmt.Fprintf(out, "  max_size_mb     = %d\n", cfg.Audit.MaxSizeMB)
			fmt.Fprintf(out, "  max_backups     = %d\n", cfg.Audit.MaxBackups)
			fmt.Fprintf(out, "\n[logging]\n")
			fmt.Fprintf(out, "  level           = %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  file            = %s\n", cfg.Logging.File)

			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()

			var cfgPath string
			if cfgFile != "" {
				cfgPath = cfgFile
			} else {
				homeDir, _ := os.UserHomeDir()
				cfgPath = filepath.Join(homeDir, ".config", "sum256", "config.toml")
			}

			if err := cfg.Save(cfgPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", cfgPath)
			return nil
		},
	}
}
