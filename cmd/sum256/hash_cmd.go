package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sum256/sum256/internal/hashutil"
	"github.com/sum256/sum256/internal/manifest"
	"github.com/sum256/sum256/internal/verify"
)

func hashCmd() *cobra.Command {
	var (
		bsdTag   bool
		paranoid bool
	)

	cmd := &cobra.Command{
		Use:   "hash [paths...]",
		Short: "Print SHA-256 checksums of files or stdin",
		Long: `Hash files and print one checksum line per file, in the format
sha256sum produces. With no paths, stdin is hashed and the name printed as "-".

With --paranoid every input is hashed by all implementations at once and the
command fails if they disagree.

Examples:
  sum256 hash release.iso
  sum256 hash --tag release.iso         # BSD-style output
  sum256 hash *.tar.gz > SHA256SUMS
  cat release.iso | sum256 hash`,
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

			crossCheck := paranoid || cfg.Hash.Paranoid
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				digest, err := hashOne(cmd.InOrStdin(), crossCheck)
				if err != nil {
					return err
				}
				printChecksumLine(out, digest, "-", bsdTag)
				return nil
			}

			var failed int
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "sum256: %v\n", err)
					failed++
					continue
				}

				digest, err := hashOne(f, crossCheck)
				f.Close()
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "sum256: %s: %v\n", path, err)
					failed++
					continue
				}

				printChecksumLine(out, digest, path, bsdTag)
			}

			if failed > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d of %d inputs could not be hashed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&bsdTag, "tag", false, "print BSD-style checksum lines")
	cmd.Flags().BoolVar(&paranoid, "paranoid", false, "cross-check every digest against independent implementations")

	return cmd
}

// hashOne digests a single input, optionally through every implementation.
func hashOne(r io.Reader, crossCheck bool) (string, error) {
	if !crossCheck {
		return hashutil.HashReader(r)
	}

	mh := verify.NewMultiHasher(verify.Implementations())
	if _, err := io.Copy(mh, r); err != nil {
		return "", err
	}

	digest, ok := mh.Agreed()
	if !ok {
		return "", fmt.Errorf("SHA-256 implementations disagree: %v", mh.Sums())
	}
	return digest, nil
}

func printChecksumLine(w io.Writer, digest, name string, bsdTag bool) {
	e := manifest.Entry{Path: name, SHA256: digest}
	if bsdTag {
		fmt.Fprintln(w, manifest.FormatBSDLine(e))
		return
	}
	fmt.Fprintln(w, manifest.FormatLine(e))
}
