// Package cli provides the command-line interface for palettepeek.
package cli

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/palettepeek/internal/config"
	"github.com/jmylchreest/palettepeek/internal/logging"
	"github.com/jmylchreest/palettepeek/internal/settings"
	"github.com/jmylchreest/palettepeek/internal/version"
)

// app carries state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger hclog.Logger
}

// Execute loads configuration, builds the command tree and runs it.
// It is called by main.main().
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := NewRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the root command around cfg. Flags registered here
// override values already resolved from the environment.
func NewRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg, logger: hclog.NewNullLogger()}

	rootCmd := &cobra.Command{
		Use:   "palettepeek",
		Short: "Extract a compact colour palette from an image",
		Long: `palettepeek extracts a small, representative colour palette from an image
using k-means clustering, then makes sure rare but vivid accent colours are
not lost to the dominant tones.

Each swatch reports its hex code, the share of the image it covers and a
readable text colour to draw on top of it.`,
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			quiet, _ := cmd.Flags().GetBool("quiet")
			level := logging.ResolveLevel(cfg.LogLevel, verbose, quiet)
			a.logger = logging.New("palettepeek", level, cmd.ErrOrStderr())
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress non-error output")
	config.BindFlags(rootCmd.PersistentFlags(), cfg)

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newExtractCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// openStore opens the preferences database.
func (a *app) openStore() (*settings.Store, error) {
	path := a.cfg.DatabasePath()
	a.logger.Debug("opening settings", "path", path)
	store, err := settings.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	return store, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
