package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

const keyMaxColors = "max-colors"

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change stored preferences",
		Long: `Read and change stored preferences.

Keys:
  max-colors  preferred palette size (3-50, default 10)`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != keyMaxColors {
				return fmt.Errorf("unknown key: %s (valid: %s)", args[0], keyMaxColors)
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.MaxColors(cmd.Context(), a.cfg.DefaultMaxColors)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != keyMaxColors {
				return fmt.Errorf("unknown key: %s (valid: %s)", args[0], keyMaxColors)
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid value for %s: %q is not a whole number", keyMaxColors, args[1])
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stored, err := store.SetMaxColors(cmd.Context(), n)
			if err != nil {
				return err
			}
			if stored != n {
				a.logger.Warn("value clamped", "requested", n, "stored", stored)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stored)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings database path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), a.cfg.DatabasePath())
		},
	})

	return cmd
}
