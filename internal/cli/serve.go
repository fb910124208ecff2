package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/palettepeek/internal/cache"
	"github.com/jmylchreest/palettepeek/internal/host"
	"github.com/jmylchreest/palettepeek/internal/image"
	"github.com/jmylchreest/palettepeek/internal/seed"
	"github.com/jmylchreest/palettepeek/internal/util/http"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer palette requests as line-delimited JSON on stdin/stdout",
		Long: `Run a message host that reads one JSON request per line from stdin and
writes one JSON response per line to stdout. Logs go to stderr.

Requests:
  {"type":"EXTRACT_COLORS","payload":{"source":"shot.png","maxColors":8,"force":false}}
  {"type":"GET_MAX_COLORS","payload":{"fallback":10}}
  {"type":"SET_MAX_COLORS","payload":{"maxColors":12}}

Responses:
  {"type":"EXTRACT_SUCCESS","palette":[...],"meta":{"cached":false}}
  {"type":"GET_MAX_COLORS_SUCCESS","maxColors":10}
  {"type":"SET_MAX_COLORS_SUCCESS","maxColors":12}
  {"type":"EXTRACT_ERROR","error":{"message":"..."}}

An optional "id" on a request is echoed on its response. Requests of any
other type are ignored. Palettes are cached per source and size for the
configured cache TTL unless "force" is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.EnsureDefaults(cmd.Context()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h := host.New(host.Options{
				Store:    store,
				Cache:    cache.New(cache.DefaultSize, a.cfg.CacheTTL),
				Loader:   image.NewSmartLoader().WithFetchOptions(http.FetchOptions{Timeout: a.cfg.ExtractTimeout}),
				Timeout:  a.cfg.ExtractTimeout,
				SeedMode: a.cfg.SeedMode,
				Logger:   a.logger.Named("host"),
			})

			a.logger.Info("message host started", "db", a.cfg.DatabasePath(), "cache_ttl", a.cfg.CacheTTL, "seed_mode", a.cfg.SeedMode)
			err = h.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().Var(newSeedModeValue(&a.cfg.SeedMode), "seed-mode", "Clustering seed for extractions (content, filepath, random)")
	return cmd
}

// seedModeValue adapts a seed.Mode to pflag.Value.
type seedModeValue struct{ mode *seed.Mode }

func newSeedModeValue(mode *seed.Mode) *seedModeValue { return &seedModeValue{mode: mode} }

func (v *seedModeValue) String() string {
	if v.mode == nil {
		return ""
	}
	return string(*v.mode)
}

func (v *seedModeValue) Set(s string) error {
	mode, err := seed.ParseMode(s)
	if err != nil {
		return err
	}
	if mode == seed.ModeManual {
		return fmt.Errorf("manual seeds are not supported by serve")
	}
	*v.mode = mode
	return nil
}

func (v *seedModeValue) Type() string { return "string" }
