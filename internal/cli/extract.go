package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmylchreest/palettepeek/internal/colour"
	"github.com/jmylchreest/palettepeek/internal/image"
	"github.com/jmylchreest/palettepeek/internal/seed"
)

// Output formats accepted by --format.
const (
	formatHex   = "hex"
	formatRGB   = "rgb"
	formatJSON  = "json"
	formatTable = "table"
)

type extractOptions struct {
	colours     int
	format      string
	output      string
	showPreview bool
	seedMode    string
	seedValue   int64
}

func newExtractCmd(a *app) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract a colour palette from an image",
		Long: `Extract a colour palette from an image.

The image is downscaled to at most 600 pixels on its longer edge, clustered
with k-means and then reconciled with the most saturated colours seen, so
small accents survive next to large areas of neutral colour.

The image may be a file, a directory (a random image inside it is used), an
HTTP(S) URL or a data URL. Supported formats: JPEG, PNG, GIF, WebP, AVIF.

When --colours is not given, the stored preference is used
(see "palettepeek config set max-colors").

Examples:
  # Extract the preferred number of colours
  palettepeek extract screenshot.png

  # Extract 5 colours as a table with previews
  palettepeek extract -c 5 -f table --preview screenshot.png

  # Extract colours as JSON into a file
  palettepeek extract -f json -o palette.json https://example.com/photo.jpg

  # Reproduce a palette with a fixed seed
  palettepeek extract --seed-mode manual --seed 42 photo.webp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.colours, "colours", "c", 0, "maximum number of colours (1-50, default: stored preference)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatHex, "output format (hex, rgb, json, table)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.showPreview, "preview", false, "show colour previews when writing to a terminal")
	cmd.Flags().StringVar(&opts.seedMode, "seed-mode", string(seed.ModeContent), "seed mode (content, filepath, manual, random)")
	cmd.Flags().Int64Var(&opts.seedValue, "seed", 0, "seed value for --seed-mode manual")

	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, source string, opts *extractOptions) error {
	if err := image.ValidateImagePath(source); err != nil {
		return fmt.Errorf("invalid image path: %w", err)
	}
	source, err := image.ResolveImagePath(source)
	if err != nil {
		return err
	}

	seedMode, err := seed.ParseMode(opts.seedMode)
	if err != nil {
		return err
	}
	if !isValidFormat(opts.format) {
		return fmt.Errorf("unsupported format: %s (supported: hex, rgb, json, table)", opts.format)
	}

	count, err := a.resolveColourCount(cmd, opts.colours)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ExtractTimeout)
	defer cancel()

	a.logger.Debug("loading image", "source", source)
	img, err := image.NewSmartLoader().Load(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	bounds := img.Bounds()
	a.logger.Debug("image loaded", "width", bounds.Dx(), "height", bounds.Dy())

	seedConfig := seed.Config{Mode: seedMode}
	if cmd.Flags().Changed("seed") {
		seedConfig.Value = &opts.seedValue
	}
	seedValue, err := seed.Calculate(img, source, seedConfig)
	if err != nil {
		return fmt.Errorf("failed to calculate seed: %w", err)
	}

	extractor, err := colour.NewExtractor(colour.AlgorithmKMeans, colour.ExtractorOptions{
		Seed:   &seedValue,
		Logger: a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	a.logger.Debug("extracting palette", "colours", count, "seed_mode", seedMode, "seed", seedValue)
	palette, err := extractor.Extract(img, count)
	if err != nil {
		return fmt.Errorf("failed to extract colours: %w", err)
	}
	if palette.IsEmpty() {
		a.logger.Warn("image has no opaque pixels, palette is empty", "source", source)
	}

	preview := opts.showPreview && opts.output == "" && isTerminal(cmd.OutOrStdout())
	if opts.showPreview && !preview {
		a.logger.Debug("preview disabled, output is not a terminal")
	}

	output, err := formatPalette(palette, opts.format, preview)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(output), 0o644); err != nil { // #nosec G306 -- palette output is not sensitive
			return fmt.Errorf("failed to write output file: %w", err)
		}
		a.logger.Info("palette written", "path", opts.output, "colours", palette.Len())
		return nil
	}

	_, err = io.WriteString(cmd.OutOrStdout(), output)
	return err
}

// resolveColourCount returns --colours when given, otherwise the stored
// preference, otherwise the configured default.
func (a *app) resolveColourCount(cmd *cobra.Command, flagValue int) (int, error) {
	if cmd.Flags().Changed("colours") {
		config := colour.DefaultExtractorConfig()
		config.ColorCount = flagValue
		if err := config.Validate(); err != nil {
			return 0, fmt.Errorf("invalid configuration: %w", err)
		}
		return flagValue, nil
	}

	store, err := a.openStore()
	if err != nil {
		a.logger.Warn("using default colour count", "error", err)
		return colour.SanitizeCount(a.cfg.DefaultMaxColors), nil
	}
	defer store.Close()

	n, err := store.MaxColors(cmd.Context(), a.cfg.DefaultMaxColors)
	if err != nil {
		a.logger.Warn("using default colour count", "error", err)
		return colour.SanitizeCount(a.cfg.DefaultMaxColors), nil
	}
	return n, nil
}

func isValidFormat(format string) bool {
	switch format {
	case formatHex, formatRGB, formatJSON, formatTable:
		return true
	}
	return false
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}

// formatPalette formats the palette according to the specified format.
func formatPalette(palette *colour.Palette, format string, showPreview bool) (string, error) {
	switch format {
	case formatHex:
		return formatHexList(palette, showPreview), nil
	case formatRGB:
		return formatRGBList(palette, showPreview), nil
	case formatJSON:
		jsonBytes, err := palette.ToJSON()
		if err != nil {
			return "", fmt.Errorf("failed to convert to JSON: %w", err)
		}
		return string(jsonBytes) + "\n", nil
	case formatTable:
		return formatSwatchTable(palette, showPreview), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: hex, rgb, json, table)", format)
	}
}

// formatHexList formats the palette as hex colour codes, one per line.
func formatHexList(palette *colour.Palette, showPreview bool) string {
	var b strings.Builder
	palette.All()(func(_ int, s colour.Swatch) bool {
		if showPreview {
			b.WriteString(colour.FormatSwatchWithPreview(s, 8))
		} else {
			b.WriteString(s.Hex)
		}
		b.WriteString("\n")
		return true
	})
	return b.String()
}

// formatRGBList formats the palette as rgb() values, one per line.
func formatRGBList(palette *colour.Palette, showPreview bool) string {
	var b strings.Builder
	for _, rgb := range palette.ToRGBSlice() {
		if showPreview {
			b.WriteString(colour.ColourPreview(rgb, 8) + "  ")
		}
		b.WriteString(rgb.String())
		b.WriteString("\n")
	}
	return b.String()
}

// formatSwatchTable formats the palette as a table of hex code, share and
// recommended text colour.
func formatSwatchTable(palette *colour.Palette, showPreview bool) string {
	headers := []string{"#", "Hex", "Share", "Text"}
	if showPreview {
		headers = append(headers, "Preview")
	}

	table := NewTable(headers)
	table.AlignRight(0)
	table.AlignRight(2)
	palette.All()(func(i int, s colour.Swatch) bool {
		row := []string{fmt.Sprint(i + 1), s.Hex, colour.FormatPercentage(s.Percentage), s.TextColour}
		if showPreview {
			row = append(row, colour.SwatchPreview(s, "Aa", 8))
		}
		table.AddRow(row)
		return true
	})
	return table.Render()
}
