// Package host implements a line-delimited JSON message host: one request
// per input line, at most one response line per request. It lets an editor
// plugin, browser extension or script request palettes from a long-running
// palettepeek process.
package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/palettepeek/internal/cache"
	"github.com/jmylchreest/palettepeek/internal/colour"
	imgutil "github.com/jmylchreest/palettepeek/internal/image"
	"github.com/jmylchreest/palettepeek/internal/seed"
)

const (
	// DefaultTimeout bounds one extraction when Options.Timeout is zero.
	DefaultTimeout = 30 * time.Second

	// maxLineBytes caps a single request line; screenshots arrive as data URLs.
	maxLineBytes = 64 << 20
)

var (
	// ErrNoSource is returned when a request names no image.
	ErrNoSource = errors.New("no image source")
	// ErrDisallowedSource is returned for sources palettepeek will not open.
	ErrDisallowedSource = errors.New("source not allowed")
	// ErrTimeout is returned when extraction exceeds the configured timeout.
	ErrTimeout = errors.New("extraction timed out")
	// ErrLoad wraps failures to load or decode the image.
	ErrLoad = errors.New("load image")
	// ErrExtract wraps failures inside the extractor.
	ErrExtract = errors.New("extract palette")
	// ErrPayload wraps payloads that do not decode.
	ErrPayload = errors.New("invalid request payload")
)

// stageError tags an underlying error with the request stage that failed.
type stageError struct {
	stage error
	err   error
}

func (e *stageError) Error() string { return e.stage.Error() + ": " + e.err.Error() }

func (e *stageError) Unwrap() []error { return []error{e.stage, e.err} }

// PreferenceStore persists the preferred palette size.
type PreferenceStore interface {
	MaxColors(ctx context.Context, fallback any) (int, error)
	SetMaxColors(ctx context.Context, n int) (int, error)
}

// Options configures a Host.
type Options struct {
	Store   PreferenceStore
	Cache   *cache.PaletteCache
	Loader  imgutil.Loader
	Timeout time.Duration
	// SeedMode selects the clustering seed. Empty means seed.ModeRandom, so
	// forced re-extractions draw fresh centroids. ModeManual is not supported.
	SeedMode seed.Mode
	Logger   hclog.Logger
}

// Host answers palette requests.
type Host struct {
	store   PreferenceStore
	cache   *cache.PaletteCache
	loader  imgutil.Loader
	timeout  time.Duration
	seedMode seed.Mode
	logger   hclog.Logger
}

// New creates a Host. Store is required; the other options have defaults.
func New(opts Options) *Host {
	h := &Host{
		store:   opts.Store,
		cache:   opts.Cache,
		loader:  opts.Loader,
		timeout:  opts.Timeout,
		seedMode: opts.SeedMode,
		logger:   opts.Logger,
	}
	if h.cache == nil {
		h.cache = cache.New(cache.DefaultSize, cache.DefaultTTL)
	}
	if h.loader == nil {
		h.loader = imgutil.NewSmartLoader()
	}
	if h.timeout <= 0 {
		h.timeout = DefaultTimeout
	}
	if h.seedMode == "" {
		h.seedMode = seed.ModeRandom
	}
	if h.logger == nil {
		h.logger = hclog.NewNullLogger()
	}
	return h
}

// Run reads requests from in and writes responses to out until in is
// exhausted or ctx is cancelled. Malformed lines are logged and skipped.
func (h *Host) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			h.logger.Warn("failed to parse message", "error", err)
			continue
		}

		resp := h.Handle(ctx, msg)
		if resp == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read messages: %w", err)
	}
	return nil
}

// Handle answers a single message. Messages without a known type produce
// no response and nil is returned.
func (h *Host) Handle(ctx context.Context, msg Message) any {
	switch msg.Type {
	case TypeExtractColors:
		var payload ExtractPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return errorResponse(msg.ID, err)
		}
		palette, cached, err := h.extract(ctx, payload)
		if err != nil {
			h.logger.Debug("extraction failed", "source", shortSource(payload.Source), "error", err)
			return errorResponse(msg.ID, err)
		}
		return ExtractSuccess{
			Type:    TypeExtractSuccess,
			ID:      msg.ID,
			Palette: palette.Swatches,
			Meta:    ExtractMeta{Cached: cached},
		}

	case TypeGetMaxColors:
		var payload GetMaxColorsPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return errorResponse(msg.ID, err)
		}
		n, err := h.store.MaxColors(ctx, payload.Fallback)
		if err != nil {
			return errorResponse(msg.ID, err)
		}
		return MaxColorsResponse{Type: TypeGetMaxColorsSuccess, ID: msg.ID, MaxColors: n}

	case TypeSetMaxColors:
		var payload SetMaxColorsPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return errorResponse(msg.ID, err)
		}
		n, err := h.store.SetMaxColors(ctx, colour.SanitizeCountValue(payload.MaxColors))
		if err != nil {
			return errorResponse(msg.ID, err)
		}
		h.cache.Purge()
		return MaxColorsResponse{Type: TypeSetMaxColorsSuccess, ID: msg.ID, MaxColors: n}

	default:
		h.logger.Debug("ignoring message", "type", msg.Type)
		return nil
	}
}

// extract resolves the palette size from the stored preference (falling
// back to the requested size), serves fresh cached palettes unless forced,
// and otherwise loads and clusters the image under the host timeout.
func (h *Host) extract(ctx context.Context, payload ExtractPayload) (*colour.Palette, bool, error) {
	source, err := resolveSource(payload.Source)
	if err != nil {
		return nil, false, err
	}

	maxColors, err := h.store.MaxColors(ctx, payload.MaxColors)
	if err != nil {
		return nil, false, err
	}

	key := cache.Key(source, maxColors)
	if !payload.Force {
		if palette, ok := h.cache.Get(key); ok {
			return palette, true, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	type result struct {
		palette *colour.Palette
		err     error
	}
	done := make(chan result, 1)
	go func() {
		palette, err := h.run(ctx, source, maxColors)
		done <- result{palette, err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, false, ErrTimeout
		}
		return nil, false, ctx.Err()
	case r := <-done:
		if r.err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, false, ErrTimeout
			}
			return nil, false, r.err
		}
		h.cache.Put(key, r.palette)
		return r.palette, false, nil
	}
}

func (h *Host) run(ctx context.Context, source string, maxColors int) (*colour.Palette, error) {
	start := time.Now()
	img, err := h.loader.Load(ctx, source)
	if err != nil {
		return nil, &stageError{stage: ErrLoad, err: err}
	}
	if img == nil {
		return nil, &stageError{stage: ErrLoad, err: colour.ErrNilImage}
	}

	seedValue, err := seed.Calculate(img, source, seed.Config{Mode: h.seedMode})
	if err != nil {
		return nil, &stageError{stage: ErrExtract, err: err}
	}
	extractor := colour.NewKMeansExtractor(colour.ExtractorOptions{
		Random: seed.Source(seedValue),
		Logger: h.logger,
	})
	palette, err := extractor.Extract(img, maxColors)
	if err != nil {
		return nil, &stageError{stage: ErrExtract, err: err}
	}

	h.logger.Debug("palette extracted",
		"source", shortSource(source), "colours", palette.Len(),
		"size", imageSize(img), "elapsed", time.Since(start))
	return palette, nil
}

// resolveSource accepts local paths, file://, http(s):// and data: URLs.
// Other schemes (browser-internal pages and the like) are refused unless the
// string names an existing file.
func resolveSource(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", ErrNoSource
	}
	if imgutil.IsURL(source) || imgutil.IsDataURL(source) {
		return source, nil
	}
	if _, err := os.Stat(source); err == nil {
		return source, nil
	}

	u, err := url.Parse(source)
	if err != nil || len(u.Scheme) <= 1 {
		// Plain paths, including Windows drive letters.
		return source, nil
	}
	if u.Scheme == "file" {
		if u.Path == "" {
			return "", ErrNoSource
		}
		return u.Path, nil
	}
	return "", ErrDisallowedSource
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &stageError{stage: ErrPayload, err: err}
	}
	return nil
}

func errorResponse(id any, err error) ErrorResponse {
	return ErrorResponse{Type: TypeExtractError, ID: id, Error: NormalizeError(err)}
}

func shortSource(source string) string {
	if len(source) > 64 {
		return source[:64] + "..."
	}
	return source
}

func imageSize(img image.Image) string {
	b := img.Bounds()
	return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
}
