package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/jmylchreest/palettepeek/internal/cache"
	"github.com/jmylchreest/palettepeek/internal/colour"
	"github.com/jmylchreest/palettepeek/internal/seed"
	"github.com/jmylchreest/palettepeek/internal/settings"
)

// mapLoader serves in-memory images and counts loads.
type mapLoader struct {
	images map[string]image.Image
	loads  int
}

func (l *mapLoader) Load(ctx context.Context, path string) (image.Image, error) {
	l.loads++
	img, ok := l.images[path]
	if !ok {
		return nil, errors.New("image file not found: " + path)
	}
	return img, nil
}

// blockingLoader waits until the request is cancelled.
type blockingLoader struct{}

func (blockingLoader) Load(ctx context.Context, _ string) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type reply struct {
	Type    string          `json:"type"`
	ID      any             `json:"id"`
	Palette []colour.Swatch `json:"palette"`
	Meta    struct {
		Cached bool `json:"cached"`
	} `json:"meta"`
	MaxColors int `json:"maxColors"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

func stripes() image.Image {
	colours := []color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, A: 255},
		{R: 40, G: 40, B: 40, A: 255},
	}
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, colours[x/2])
		}
	}
	return img
}

func newTestHost(t *testing.T, loader *mapLoader) (*Host, *settings.Store) {
	t.Helper()
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("settings.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := New(Options{
		Store:   store,
		Cache:   cache.New(8, time.Minute),
		Loader:  loader,
		Timeout: 5 * time.Second,
	})
	return h, store
}

func exchange(t *testing.T, h *Host, lines ...string) []reply {
	t.Helper()
	var out bytes.Buffer
	if err := h.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n")), &out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var replies []reply
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var r reply
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		replies = append(replies, r)
	}
	return replies
}

func TestExtractColors(t *testing.T) {
	loader := &mapLoader{images: map[string]image.Image{"stripes.png": stripes()}}
	h, _ := newTestHost(t, loader)

	replies := exchange(t, h,
		`{"type":"EXTRACT_COLORS","id":1,"payload":{"source":"stripes.png","maxColors":5}}`,
		`{"type":"EXTRACT_COLORS","id":2,"payload":{"source":"stripes.png","maxColors":5}}`,
		`{"type":"EXTRACT_COLORS","id":3,"payload":{"source":"stripes.png","maxColors":5,"force":true}}`,
	)
	if len(replies) != 3 {
		t.Fatalf("got %d replies, want 3", len(replies))
	}

	for i, r := range replies {
		if r.Type != TypeExtractSuccess {
			t.Fatalf("reply %d type = %s (%s)", i, r.Type, r.Error.Message)
		}
		if len(r.Palette) != 5 {
			t.Errorf("reply %d palette has %d swatches, want 5", i, len(r.Palette))
		}
		if r.ID != float64(i+1) {
			t.Errorf("reply %d id = %v, want %d", i, r.ID, i+1)
		}
	}

	if replies[0].Meta.Cached || !replies[1].Meta.Cached || replies[2].Meta.Cached {
		t.Errorf("cached flags = %v %v %v, want false true false",
			replies[0].Meta.Cached, replies[1].Meta.Cached, replies[2].Meta.Cached)
	}
	if loader.loads != 2 {
		t.Errorf("loader called %d times, want 2", loader.loads)
	}
}

func TestExtractColorsStoredPreferenceWins(t *testing.T) {
	loader := &mapLoader{images: map[string]image.Image{"stripes.png": stripes()}}
	h, store := newTestHost(t, loader)
	if _, err := store.SetMaxColors(context.Background(), 3); err != nil {
		t.Fatal(err)
	}

	replies := exchange(t, h, `{"type":"EXTRACT_COLORS","payload":{"source":"stripes.png","maxColors":10}}`)
	if len(replies) != 1 || replies[0].Type != TypeExtractSuccess {
		t.Fatalf("replies = %+v", replies)
	}
	if got := len(replies[0].Palette); got != 3 {
		t.Errorf("palette has %d swatches, want the stored 3", got)
	}
	for i := 1; i < len(replies[0].Palette); i++ {
		if replies[0].Palette[i-1].Percentage < replies[0].Palette[i].Percentage {
			t.Errorf("palette not sorted: %+v", replies[0].Palette)
		}
	}
}

func TestExtractColorsErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		loader  *mapLoader
		wantMsg string
	}{
		{
			name:    "missing source",
			line:    `{"type":"EXTRACT_COLORS","payload":{}}`,
			wantMsg: "Could not determine the image source.",
		},
		{
			name:    "disallowed scheme",
			line:    `{"type":"EXTRACT_COLORS","payload":{"source":"chrome://settings"}}`,
			wantMsg: "palettepeek cannot access this source. Try a different image.",
		},
		{
			name:    "unloadable image",
			line:    `{"type":"EXTRACT_COLORS","payload":{"source":"missing.png"}}`,
			wantMsg: "Unable to load the image: image file not found: missing.png",
		},
		{
			name:    "bad payload",
			line:    `{"type":"EXTRACT_COLORS","payload":{"source":42}}`,
			wantMsg: "Invalid request payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHost(t, &mapLoader{})
			replies := exchange(t, h, tt.line)
			if len(replies) != 1 {
				t.Fatalf("got %d replies, want 1", len(replies))
			}
			if replies[0].Type != TypeExtractError {
				t.Fatalf("type = %s, want %s", replies[0].Type, TypeExtractError)
			}
			if !strings.Contains(replies[0].Error.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", replies[0].Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestExtractColorsTimeout(t *testing.T) {
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	h := New(Options{Store: store, Loader: blockingLoader{}, Timeout: 20 * time.Millisecond})
	resp := h.Handle(context.Background(), Message{
		Type:    TypeExtractColors,
		Payload: json.RawMessage(`{"source":"slow.png"}`),
	})

	errResp, ok := resp.(ErrorResponse)
	if !ok {
		t.Fatalf("response = %#v, want ErrorResponse", resp)
	}
	if want := "Palette extraction timed out."; errResp.Error.Message != want {
		t.Errorf("message = %q, want %q", errResp.Error.Message, want)
	}
}

func TestMaxColorsMessages(t *testing.T) {
	h, _ := newTestHost(t, &mapLoader{})

	replies := exchange(t, h,
		`{"type":"GET_MAX_COLORS","payload":{"fallback":7}}`,
		`{"type":"GET_MAX_COLORS","payload":{"fallback":"lots"}}`,
		`{"type":"SET_MAX_COLORS","payload":{"maxColors":99}}`,
		`{"type":"GET_MAX_COLORS","payload":{"fallback":7}}`,
		`{"type":"SET_MAX_COLORS","payload":{"maxColors":1}}`,
	)

	want := []struct {
		typ string
		n   int
	}{
		{TypeGetMaxColorsSuccess, 7},
		{TypeGetMaxColorsSuccess, 10},
		{TypeSetMaxColorsSuccess, 50},
		{TypeGetMaxColorsSuccess, 50},
		{TypeSetMaxColorsSuccess, 3},
	}
	if len(replies) != len(want) {
		t.Fatalf("got %d replies, want %d", len(replies), len(want))
	}
	for i, w := range want {
		if replies[i].Type != w.typ || replies[i].MaxColors != w.n {
			t.Errorf("reply %d = %s %d, want %s %d", i, replies[i].Type, replies[i].MaxColors, w.typ, w.n)
		}
	}
}

func TestIgnoredMessages(t *testing.T) {
	h, _ := newTestHost(t, &mapLoader{})

	replies := exchange(t, h,
		`not json`,
		``,
		`{"type":"PING"}`,
		`{"payload":{}}`,
		`{"type":"GET_MAX_COLORS"}`,
	)
	if len(replies) != 1 || replies[0].Type != TypeGetMaxColorsSuccess || replies[0].MaxColors != 10 {
		t.Errorf("replies = %+v, want a single GET_MAX_COLORS_SUCCESS with 10", replies)
	}
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "photo.png", want: "photo.png"},
		{in: "  /tmp/a.png ", want: "/tmp/a.png"},
		{in: `C:\images\a.png`, want: `C:\images\a.png`},
		{in: "file:///tmp/a.png", want: "/tmp/a.png"},
		{in: "https://example.com/a.png", want: "https://example.com/a.png"},
		{in: "data:image/png;base64,AAAA", want: "data:image/png;base64,AAAA"},
		{in: "", wantErr: ErrNoSource},
		{in: "chrome-extension://abc/page.html", wantErr: ErrDisallowedSource},
		{in: "devtools://devtools", wantErr: ErrDisallowedSource},
		{in: "a:b.png", wantErr: ErrDisallowedSource},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolveSource(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("resolveSource() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveSourceExistingFileWithColon(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("colons are not valid in Windows file names")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.WriteFile("a:b.png", []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := resolveSource("a:b.png")
	if err != nil {
		t.Fatalf("resolveSource() error = %v", err)
	}
	if got != "a:b.png" {
		t.Errorf("resolveSource() = %q, want a:b.png", got)
	}
}

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: DefaultErrorMessage},
		{name: "empty", err: errors.New(""), want: DefaultErrorMessage},
		{name: "unknown", err: errors.New("boom"), want: "boom"},
		{name: "no source", err: ErrNoSource, want: "Could not determine the image source."},
		{name: "disallowed", err: ErrDisallowedSource, want: "palettepeek cannot access this source. Try a different image."},
		{name: "timeout", err: ErrTimeout, want: "Palette extraction timed out."},
		{name: "wrapped timeout", err: fmt.Errorf("extract: %w", ErrTimeout), want: "Palette extraction timed out."},
		{
			name: "load stage",
			err:  &stageError{stage: ErrLoad, err: errors.New("image file not found: x.png")},
			want: "Unable to load the image: image file not found: x.png",
		},
		{
			name: "extract stage",
			err:  &stageError{stage: ErrExtract, err: colour.ErrNilImage},
			want: "Palette extraction failed: " + colour.ErrNilImage.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeError(tt.err).Message; got != tt.want {
				t.Errorf("NormalizeError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHostErrorsAreIdiomatic(t *testing.T) {
	for _, err := range []error{ErrNoSource, ErrDisallowedSource, ErrTimeout, ErrLoad, ErrExtract, ErrPayload} {
		msg := err.Error()
		if msg == "" || unicode.IsUpper(rune(msg[0])) || strings.HasSuffix(msg, ".") {
			t.Errorf("error %q should start lowercase and have no trailing period", msg)
		}
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	cause := errors.New("decode failed")
	err := error(&stageError{stage: ErrLoad, err: cause})
	if !errors.Is(err, ErrLoad) || !errors.Is(err, cause) {
		t.Errorf("stage error should match both its stage and its cause")
	}
	if got := err.Error(); got != "load image: decode failed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSeedModes(t *testing.T) {
	t.Run("defaults to random", func(t *testing.T) {
		h := New(Options{Store: nil})
		if h.seedMode != seed.ModeRandom {
			t.Errorf("seedMode = %q, want %q", h.seedMode, seed.ModeRandom)
		}
	})

	t.Run("content mode repeats forced extractions", func(t *testing.T) {
		store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()

		loader := &mapLoader{images: map[string]image.Image{"noise.png": noise()}}
		h := New(Options{Store: store, Loader: loader, SeedMode: seed.ModeContent})

		line := `{"type":"EXTRACT_COLORS","payload":{"source":"noise.png","maxColors":6,"force":true}}`
		replies := exchange(t, h, line, line)
		if len(replies) != 2 || replies[0].Type != TypeExtractSuccess || replies[1].Type != TypeExtractSuccess {
			t.Fatalf("replies = %+v", replies)
		}
		if loader.loads != 2 {
			t.Errorf("loader called %d times, want 2", loader.loads)
		}
		a, b := replies[0].Palette, replies[1].Palette
		if len(a) != len(b) {
			t.Fatalf("palette lengths differ: %d vs %d", len(a), len(b))
		}
		for i := range a {
			if a[i].Hex != b[i].Hex || a[i].Percentage != b[i].Percentage {
				t.Errorf("swatch %d differs: %+v vs %+v", i, a[i], b[i])
			}
		}
	})
}

// noise is a deterministic image with many distinct colours.
func noise() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8), G: uint8(y * 8), B: uint8((x * y) % 256), A: 255})
		}
	}
	return img
}
