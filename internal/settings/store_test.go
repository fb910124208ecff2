package settings

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "settings.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMaxColorsFallback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		fallback any
		want     int
	}{
		{name: "in range", fallback: 12, want: 12},
		{name: "below minimum", fallback: 1, want: 3},
		{name: "above maximum", fallback: 80.0, want: 50},
		{name: "rounds", fallback: 6.6, want: 7},
		{name: "string", fallback: "12", want: 10},
		{name: "nil", fallback: nil, want: 10},
		{name: "NaN", fallback: math.NaN(), want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.MaxColors(ctx, tt.fallback)
			if err != nil {
				t.Fatalf("MaxColors() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MaxColors(%v) = %d, want %d", tt.fallback, got, tt.want)
			}
		})
	}
}

func TestSetMaxColors(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		in, want int
	}{
		{in: 20, want: 20},
		{in: 2, want: 3},
		{in: 99, want: 50},
	}

	for _, tt := range tests {
		stored, err := store.SetMaxColors(ctx, tt.in)
		if err != nil {
			t.Fatalf("SetMaxColors(%d) error = %v", tt.in, err)
		}
		if stored != tt.want {
			t.Errorf("SetMaxColors(%d) = %d, want %d", tt.in, stored, tt.want)
		}
		got, err := store.MaxColors(ctx, 10)
		if err != nil {
			t.Fatalf("MaxColors() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("MaxColors() after set %d = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEnsureDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}
	if got, _ := store.MaxColors(ctx, 40); got != DefaultMaxColors {
		t.Errorf("MaxColors() = %d, want stored default %d", got, DefaultMaxColors)
	}

	if _, err := store.SetMaxColors(ctx, 25); err != nil {
		t.Fatal(err)
	}
	if err := store.EnsureDefaults(ctx); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}
	if got, _ := store.MaxColors(ctx, 40); got != 25 {
		t.Errorf("EnsureDefaults() overwrote preference: got %d, want 25", got)
	}
}

func TestReopenKeepsPreference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := store.SetMaxColors(ctx, 17); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()
	if got, _ := store.MaxColors(ctx, 10); got != 17 {
		t.Errorf("MaxColors() after reopen = %d, want 17", got)
	}
}
