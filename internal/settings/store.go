// Package settings persists user preferences in a local SQLite database.
package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Register the sqlite driver
)

// KeyMaxColors stores the preferred palette size.
const KeyMaxColors = "MAX_COLORS"

// Preferred palette size bounds. The lower bound is higher than the
// extractor's so the popup never shows a one or two colour palette.
const (
	MinMaxColors     = 3
	MaxMaxColors     = 50
	DefaultMaxColors = 10
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store reads and writes preferences.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the settings database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// MaxColors returns the stored palette size clamped to [MinMaxColors,
// MaxMaxColors]. When nothing usable is stored the fallback is clamped
// instead; a fallback that is not a number yields DefaultMaxColors.
func (s *Store) MaxColors(ctx context.Context, fallback any) (int, error) {
	raw, ok, err := s.get(ctx, KeyMaxColors)
	if err != nil {
		return 0, err
	}
	if ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return ClampMaxColors(v), nil
		}
	}
	return SanitizeMaxColors(fallback), nil
}

// SetMaxColors clamps n and stores it, returning the stored value.
func (s *Store) SetMaxColors(ctx context.Context, n int) (int, error) {
	value := ClampMaxColors(float64(n))
	if err := s.set(ctx, KeyMaxColors, strconv.Itoa(value)); err != nil {
		return 0, err
	}
	return value, nil
}

// EnsureDefaults stores DefaultMaxColors when no preference exists yet.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO settings(key, value, updated_at) VALUES (?, ?, ?)",
		KeyMaxColors, strconv.Itoa(DefaultMaxColors), now())
	if err != nil {
		return fmt.Errorf("store default %s: %w", KeyMaxColors, err)
	}
	return nil
}

// ClampMaxColors rounds v and clamps it to [MinMaxColors, MaxMaxColors].
func ClampMaxColors(v float64) int {
	return int(math.Min(math.Max(math.Round(v), MinMaxColors), MaxMaxColors))
}

// SanitizeMaxColors clamps a loosely typed value, as decoded from JSON.
// Anything that is not a finite number yields DefaultMaxColors.
func SanitizeMaxColors(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return DefaultMaxColors
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultMaxColors
	}
	return ClampMaxColors(f)
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now())
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		var count int
		if err := db.QueryRow("SELECT COUNT(1) FROM schema_migrations WHERE name = ?", name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("start migration tx %s: %w", name, err)
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations(name, applied_at) VALUES (?, ?)", name, now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}

	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
