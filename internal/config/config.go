// Package config resolves palettepeek's runtime configuration from built-in
// defaults, optional .env files, PALETTEPEEK_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/palettepeek/internal/seed"
)

// AppSlug names the per-user data directory.
const AppSlug = "palettepeek"

// Environment variables read by Load.
const (
	EnvDataDir        = "PALETTEPEEK_DATA_DIR"
	EnvDBPath         = "PALETTEPEEK_DB"
	EnvLogLevel       = "PALETTEPEEK_LOG_LEVEL"
	EnvMaxColors      = "PALETTEPEEK_MAX_COLORS"
	EnvCacheTTL       = "PALETTEPEEK_CACHE_TTL"
	EnvExtractTimeout = "PALETTEPEEK_EXTRACT_TIMEOUT"
	EnvSeedMode       = "PALETTEPEEK_SEED_MODE"
)

// Defaults.
const (
	DefaultMaxColors      = 10
	DefaultCacheTTL       = 5 * time.Second
	DefaultExtractTimeout = 30 * time.Second
	DefaultLogLevel       = "warn"
	DefaultSeedMode       = seed.ModeRandom
	defaultDBName         = "settings.db"
)

// Config holds the resolved configuration.
type Config struct {
	// DataDir holds the settings database.
	DataDir string
	// DBPath overrides the settings database location. Empty means DataDir/settings.db.
	DBPath string
	// LogLevel is an hclog level name.
	LogLevel string
	// DefaultMaxColors is used when no preference has been stored yet.
	DefaultMaxColors int
	// CacheTTL is how long an extracted palette is reused.
	CacheTTL time.Duration
	// ExtractTimeout bounds a single extraction in the message host.
	ExtractTimeout time.Duration
	// SeedMode seeds clustering in the message host. Manual seeds are only
	// available to the extract command.
	SeedMode seed.Mode
}

// Default returns the built-in configuration.
func Default() (Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve user config dir: %w", err)
	}
	return Config{
		DataDir:          filepath.Join(configDir, AppSlug),
		LogLevel:         DefaultLogLevel,
		DefaultMaxColors: DefaultMaxColors,
		CacheTTL:         DefaultCacheTTL,
		ExtractTimeout:   DefaultExtractTimeout,
		SeedMode:         DefaultSeedMode,
	}, nil
}

// Load returns the defaults overlaid with any dotenv files that exist and
// then the process environment. Variables already set in the environment
// take precedence over dotenv values. With no paths, ".env" in the working
// directory is tried.
func Load(dotenvPaths ...string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	fileEnv, err := readDotEnv(dotenvPaths)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// readDotEnv merges the given dotenv files, skipping missing ones. Earlier
// files win on conflicting keys.
func readDotEnv(paths []string) (map[string]string, error) {
	merged := map[string]string{}
	for _, path := range paths {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range values {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.DBPath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvMaxColors); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxColors, err)
		}
		c.DefaultMaxColors = n
	}
	if v, ok := lookup(EnvCacheTTL); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		c.CacheTTL = d
	}
	if v, ok := lookup(EnvExtractTimeout); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvExtractTimeout, err)
		}
		c.ExtractTimeout = d
	}
	if v, ok := lookup(EnvSeedMode); ok && v != "" {
		mode, err := seed.ParseMode(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeedMode, err)
		}
		c.SeedMode = mode
	}
	return nil
}

// BindFlags registers flags that override c. The current values of c become
// the flag defaults, so flags only win when they are given.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "Directory holding the settings database")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Settings database path (default <data-dir>/"+defaultDBName+")")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (trace, debug, info, warn, error, off)")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "How long extracted palettes are reused")
	fs.DurationVar(&c.ExtractTimeout, "timeout", c.ExtractTimeout, "Maximum time for a single extraction")
}

// DatabasePath returns the settings database location.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, defaultDBName)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.DataDir == "" && c.DBPath == "" {
		return fmt.Errorf("either a data directory or a database path is required")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative: %s", c.CacheTTL)
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("extract timeout must be positive: %s", c.ExtractTimeout)
	}
	switch c.SeedMode {
	case seed.ModeContent, seed.ModeFilepath, seed.ModeRandom:
	default:
		return fmt.Errorf("host seed mode must be content, filepath or random, got %q", c.SeedMode)
	}
	return nil
}
