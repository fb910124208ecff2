// Package logging builds the hclog loggers shared by the CLI and the message host.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = hclog.Warn

// New creates a named logger writing to out at the given level.
// A nil out writes to stderr; stdout is reserved for command output.
func New(name string, level hclog.Level, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}
	if level == hclog.NoLevel {
		level = DefaultLevel
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Output: out,
		Level:  level,
	})
}

// ResolveLevel picks the effective level: verbose wins over quiet, and both
// win over the configured level name.
func ResolveLevel(configured string, verbose, quiet bool) hclog.Level {
	switch {
	case verbose:
		return hclog.Debug
	case quiet:
		return hclog.Error
	}
	if configured == "" {
		return DefaultLevel
	}
	level := hclog.LevelFromString(strings.TrimSpace(configured))
	if level == hclog.NoLevel {
		return DefaultLevel
	}
	return level
}
