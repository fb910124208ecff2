// Package cache holds recently extracted palettes so repeated requests for
// the same source and size are answered without re-running extraction.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jmylchreest/palettepeek/internal/colour"
)

const (
	// DefaultTTL is how long a palette stays fresh.
	DefaultTTL = 5 * time.Second

	// DefaultSize bounds the number of cached palettes.
	DefaultSize = 64

	// maxKeySourceLen is the longest source used verbatim in a key; longer
	// sources (typically data URLs) are hashed.
	maxKeySourceLen = 512
)

// PaletteCache is a TTL-bounded LRU of extracted palettes. A zero TTL
// disables caching. It is safe for concurrent use.
type PaletteCache struct {
	lru *expirable.LRU[string, *colour.Palette]
}

// New creates a cache holding up to size palettes for ttl each.
func New(size int, ttl time.Duration) *PaletteCache {
	if ttl <= 0 {
		return &PaletteCache{}
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &PaletteCache{
		lru: expirable.NewLRU[string, *colour.Palette](size, nil, ttl),
	}
}

// Key identifies a palette by its source and requested size.
func Key(source string, maxColors int) string {
	if len(source) > maxKeySourceLen {
		sum := sha256.Sum256([]byte(source))
		source = "sha256-" + hex.EncodeToString(sum[:])
	}
	return fmt.Sprintf("%s:%d", source, maxColors)
}

// Get returns a fresh palette for key.
func (c *PaletteCache) Get(key string) (*colour.Palette, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Put stores palette under key, replacing any previous entry.
func (c *PaletteCache) Put(key string, palette *colour.Palette) {
	if c.lru == nil || palette == nil {
		return
	}
	c.lru.Add(key, palette)
}

// Purge drops every cached palette.
func (c *PaletteCache) Purge() {
	if c.lru != nil {
		c.lru.Purge()
	}
}

// Len returns the number of cached palettes, including ones that have
// expired but not yet been evicted.
func (c *PaletteCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
