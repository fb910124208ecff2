// Package seed derives the seeds used to initialise k-means clustering, so
// palettes can be reproduced for the same image, path or user value.
package seed

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"math/rand"
	"path/filepath"
	"slices"
	"strings"
	"time"

	imgutil "github.com/jmylchreest/palettepeek/internal/image"
)

// Mode determines how the clustering seed is generated.
type Mode string

const (
	// ModeContent hashes the image pixels (default, deterministic by content).
	ModeContent Mode = "content"
	// ModeFilepath hashes the absolute file path or URL.
	ModeFilepath Mode = "filepath"
	// ModeManual uses a user-provided seed value.
	ModeManual Mode = "manual"
	// ModeRandom varies on every run.
	ModeRandom Mode = "random"
)

// Config holds configuration for seed generation.
type Config struct {
	Mode  Mode   // Seed mode
	Value *int64 // Seed value (only used when Mode is ModeManual)
}

// Calculate determines the seed value based on the seed mode.
// img is required for ModeContent and source for ModeFilepath.
func Calculate(img image.Image, source string, config Config) (int64, error) {
	switch config.Mode {
	case ModeContent:
		if img == nil {
			return 0, fmt.Errorf("image is required for content-based seed mode")
		}
		return ContentSeed(img), nil
	case ModeFilepath:
		if source == "" {
			return 0, fmt.Errorf("image path is required for filepath-based seed mode")
		}
		return FilepathSeed(source), nil
	case ModeManual:
		if config.Value == nil {
			return 0, fmt.Errorf("seed value is required for manual seed mode")
		}
		return *config.Value, nil
	case ModeRandom:
		return RandomSeed(), nil
	default:
		return 0, fmt.Errorf("unknown seed mode: %s", config.Mode)
	}
}

// Source returns a random source seeded with seed.
func Source(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) // #nosec G404 -- clustering seed, not security sensitive
}

// ContentSeed hashes the image dimensions and a grid of up to ~100x100
// sampled pixels.
func ContentSeed(img image.Image) int64 {
	bounds := img.Bounds()
	hasher := sha256.New()

	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(bounds.Dx())) // #nosec G115 -- image dimensions are non-negative
	binary.LittleEndian.PutUint32(dims[4:8], uint32(bounds.Dy())) // #nosec G115 -- image dimensions are non-negative
	hasher.Write(dims[:])

	step := max(bounds.Dx()/100, bounds.Dy()/100, 1)
	var px [4]byte
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			px[0], px[1], px[2], px[3] = byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8)
			hasher.Write(px[:])
		}
	}

	return hashSeed(hasher.Sum(nil))
}

// FilepathSeed hashes the absolute path of a local file. URLs and data URLs
// are hashed as given.
func FilepathSeed(source string) int64 {
	key := source
	if !imgutil.IsURL(source) && !imgutil.IsDataURL(source) {
		if abs, err := filepath.Abs(source); err == nil {
			key = abs
		}
	}
	sum := sha256.Sum256([]byte(key))
	return hashSeed(sum[:])
}

// RandomSeed returns a non-deterministic seed.
func RandomSeed() int64 {
	return time.Now().UnixNano()
}

func hashSeed(sum []byte) int64 {
	return int64(binary.LittleEndian.Uint64(sum[:8])) // #nosec G115 -- hash bits reinterpreted as a seed
}

// ValidModes returns a list of valid seed modes.
func ValidModes() []Mode {
	return []Mode{ModeContent, ModeFilepath, ModeManual, ModeRandom}
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(ValidModes(), mode) {
		return mode, nil
	}
	return "", fmt.Errorf("invalid seed mode: %s (valid: content, filepath, manual, random)", s)
}
