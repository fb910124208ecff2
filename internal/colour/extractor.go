package colour

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultColourCount is used when a requested palette size is not a number.
	DefaultColourCount = 10

	// MinColourCount and MaxColourCount bound the palette size accepted by extractors.
	MinColourCount = 1
	MaxColourCount = 50
)

// ErrNilImage is returned when an extractor is handed a nil image.
var ErrNilImage = errors.New("image cannot be nil")

// Extractor defines the interface for color extraction algorithms.
type Extractor interface {
	// Extract extracts a color palette from an image.
	// The count parameter specifies the maximum number of swatches.
	Extract(img image.Image, count int) (*Palette, error)
}

// RandomSource supplies the randomness used for cluster seeding.
// *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// Algorithm represents the color extraction algorithm type.
type Algorithm string

const (
	// AlgorithmKMeans uses k-means clustering with accent reconciliation.
	AlgorithmKMeans Algorithm = "kmeans"
)

// ValidAlgorithms returns a list of valid algorithm names.
func ValidAlgorithms() []Algorithm {
	return []Algorithm{
		AlgorithmKMeans,
	}
}

// IsValidAlgorithm checks if the given algorithm name is valid.
func IsValidAlgorithm(alg Algorithm) bool {
	for _, valid := range ValidAlgorithms() {
		if alg == valid {
			return true
		}
	}
	return false
}

// ExtractorOptions configures an extractor.
type ExtractorOptions struct {
	// Random overrides the seeding source. Takes precedence over Seed.
	Random RandomSource

	// Seed makes seeding reproducible. When both Random and Seed are nil a
	// time-based seed is used.
	Seed *int64

	// Logger receives debug output. Defaults to a null logger.
	Logger hclog.Logger
}

func (o ExtractorOptions) randomSource() RandomSource {
	if o.Random != nil {
		return o.Random
	}
	if o.Seed != nil {
		return rand.New(rand.NewSource(*o.Seed)) // #nosec G404 -- clustering seed, not security sensitive
	}
	return rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- clustering seed, not security sensitive
}

// NewExtractor creates a new Extractor based on the specified algorithm.
// Returns an error if the algorithm is not recognized.
func NewExtractor(alg Algorithm, opts ExtractorOptions) (Extractor, error) {
	switch alg {
	case AlgorithmKMeans:
		return NewKMeansExtractor(opts), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", alg, ValidAlgorithms())
	}
}

// ExtractorConfig holds configuration for color extraction.
type ExtractorConfig struct {
	Algorithm  Algorithm
	ColorCount int
}

// DefaultExtractorConfig returns the default extractor configuration.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Algorithm:  AlgorithmKMeans,
		ColorCount: DefaultColourCount,
	}
}

// Validate validates the extractor configuration.
func (c ExtractorConfig) Validate() error {
	if !IsValidAlgorithm(c.Algorithm) {
		return fmt.Errorf("invalid algorithm: %s", c.Algorithm)
	}
	if c.ColorCount < MinColourCount {
		return fmt.Errorf("color count must be at least %d, got %d", MinColourCount, c.ColorCount)
	}
	if c.ColorCount > MaxColourCount {
		return fmt.Errorf("color count too large: %d (maximum: %d)", c.ColorCount, MaxColourCount)
	}
	return nil
}

// SanitizeCount clamps a requested palette size to [MinColourCount, MaxColourCount].
func SanitizeCount(count int) int {
	return min(max(count, MinColourCount), MaxColourCount)
}

// SanitizeCountValue clamps a loosely typed palette size, as decoded from
// JSON. Anything that is not a finite number yields DefaultColourCount.
func SanitizeCountValue(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		return SanitizeCount(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return DefaultColourCount
	}
	if math.IsNaN(f) {
		return DefaultColourCount
	}
	if math.IsInf(f, 0) {
		if f > 0 {
			return MaxColourCount
		}
		return MinColourCount
	}
	return SanitizeCount(int(math.Max(math.Min(math.Round(f), MaxColourCount), MinColourCount)))
}
