package colour

import (
	"image"
	"math"

	"github.com/hashicorp/go-hclog"

	imgutil "github.com/jmylchreest/palettepeek/internal/image"
)

const (
	// DefaultMaxIterations bounds the refinement loop.
	DefaultMaxIterations = 10

	// DefaultShiftThreshold stops refinement once the summed centroid movement drops below it.
	DefaultShiftThreshold = 2.0
)

// KMeansExtractor implements color extraction using k-means clustering.
type KMeansExtractor struct {
	maxIterations int
	convergence   float64
	rng           RandomSource
	logger        hclog.Logger
}

// NewKMeansExtractor creates a new KMeansExtractor with default settings.
func NewKMeansExtractor(opts ExtractorOptions) *KMeansExtractor {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &KMeansExtractor{
		maxIterations: DefaultMaxIterations,
		convergence:   DefaultShiftThreshold,
		rng:           opts.randomSource(),
		logger:        logger.Named("kmeans"),
	}
}

// Extract computes a palette of at most count swatches from img.
// count is clamped to [1, 50]. Images larger than imgutil.MaxEdge are
// downscaled first. An image with no opaque pixels yields an empty palette.
func (e *KMeansExtractor) Extract(img image.Image, count int) (*Palette, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	maxColours := SanitizeCount(count)

	scaled := imgutil.Downscale(img)
	bounds := scaled.Bounds()
	e.logger.Debug("sampling image", "width", bounds.Dx(), "height", bounds.Dy())

	tracker := NewAccentTracker()
	pixels := SamplePixels(scaled, tracker)
	if len(pixels) == 0 {
		e.logger.Debug("no opaque pixels, returning empty palette")
		return NewPalette(nil), nil
	}

	distinct := countDistinct(pixels)
	k := min(maxColours, distinct)
	e.logger.Debug("clustering", "pixels", len(pixels), "distinct", distinct, "k", k, "accents", tracker.Len())

	centroids := e.kmeans(pixels, k)
	swatches := buildSwatches(pixels, centroids)
	swatches = reconcileAccents(swatches, tracker.Candidates(), k, len(pixels), e.logger)

	return NewPalette(finaliseSwatches(swatches)), nil
}

// kmeans runs seeding plus refinement and returns the final centroids.
func (e *KMeansExtractor) kmeans(pixels []RGB, k int) []RGB {
	if k <= 0 || len(pixels) == 0 {
		return []RGB{}
	}

	centroids, passes := e.refine(pixels, initializeCentroids(pixels, k, e.rng))
	e.logger.Trace("refinement finished", "passes", passes)
	return centroids
}

// refine moves centroids toward their cluster means. It stops when
// assignments are stable after the first pass, when the summed centroid
// movement drops below the convergence threshold, or after maxIterations.
// It returns the final centroids and the number of assignment passes made.
func (e *KMeansExtractor) refine(pixels, centroids []RGB) ([]RGB, int) {
	assignments := make([]int, len(pixels))

	passes := 0
	for iter := 0; iter < e.maxIterations; iter++ {
		passes++
		changed := assignInto(pixels, centroids, assignments)

		// The first pass always recomputes, even if nothing moved off cluster 0.
		if !changed && iter > 0 {
			e.logger.Trace("assignments stable", "iteration", iter)
			break
		}

		newCentroids := RecomputeCentroids(pixels, assignments, len(centroids))

		totalShift := 0.0
		for i := range centroids {
			totalShift += centroids[i].distance(newCentroids[i])
		}
		centroids = newCentroids

		if totalShift < e.convergence {
			e.logger.Trace("centroids converged", "iteration", iter, "shift", totalShift)
			break
		}
	}

	return centroids, passes
}

// initializeCentroids picks k starting centroids using k-means++ seeding.
// Each centroid after the first is drawn with probability proportional to
// its squared distance from the nearest centroid already chosen.
func initializeCentroids(pixels []RGB, k int, rng RandomSource) []RGB {
	if len(pixels) == 0 || k <= 0 {
		return []RGB{}
	}

	centroids := make([]RGB, 0, k)
	centroids = append(centroids, pixels[rng.Intn(len(pixels))])

	distances := make([]float64, len(pixels))
	for len(centroids) < k {
		totalDistance := 0.0
		for i, p := range pixels {
			minDist := math.MaxFloat64
			for _, c := range centroids {
				if d := p.distanceSquared(c); d < minDist {
					minDist = d
				}
			}
			distances[i] = minDist
			totalDistance += minDist
		}

		// Every pixel coincides with a centroid already.
		if totalDistance == 0 {
			centroids = append(centroids, pixels[rng.Intn(len(pixels))])
			continue
		}

		target := rng.Float64() * totalDistance
		cumulative := 0.0
		chosen := 0
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, pixels[chosen])
	}

	return centroids
}

// nearestCentroid returns the index of the closest centroid. Ties go to the
// lowest index.
func nearestCentroid(p RGB, centroids []RGB) int {
	nearest := 0
	minDist := math.Inf(1)
	for i, c := range centroids {
		if d := p.distance(c); d < minDist {
			minDist = d
			nearest = i
		}
	}
	return nearest
}

// AssignPixels maps every pixel to the index of its nearest centroid.
func AssignPixels(pixels []RGB, centroids []RGB) []int {
	assignments := make([]int, len(pixels))
	assignInto(pixels, centroids, assignments)
	return assignments
}

// assignInto updates assignments in place and reports whether any changed.
func assignInto(pixels []RGB, centroids []RGB, assignments []int) bool {
	changed := false
	for i, p := range pixels {
		nearest := nearestCentroid(p, centroids)
		if assignments[i] != nearest {
			assignments[i] = nearest
			changed = true
		}
	}
	return changed
}

// RecomputeCentroids returns the rounded channel means of each cluster.
// A cluster with no members is reseeded to pixels[index % len(pixels)].
func RecomputeCentroids(pixels []RGB, assignments []int, k int) []RGB {
	type sum struct {
		r, g, b float64
		count   int
	}
	sums := make([]sum, k)

	for i, p := range pixels {
		s := &sums[assignments[i]]
		s.r += float64(p.R)
		s.g += float64(p.G)
		s.b += float64(p.B)
		s.count++
	}

	centroids := make([]RGB, k)
	for i, s := range sums {
		if s.count == 0 {
			centroids[i] = pixels[i%len(pixels)]
			continue
		}
		n := float64(s.count)
		centroids[i] = RGB{
			R: uint8(math.Round(s.r / n)),
			G: uint8(math.Round(s.g / n)),
			B: uint8(math.Round(s.b / n)),
		}
	}

	return centroids
}
