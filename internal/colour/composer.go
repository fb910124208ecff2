package colour

import (
	"sort"

	"github.com/hashicorp/go-hclog"
)

const (
	// AccentMinShare is the noise floor below which accent candidates are ignored.
	AccentMinShare = 0.004

	// AccentReplaceShare allows an accent to replace a swatch at or below this share.
	AccentReplaceShare = 0.01

	// AccentReplaceRatio allows an accent to replace the smallest swatch when its
	// share is at least this fraction of that swatch's share.
	AccentReplaceRatio = 0.85
)

// swatch is an unformatted palette entry.
type swatch struct {
	colour     RGB
	percentage float64
}

// buildSwatches counts cluster membership for the final centroids and drops
// empty clusters. Percentages are relative to len(pixels).
func buildSwatches(pixels []RGB, centroids []RGB) []swatch {
	counts := make([]int, len(centroids))
	for _, p := range pixels {
		counts[nearestCentroid(p, centroids)]++
	}

	total := float64(len(pixels))
	swatches := make([]swatch, 0, len(centroids))
	for i, c := range centroids {
		if counts[i] == 0 {
			continue
		}
		swatches = append(swatches, swatch{
			colour:     c,
			percentage: float64(counts[i]) / total,
		})
	}

	sortSwatches(swatches)
	return swatches
}

// reconcileAccents injects accent candidates that no swatch already covers,
// keeping at most limit swatches. When the palette is full, the smallest
// swatch is only traded for an accent if it is barely represented or the
// accent is nearly as common.
func reconcileAccents(swatches []swatch, candidates []AccentCandidate, limit, totalPixels int, logger hclog.Logger) []swatch {
	if len(candidates) == 0 || totalPixels == 0 {
		return truncateSwatches(swatches, limit)
	}

	result := make([]swatch, len(swatches))
	copy(result, swatches)
	sortSwatches(result)

	ordered := make([]AccentCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	for _, candidate := range ordered {
		share := float64(candidate.Count) / float64(totalPixels)
		if share < AccentMinShare {
			continue
		}
		if isRepresented(result, candidate.Colour) {
			continue
		}

		accent := swatch{colour: candidate.Colour, percentage: share}

		if len(result) < limit {
			result = append(result, accent)
			sortSwatches(result)
			logger.Debug("accent added", "colour", FormatHex(accent.colour), "share", share)
			continue
		}
		if len(result) == 0 {
			continue
		}

		smallest := result[len(result)-1]
		if smallest.percentage <= AccentReplaceShare || share >= smallest.percentage*AccentReplaceRatio {
			result[len(result)-1] = accent
			sortSwatches(result)
			logger.Debug("accent replaced swatch",
				"colour", FormatHex(accent.colour), "share", share,
				"replaced", FormatHex(smallest.colour), "replaced_share", smallest.percentage)
		}
	}

	return truncateSwatches(result, limit)
}

// isRepresented reports whether any swatch lies within AccentDistanceThreshold of c.
func isRepresented(swatches []swatch, c RGB) bool {
	for _, s := range swatches {
		if s.colour.distance(c) <= AccentDistanceThreshold {
			return true
		}
	}
	return false
}

// finaliseSwatches formats swatches for output. Accent shares are counted
// independently of cluster membership, so the total can exceed 1; in that
// case every share is scaled down proportionally, which keeps the order.
func finaliseSwatches(swatches []swatch) []Swatch {
	total := 0.0
	for _, s := range swatches {
		total += s.percentage
	}
	scale := 1.0
	if total > 1 {
		scale = 1 / total
	}

	out := make([]Swatch, len(swatches))
	for i, s := range swatches {
		out[i] = NewSwatch(s.colour, s.percentage*scale)
	}
	return out
}

func truncateSwatches(swatches []swatch, limit int) []swatch {
	if limit < 0 {
		limit = 0
	}
	if len(swatches) > limit {
		return swatches[:limit]
	}
	return swatches
}

func sortSwatches(swatches []swatch) {
	sort.SliceStable(swatches, func(i, j int) bool {
		return swatches[i].percentage > swatches[j].percentage
	})
}
