package colour

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// AlphaThreshold is the minimum alpha (0-255) for a pixel to be sampled.
const AlphaThreshold = 128

// SamplePixels collects every sufficiently opaque pixel of img in row-major
// order, forwarding saturated pixels to tracker when it is non-nil.
// A fully transparent image yields an empty (non-nil) slice.
//
// Callers are expected to downscale large images before sampling.
func SamplePixels(img image.Image, tracker *AccentTracker) []RGB {
	src := toNRGBA(img)
	bounds := src.Bounds()
	pixels := make([]RGB, 0, bounds.Dx()*bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		offset := src.PixOffset(bounds.Min.X, y)
		for x := 0; x < bounds.Dx(); x++ {
			p := src.Pix[offset+x*4 : offset+x*4+4 : offset+x*4+4]
			if p[3] < AlphaThreshold {
				continue
			}

			rgb := RGB{R: p[0], G: p[1], B: p[2]}
			pixels = append(pixels, rgb)

			if tracker == nil {
				continue
			}
			if s := Saturation(rgb); s >= AccentSaturationThreshold {
				tracker.Observe(rgb, s)
			}
		}
	}

	return pixels
}

// Saturation returns the HSL saturation (0-1) of a colour.
func Saturation(rgb RGB) float64 {
	c := colorful.Color{
		R: float64(rgb.R) / 255.0,
		G: float64(rgb.G) / 255.0,
		B: float64(rgb.B) / 255.0,
	}
	_, s, _ := c.Hsl()
	return s
}

// toNRGBA returns img with straight alpha, converting only when needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
	return dst
}

// countDistinct returns the number of distinct colours in pixels.
func countDistinct(pixels []RGB) int {
	seen := make(map[RGB]struct{}, len(pixels))
	for _, p := range pixels {
		seen[p] = struct{}{}
	}
	return len(seen)
}
