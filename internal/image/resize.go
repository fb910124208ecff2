package image

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// MaxEdge is the longest edge, in pixels, an image is analysed at.
const MaxEdge = 600

// ScaleDimensions fits width x height inside MaxEdge while keeping the aspect
// ratio. Dimensions are rounded and never drop below 1. Images that already
// fit are returned unchanged.
func ScaleDimensions(width, height int) (int, int) {
	if width <= MaxEdge && height <= MaxEdge {
		return width, height
	}

	aspect := float64(width) / float64(height)
	if aspect >= 1 {
		return MaxEdge, max(1, int(math.Round(MaxEdge/aspect)))
	}
	return max(1, int(math.Round(MaxEdge*aspect))), MaxEdge
}

// Downscale resizes img so its longer edge is at most MaxEdge.
// Images within bounds are returned as-is.
func Downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := ScaleDimensions(bounds.Dx(), bounds.Dy())
	if width == bounds.Dx() && height == bounds.Dy() {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}
