// Package colour provides colour extraction and palette generation functionality.
package colour

import (
	"encoding/json"
	"fmt"
	"math"
)

// RGB represents a color in RGB format.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String returns the RGB color as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the RGB color as an uppercase hex string (e.g., "#1A2B3C").
func (rgb RGB) Hex() string {
	return FormatHex(rgb)
}

// distance returns the Euclidean distance between two colours in RGB space.
func (rgb RGB) distance(other RGB) float64 {
	return math.Sqrt(rgb.distanceSquared(other))
}

// distanceSquared returns the squared Euclidean distance between two colours.
func (rgb RGB) distanceSquared(other RGB) float64 {
	dr := float64(rgb.R) - float64(other.R)
	dg := float64(rgb.G) - float64(other.G)
	db := float64(rgb.B) - float64(other.B)
	return dr*dr + dg*dg + db*db
}

// Swatch is a final palette entry: a colour, the share of sampled pixels it
// represents and a readable text colour to draw on top of it.
type Swatch struct {
	Hex        string  `json:"hex"`
	TextColour string  `json:"textColor"`
	Percentage float64 `json:"percentage"`
	RGB        RGB     `json:"rgb"`
}

// NewSwatch builds a formatted swatch for the given colour and share.
func NewSwatch(rgb RGB, percentage float64) Swatch {
	return Swatch{
		Hex:        FormatHex(rgb),
		TextColour: TextColour(rgb),
		Percentage: percentage,
		RGB:        rgb,
	}
}

// Palette represents an ordered collection of swatches extracted from an image.
// Swatches are sorted by descending percentage.
type Palette struct {
	Swatches []Swatch
}

// NewPalette creates a new Palette with the given swatches.
func NewPalette(swatches []Swatch) *Palette {
	if swatches == nil {
		swatches = []Swatch{}
	}
	return &Palette{
		Swatches: swatches,
	}
}

// Len returns the number of swatches in the palette.
func (p *Palette) Len() int {
	return len(p.Swatches)
}

// IsEmpty reports whether the palette holds no swatches, which is the
// result for images without sufficiently opaque pixels.
func (p *Palette) IsEmpty() bool {
	return len(p.Swatches) == 0
}

// ToHex returns the hex codes of every swatch (e.g., ["#1A2B3C", "#4D5E6F"]).
func (p *Palette) ToHex() []string {
	hexColors := make([]string, len(p.Swatches))
	for i, s := range p.Swatches {
		hexColors[i] = s.Hex
	}
	return hexColors
}

// ToRGBSlice returns the RGB values of every swatch.
func (p *Palette) ToRGBSlice() []RGB {
	rgbColors := make([]RGB, len(p.Swatches))
	for i, s := range p.Swatches {
		rgbColors[i] = s.RGB
	}
	return rgbColors
}

// PaletteJSON represents the palette in JSON format.
type PaletteJSON struct {
	Count    int      `json:"count"`
	Swatches []Swatch `json:"colors"`
}

// ToJSON converts the palette to JSON format.
func (p *Palette) ToJSON() ([]byte, error) {
	return json.MarshalIndent(PaletteJSON{
		Count:    len(p.Swatches),
		Swatches: p.Swatches,
	}, "", "  ")
}

// String returns a human-readable string representation of the palette.
func (p *Palette) String() string {
	if len(p.Swatches) == 0 {
		return "Empty palette"
	}

	result := fmt.Sprintf("Palette with %d colors:\n", len(p.Swatches))
	for i, s := range p.Swatches {
		result += fmt.Sprintf("  %2d: %s %5s (%s)\n", i+1, s.Hex, FormatPercentage(s.Percentage), s.RGB.String())
	}
	return result
}

// All returns an iterator over all swatches in the palette.
func (p *Palette) All() func(func(int, Swatch) bool) {
	return func(yield func(int, Swatch) bool) {
		for i, s := range p.Swatches {
			if !yield(i, s) {
				return
			}
		}
	}
}
