package colour

import (
	"fmt"
	"math"
)

const (
	// TextDark is recommended on light swatches.
	TextDark = "#1B1B1B"
	// TextLight is recommended on dark swatches.
	TextLight = "#FFFFFF"

	// lightSwatchThreshold is the perceived luminance above which a swatch counts as light.
	lightSwatchThreshold = 0.6
)

var (
	// TextDarkRGB is TextDark as a colour.
	TextDarkRGB = RGB{R: 0x1B, G: 0x1B, B: 0x1B}
	// TextLightRGB is TextLight as a colour.
	TextLightRGB = RGB{R: 0xFF, G: 0xFF, B: 0xFF}
)

// FormatHex renders a colour as an uppercase "#RRGGBB" string.
func FormatHex(rgb RGB) string {
	return fmt.Sprintf("#%02X%02X%02X", rgb.R, rgb.G, rgb.B)
}

// PerceivedLuminance returns (0.299R + 0.587G + 0.114B) / 255.
func PerceivedLuminance(rgb RGB) float64 {
	return (0.299*float64(rgb.R) + 0.587*float64(rgb.G) + 0.114*float64(rgb.B)) / 255
}

// TextColour picks dark text for light swatches and white text otherwise.
// This is a fixed threshold, not a contrast-ratio computation.
func TextColour(rgb RGB) string {
	if PerceivedLuminance(rgb) > lightSwatchThreshold {
		return TextDark
	}
	return TextLight
}

// FormatPercentage renders a share in [0,1] as a whole percentage label.
// Non-zero shares that would round to 0% are shown as "<1%".
func FormatPercentage(value float64) string {
	percentage := int(math.Round(value * 100))
	if percentage == 0 && value > 0 {
		return "<1%"
	}
	return fmt.Sprintf("%d%%", percentage)
}
