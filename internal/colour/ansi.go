package colour

import (
	"fmt"
	"strings"
)

// ANSI escape codes for terminal colours.
const (
	ansiReset    = "\033[0m"
	ansiFgPrefix = "\033[38;2;"
	ansiBgPrefix = "\033[48;2;"
	ansiSuffix   = "m"
	defaultWidth = 8
)

// ColourPreview returns an ANSI-coloured block of width spaces.
func ColourPreview(c RGB, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	return ansiBackground(c) + strings.Repeat(" ", width) + ansiReset
}

// SwatchPreview renders text centred on the swatch colour using the swatch's
// recommended text colour.
func SwatchPreview(s Swatch, text string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	displayText := text
	if len(text) > width {
		displayText = text[:width]
	} else if len(text) < width {
		padding := (width - len(text)) / 2
		displayText = strings.Repeat(" ", padding) + text + strings.Repeat(" ", width-len(text)-padding)
	}

	fg := TextDarkRGB
	if s.TextColour == TextLight {
		fg = TextLightRGB
	}
	fgColour := fmt.Sprintf("%s%d;%d;%d%s", ansiFgPrefix, fg.R, fg.G, fg.B, ansiSuffix)

	return ansiBackground(s.RGB) + fgColour + displayText + ansiReset
}

// FormatSwatchWithPreview formats a swatch as a coloured block followed by
// its hex code and share.
func FormatSwatchWithPreview(s Swatch, width int) string {
	return fmt.Sprintf("%s %s %5s", SwatchPreview(s, FormatPercentage(s.Percentage), width), s.Hex, FormatPercentage(s.Percentage))
}

func ansiBackground(c RGB) string {
	return fmt.Sprintf("%s%d;%d;%d%s", ansiBgPrefix, c.R, c.G, c.B, ansiSuffix)
}
