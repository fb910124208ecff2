// palettepeek - extract a compact colour palette from an image
//
// palettepeek clusters an image's pixels into a handful of representative
// swatches and keeps small, vivid accents from being lost to dominant tones.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import "github.com/jmylchreest/palettepeek/internal/cli"

func main() {
	cli.Execute()
}
