package viewer

import (
	"hash/fnv"
	"image/color"
	"math"
	"strings"
)

// Color themes understood by ColorFor
const (
	ThemeChainID        = "chain-id"
	ThemeElementSymbol  = "element-symbol"
	ThemeRainbow        = "rainbow"
	ThemeHydrophobicity = "hydrophobicity"
)

var chainPalette = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff},
}

// CPK colors
var elementColors = map[string]color.RGBA{
	"C":  {R: 0x90, G: 0x90, B: 0x90, A: 0xff},
	"N":  {R: 0x30, G: 0x50, B: 0xf8, A: 0xff},
	"O":  {R: 0xff, G: 0x0d, B: 0x0d, A: 0xff},
	"S":  {R: 0xff, G: 0xff, B: 0x30, A: 0xff},
	"P":  {R: 0xff, G: 0x80, B: 0x00, A: 0xff},
	"H":  {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"FE": {R: 0xe0, G: 0x66, B: 0x33, A: 0xff},
	"MG": {R: 0x8a, G: 0xff, B: 0x00, A: 0xff},
	"ZN": {R: 0x7d, G: 0x80, B: 0xb0, A: 0xff},
}

// Kyte-Doolittle hydropathy
var hydropathy = map[string]float64{
	"ILE": 4.5, "VAL": 4.2, "LEU": 3.8, "PHE": 2.8, "CYS": 2.5,
	"MET": 1.9, "ALA": 1.8, "GLY": -0.4, "THR": -0.7, "SER": -0.8,
	"TRP": -0.9, "TYR": -1.3, "PRO": -1.6, "HIS": -3.2, "GLU": -3.5,
	"GLN": -3.5, "ASP": -3.5, "ASN": -3.5, "LYS": -3.9, "ARG": -4.5,
}

var neutral = color.RGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xff}

// ColorFor returns the color of an atom under a theme. position is the
// relative position of the residue within its chain, between 0 and 1.
func ColorFor(theme string, atom Atom, position float64) color.RGBA {
	switch theme {
	case ThemeElementSymbol:
		if c, ok := elementColors[strings.ToUpper(atom.Element)]; ok {
			return c
		}
		return neutral
	case ThemeRainbow:
		return rainbow(position)
	case ThemeHydrophobicity:
		h, ok := hydropathy[strings.ToUpper(atom.ResName)]
		if !ok {
			return neutral
		}
		// -4.5 (hydrophilic, blue) .. 4.5 (hydrophobic, orange)
		t := (h + 4.5) / 9
		return color.RGBA{R: uint8(60 + 195*t), G: uint8(120 + 40*t), B: uint8(230 - 200*t), A: 0xff}
	default:
		return chainPalette[chainIndex(atom.Chain)%len(chainPalette)]
	}
}

func chainIndex(chain string) int {
	if len(chain) == 1 {
		c := chain[0]
		switch {
		case c >= 'A' && c <= 'Z':
			return int(c - 'A')
		case c >= 'a' && c <= 'z':
			return int(c - 'a')
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(chain))
	return int(h.Sum32() % uint32(len(chainPalette)))
}

// rainbow maps 0..1 to blue..red through the hue wheel
func rainbow(t float64) color.RGBA {
	t = clamp(t, 0, 1)
	hue := (1 - t) * 240
	x := 1 - math.Abs(math.Mod(hue/60, 2)-1)
	var r, g, b float64
	switch {
	case hue < 60:
		r, g = 1, x
	case hue < 120:
		r, g = x, 1
	case hue < 180:
		g, b = 1, x
	default:
		g, b = x, 1
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}
