package refdist

import "image/color"

// HSV is a color in OpenCV scale: hue in [0, 180], saturation and value in [0, 255]
type HSV struct {
	H float64
	S float64
	V float64
}

// HSVRange is an inclusive box in HSV space
type HSVRange struct {
	Lower HSV
	Upper HSV
}

// Contains reports whether the color falls inside the range (bounds inclusive)
func (r HSVRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// ColorBand is a named set of one or two HSV ranges.
// Two ranges model hues wrapping around 0 (e.g. red)
type ColorBand struct {
	Name   string
	Ranges []HSVRange
	// Color used to draw objects of this band
	Display color.RGBA
}

// Contains reports whether the color falls inside any of band's ranges
func (band ColorBand) Contains(c HSV) bool {
	for _, r := range band.Ranges {
		if r.Contains(c) {
			return true
		}
	}
	return false
}

// ColorTable is an ordered immutable set of color bands
type ColorTable struct {
	bands []ColorBand
	index map[string]int
}

// NewColorTable creates table preserving the given order. Later duplicates of a name are ignored
func NewColorTable(bands ...ColorBand) ColorTable {
	table := ColorTable{
		bands: make([]ColorBand, 0, len(bands)),
		index: make(map[string]int, len(bands)),
	}
	for _, band := range bands {
		if _, ok := table.index[band.Name]; ok {
			continue
		}
		table.index[band.Name] = len(table.bands)
		table.bands = append(table.bands, band)
	}
	return table
}

// Bands returns copy of bands in table order
func (table ColorTable) Bands() []ColorBand {
	bands := make([]ColorBand, len(table.bands))
	copy(bands, table.bands)
	return bands
}

// Lookup finds band by name
func (table ColorTable) Lookup(name string) (ColorBand, bool) {
	idx, ok := table.index[name]
	if !ok {
		return ColorBand{}, false
	}
	return table.bands[idx], true
}

// DisplayColor returns drawing color for the band or white for unknown names
func (table ColorTable) DisplayColor(name string) color.RGBA {
	band, ok := table.Lookup(name)
	if !ok {
		return color.RGBA{R: 255, G: 255, B: 255, A: 0}
	}
	return band.Display
}

func (table ColorTable) Len() int {
	return len(table.bands)
}

func singleRange(lh, ls, lv, uh, us, uv float64) []HSVRange {
	return []HSVRange{{Lower: HSV{lh, ls, lv}, Upper: HSV{uh, us, uv}}}
}

// DefaultColorTable returns the six default bands: red, blue, green, yellow, orange, purple
func DefaultColorTable() ColorTable {
	return NewColorTable(
		ColorBand{
			Name: "red",
			Ranges: []HSVRange{
				{Lower: HSV{0, 50, 50}, Upper: HSV{10, 255, 255}},
				{Lower: HSV{170, 50, 50}, Upper: HSV{180, 255, 255}},
			},
			Display: color.RGBA{R: 255, G: 0, B: 0, A: 0},
		},
		ColorBand{Name: "blue", Ranges: singleRange(100, 50, 50, 130, 255, 255), Display: color.RGBA{R: 0, G: 0, B: 255, A: 0}},
		ColorBand{Name: "green", Ranges: singleRange(40, 50, 50, 80, 255, 255), Display: color.RGBA{R: 0, G: 255, B: 0, A: 0}},
		ColorBand{Name: "yellow", Ranges: singleRange(20, 50, 50, 30, 255, 255), Display: color.RGBA{R: 255, G: 255, B: 0, A: 0}},
		ColorBand{Name: "orange", Ranges: singleRange(5, 50, 50, 15, 255, 255), Display: color.RGBA{R: 255, G: 165, B: 0, A: 0}},
		ColorBand{Name: "purple", Ranges: singleRange(130, 50, 50, 160, 255, 255), Display: color.RGBA{R: 128, G: 0, B: 128, A: 0}},
	)
}
