package pyramid

import (
	"fmt"

	"github.com/pdok/alerttiles/mathhelp"
	"github.com/pdok/alerttiles/tile"
)

// Range is an inclusive rectangle of tiles at one zoom level.
type Range struct {
	ColMin, RowMin int
	ColMax, RowMax int
	Zoom           int
}

func (r Range) String() string {
	return fmt.Sprintf("z%d [%d..%d]x[%d..%d]", r.Zoom, r.ColMin, r.ColMax, r.RowMin, r.RowMax)
}

// Len is the number of tiles in the range. An empty range has length 0.
func (r Range) Len() int {
	if r.ColMax < r.ColMin || r.RowMax < r.RowMin {
		return 0
	}
	return (r.ColMax - r.ColMin + 1) * (r.RowMax - r.RowMin + 1)
}

func (r Range) Contains(a tile.Address) bool {
	return a.Zoom == r.Zoom &&
		r.ColMin <= a.Col && a.Col <= r.ColMax &&
		r.RowMin <= a.Row && a.Row <= r.RowMax
}

// Addresses lists every tile in the range, column by column.
func (r Range) Addresses() []tile.Address {
	addrs := make([]tile.Address, 0, r.Len())
	for col := r.ColMin; col <= r.ColMax; col++ {
		for row := r.RowMin; row <= r.RowMax; row++ {
			addrs = append(addrs, tile.Address{Col: col, Row: row, Zoom: r.Zoom})
		}
	}
	return addrs
}

// Overflow maps a range at a zoom level deeper than maxZoom onto maxZoom.
// The bounds are floor divided by 2^steps and widened by one tile on each side
// to absorb rounding. scale is the magnification (2^steps) to draw the coarser
// tiles with; a range at or above maxZoom is returned unchanged with scale 1.
func (r Range) Overflow(maxZoom int) (coarse Range, scale int) {
	if r.Zoom <= maxZoom {
		return r, 1
	}
	steps := r.Zoom - maxZoom
	scale = mathhelp.Pow2(steps)
	coarse = Range{
		ColMin: mathhelp.FloorDiv(r.ColMin, scale) - 1,
		RowMin: mathhelp.FloorDiv(r.RowMin, scale) - 1,
		ColMax: mathhelp.FloorDiv(r.ColMax, scale) + 1,
		RowMax: mathhelp.FloorDiv(r.RowMax, scale) + 1,
		Zoom:   maxZoom,
	}
	return coarse, scale
}
