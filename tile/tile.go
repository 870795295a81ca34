// Package tile provides the address of a raster tile in a square power-of-two pyramid.
package tile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-spatial/geom/slippy"
)

// Address identifies one tile in the pyramid. Col grows to the east, Row grows to the south.
type Address struct {
	Col  int
	Row  int
	Zoom int
}

// Valid reports whether the address lies inside the pyramid at its zoom level.
func (a Address) Valid() bool {
	if a.Zoom < 0 || a.Zoom > 30 {
		return false
	}
	n := 1 << a.Zoom
	return a.Col >= 0 && a.Col < n && a.Row >= 0 && a.Row < n
}

// Key is the cache key, "col_row_zoom".
func (a Address) Key() string {
	return strconv.Itoa(a.Col) + "_" + strconv.Itoa(a.Row) + "_" + strconv.Itoa(a.Zoom)
}

func (a Address) String() string {
	return fmt.Sprintf("%d/%d/%d", a.Zoom, a.Col, a.Row)
}

// Slippy converts to a go-spatial slippy tile. ok is false for addresses outside the pyramid.
func (a Address) Slippy() (t *slippy.Tile, ok bool) {
	if !a.Valid() {
		return nil, false
	}
	return slippy.NewTile(uint(a.Zoom), uint(a.Col), uint(a.Row)), true
}

// FromSlippy is the inverse of Slippy.
func FromSlippy(t *slippy.Tile) Address {
	return Address{Col: int(t.X), Row: int(t.Y), Zoom: int(t.Z)}
}

// ParseKey parses a key produced by Key.
func ParseKey(key string) (Address, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return Address{}, fmt.Errorf(`tile key "%s" should have 3 parts`, key)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Address{}, fmt.Errorf(`tile key "%s": %w`, key, err)
		}
		nums[i] = n
	}
	return Address{Col: nums[0], Row: nums[1], Zoom: nums[2]}, nil
}

// Format substitutes {z}, {x} and {y} in a URL or path template.
func (a Address) Format(template string) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(a.Zoom),
		"{x}", strconv.Itoa(a.Col),
		"{y}", strconv.Itoa(a.Row),
	).Replace(template)
}
