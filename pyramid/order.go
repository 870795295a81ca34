package pyramid

import (
	"slices"

	"github.com/pdok/alerttiles/tile"
)

// spread masks, from fine to coarse
var masks = [...]uint64{
	0x5555555555555555,
	0x3333333333333333,
	0x0f0f0f0f0f0f0f0f,
	0x00ff00ff00ff00ff,
	0x0000ffff0000ffff,
}

// interleave spreads the bits of x and y so that x takes the even and y the odd bits.
func interleave(x, y uint32) uint64 {
	return spread(x) | spread(y)<<1
}

func spread(v uint32) uint64 {
	z := uint64(v)
	for i := len(masks) - 1; i >= 0; i-- {
		z = (z | z<<(1<<i)) & masks[i]
	}
	return z
}

// MortonOrder sorts addresses of one range along a Z-order curve, relative to
// the range's top left tile, so that fetches for neighbouring tiles are issued together.
// Addresses outside the range keep their relative order at the end.
func (r Range) MortonOrder(addrs []tile.Address) []tile.Address {
	sorted := slices.Clone(addrs)
	code := func(a tile.Address) (uint64, bool) {
		if !r.Contains(a) {
			return 0, false
		}
		return interleave(uint32(a.Col-r.ColMin), uint32(a.Row-r.RowMin)), true
	}
	slices.SortStableFunc(sorted, func(a, b tile.Address) int {
		za, okA := code(a)
		zb, okB := code(b)
		switch {
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		case za < zb:
			return -1
		case za > zb:
			return 1
		}
		return 0
	})
	return sorted
}
