package mathhelp

import "golang.org/x/exp/constraints"

// BetweenInc reports whether p <= f <= q. Unlike a bounds check that swaps
// its arguments, an inverted range (p > q) contains nothing.
func BetweenInc[T constraints.Ordered](f, p, q T) bool {
	return p <= f && f <= q
}

func Pow2(n int) int {
	return 1 << n
}

// FloorDiv divides rounding towards negative infinity, so that tile indices
// left of or above the origin land in the right tile.
func FloorDiv[T constraints.Signed](d, m T) T {
	q := d / m
	if (d%m != 0) && ((d < 0) != (m < 0)) {
		q--
	}
	return q
}

func EuclidianMod[T constraints.Signed](d, m T) T {
	r := d % m
	if (r < 0 && m > 0) || (r > 0 && m < 0) {
		return r + m
	}
	return r
}

func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
