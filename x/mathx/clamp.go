// Package mathx holds the two generic helpers the integer control math
// leans on: rail clamping for Q16 accumulators and drive codes, and
// magnitude for slew comparisons.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. The regulator and actuator call this on every
// tick, so the bounds are trusted (lo <= hi) rather than re-ordered.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Abs for signed integers. Callers pass step deltas well inside the type's
// range, so the minimum-value edge case is not handled.
func Abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
