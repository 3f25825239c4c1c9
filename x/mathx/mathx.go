// Package mathx holds the couple of integer helpers the controller's
// fixed-point arithmetic leans on.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi], swapping the bounds if given reversed.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundDiv divides a by b rounding to nearest, halves away from zero.
// Division by zero yields zero; callers treat it as a dead channel.
func RoundDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
