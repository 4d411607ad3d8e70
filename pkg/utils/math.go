package utils

import "math"

// RoundToNearest rounds v to the nearest multiple of step.
// Halfway values round away from zero, matching strike-grid conventions.
func RoundToNearest(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
