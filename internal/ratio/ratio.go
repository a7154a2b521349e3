// Package ratio holds the zero-safe arithmetic used for derived metrics.
package ratio

// SafeDiv returns x/y, or 0 when y is 0 so that empty lanes and samples
// still produce a value.
func SafeDiv(x, y float64) float64 {
	if y == 0 {
		return 0
	}
	return x / y
}

// Percent is SafeDiv scaled to 0..100.
func Percent[T ~int64 | ~int | ~float64](part, whole T) float64 {
	return SafeDiv(float64(part), float64(whole)) * 100.0
}

// Mean is SafeDiv over integer accumulators.
func Mean[T ~int64 | ~int | ~float64](sum, n T) float64 {
	return SafeDiv(float64(sum), float64(n))
}
