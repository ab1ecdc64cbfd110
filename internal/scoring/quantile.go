package scoring

import (
	"math"
	"sort"
)

// Quantile returns the q-th quantile (0 <= q <= 1) of values using linear
// interpolation between the closest ranks: with the values sorted ascending
// and h = (n-1)*q, the result is x[floor(h)] + (h-floor(h))*(x[floor(h)+1]-x[floor(h)]).
// This is Hyndman & Fan definition 7, the default of numpy and pandas. The
// interpolation step is evaluated the way numpy does it, so thresholds match
// bit for bit. Quantile of an empty slice is NaN.
func Quantile(values []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	h := float64(n-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i < 0 {
		return sorted[0]
	}
	if i >= n-1 {
		return sorted[n-1]
	}
	return lerp(sorted[i], sorted[i+1], h-lo)
}

// Median is Quantile(values, 0.5).
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}
