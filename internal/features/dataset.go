// Package features turns joined operational records into numeric training
// tables for each model.
package features

// Dataset is a feature matrix with its target column. For classification
// tasks Y holds indexes into Classes; for regression Classes is nil.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []float64
	Classes  []string
}

func (d Dataset) Len() int { return len(d.X) }

// ClassCounts counts rows per class name. It returns nil for regression sets.
func (d Dataset) ClassCounts() map[string]int {
	if d.Classes == nil {
		return nil
	}
	counts := make(map[string]int, len(d.Classes))
	for _, c := range d.Classes {
		counts[c] = 0
	}
	for _, y := range d.Y {
		i := int(y)
		if i >= 0 && i < len(d.Classes) {
			counts[d.Classes[i]]++
		}
	}
	return counts
}

// safeDivisor substitutes 1 for zero or negative divisors.
func safeDivisor(d float64) float64 {
	if d <= 0 {
		return 1
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Percentage returns part/whole*100 clamped to [0, 100], with a whole of zero
// or less treated as 1.
func Percentage(part, whole float64) float64 {
	return clamp(part/safeDivisor(whole)*100, 0, 100)
}

// PerKm divides an amount by a route length, treating lengths of zero or less as 1.
func PerKm(amount, km float64) float64 {
	return amount / safeDivisor(km)
}

// mean accumulates an average that skips missing values.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() (float64, bool) {
	if m.n == 0 {
		return 0, false
	}
	return m.sum / float64(m.n), true
}
