package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Split shuffles row indexes with the given seed and holds out
// ceil(n*testFraction) of them for testing. Both partitions must be non-empty.
func Split(n int, testFraction float64, seed int64) (train, test []int, err error) {
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("%w: %d rows cannot be split %.2f", ErrInsufficientData, n, testFraction)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// StratifiedSplit holds out roughly testFraction of each class. Every class
// needs at least two rows so that both partitions contain it.
func StratifiedSplit(y []float64, testFraction float64, seed int64) (train, test []int, err error) {
	byClass := make(map[float64][]int)
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	if len(byClass) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least two classes, have %d", ErrInsufficientData, len(byClass))
	}
	classes := make([]float64, 0, len(byClass))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("%w: class %v has %d member(s), need 2", ErrInsufficientData, c, len(idx))
		}
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(float64(len(idx)) * testFraction))
		nTest = max(1, min(nTest, len(idx)-1))
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// Take selects the given rows of X and y.
func Take(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
