// Package ml provides the estimators trained by the pipelines. Each one
// implements a plain Fit/Predict contract over row-major float64 tables;
// classifiers predict class indexes.
package ml

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientData is returned when there are too few rows (or too few
	// rows per class) to split and train.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerate is returned when the training data cannot produce a model,
	// for example a classifier given a single class.
	ErrDegenerate = errors.New("degenerate training data")
)

// Estimator is a supervised model over dense float rows.
type Estimator interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// Named is implemented by estimators that report a display name.
type Named interface {
	Name() string
}

func toDense(X [][]float64) *mat.Dense {
	if len(X) == 0 {
		return nil
	}
	m := mat.NewDense(len(X), len(X[0]), nil)
	for i, row := range X {
		m.SetRow(i, row)
	}
	return m
}

func checkShape(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return ErrInsufficientData
	}
	return nil
}

func classCount(y []float64) int {
	n := 0
	for _, v := range y {
		if int(v)+1 > n {
			n = int(v) + 1
		}
	}
	return n
}
