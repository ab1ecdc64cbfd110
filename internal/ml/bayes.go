package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GaussianNB is a naive Bayes classifier with per-class normal likelihoods.
// VarSmoothing times the largest feature variance is added to every variance.
type GaussianNB struct {
	VarSmoothing float64

	priors []float64
	means  [][]float64
	vars   [][]float64
}

func NewGaussianNB() *GaussianNB {
	return &GaussianNB{VarSmoothing: 1e-9}
}

func (g *GaussianNB) Name() string { return "gaussian_nb" }

func (g *GaussianNB) Hyperparameters() map[string]any {
	return map[string]any{"var_smoothing": g.VarSmoothing}
}

func (g *GaussianNB) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	nClasses := classCount(y)
	cols := len(X[0])

	epsilon := 0.0
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		epsilon = math.Max(epsilon, stat.PopVariance(col, nil))
	}
	epsilon *= g.VarSmoothing
	if epsilon == 0 {
		epsilon = g.VarSmoothing
	}

	byClass := make([][][]float64, nClasses)
	for i, row := range X {
		c := int(y[i])
		byClass[c] = append(byClass[c], row)
	}
	present := 0
	g.priors = make([]float64, nClasses)
	g.means = make([][]float64, nClasses)
	g.vars = make([][]float64, nClasses)
	for c, rows := range byClass {
		if len(rows) == 0 {
			continue
		}
		present++
		g.priors[c] = float64(len(rows)) / float64(len(X))
		g.means[c] = make([]float64, cols)
		g.vars[c] = make([]float64, cols)
		vals := make([]float64, len(rows))
		for j := 0; j < cols; j++ {
			for i, row := range rows {
				vals[i] = row[j]
			}
			g.means[c][j] = stat.Mean(vals, nil)
			g.vars[c][j] = stat.PopVariance(vals, nil) + epsilon
		}
	}
	if present < 2 {
		return fmt.Errorf("%w: naive bayes needs two classes, have %d", ErrDegenerate, present)
	}
	return nil
}

func (g *GaussianNB) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	joint := make([]float64, len(g.priors))
	for i, row := range X {
		for c := range g.priors {
			if g.priors[c] == 0 {
				joint[c] = math.Inf(-1)
				continue
			}
			ll := math.Log(g.priors[c])
			for j, v := range row {
				variance := g.vars[c][j]
				d := v - g.means[c][j]
				ll -= 0.5*math.Log(2*math.Pi*variance) + d*d/(2*variance)
			}
			joint[c] = ll
		}
		out[i] = float64(floats.MaxIdx(joint))
	}
	return out
}
