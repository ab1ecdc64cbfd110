package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ridge is L2-regularised least squares with an unpenalised intercept.
type Ridge struct {
	Alpha float64

	Coef      []float64
	Intercept float64
}

func NewRidge() *Ridge {
	return &Ridge{Alpha: 1}
}

func (r *Ridge) Name() string { return "ridge" }

func (r *Ridge) Architecture() map[string]any {
	return map[string]any{"type": "Ridge", "alpha": r.Alpha}
}

func (r *Ridge) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	rows, cols := len(X), len(X[0])
	xMean := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		xMean[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	xc := mat.NewDense(rows, cols, nil)
	yc := mat.NewVecDense(rows, nil)
	for i, row := range X {
		for j, v := range row {
			xc.Set(i, j, v-xMean[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var a mat.Dense
	a.Mul(xc.T(), xc)
	for j := 0; j < cols; j++ {
		a.Set(j, j, a.At(j, j)+r.Alpha)
	}
	var b mat.VecDense
	b.MulVec(xc.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&a, &b); err != nil {
		return fmt.Errorf("%w: ridge solve: %w", ErrDegenerate, err)
	}
	r.Coef = make([]float64, cols)
	r.Intercept = yMean
	for j := range r.Coef {
		r.Coef[j] = w.AtVec(j)
		r.Intercept -= xMean[j] * r.Coef[j]
	}
	return nil
}

func (r *Ridge) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		v := r.Intercept
		for j, x := range row {
			v += r.Coef[j] * x
		}
		out[i] = v
	}
	return out
}
