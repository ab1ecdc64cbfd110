package ml

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Project2D projects rows onto their first two principal components. It
// returns nil when X has fewer than two rows or columns, or the
// decomposition fails.
func Project2D(X [][]float64) [][2]float64 {
	if len(X) < 2 || len(X[0]) < 2 {
		return nil
	}
	a := toDense(X)
	var pc stat.PC
	if !pc.PrincipalComponents(a, nil) {
		return nil
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	_, cols := a.Dims()
	means := make([]float64, cols)
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		means[j] = stat.Mean(col, nil)
	}
	centered := mat.NewDense(len(X), cols, nil)
	centered.Apply(func(i, j int, _ float64) float64 { return X[i][j] - means[j] }, centered)

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, cols, 0, 2))
	out := make([][2]float64, len(X))
	for i := range out {
		out[i] = [2]float64{proj.At(i, 0), proj.At(i, 1)}
	}
	return out
}
