package ml

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// KNNRegressor predicts the unweighted mean target of the K nearest training
// rows by Euclidean distance. Ties keep training order.
type KNNRegressor struct {
	K int

	X [][]float64
	y []float64
}

func NewKNNRegressor() *KNNRegressor {
	return &KNNRegressor{K: 5}
}

func (k *KNNRegressor) Name() string { return "knn_regressor" }

func (k *KNNRegressor) Hyperparameters() map[string]any {
	return map[string]any{"n_neighbors": k.K, "weights": "uniform", "metric": "euclidean"}
}

func (k *KNNRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	k.X = X
	k.y = y
	return nil
}

func (k *KNNRegressor) Predict(X [][]float64) []float64 {
	n := min(k.K, len(k.X))
	out := make([]float64, len(X))
	if n == 0 {
		return out
	}
	dist := make([]float64, len(k.X))
	order := make([]int, len(k.X))
	for i, row := range X {
		for j, train := range k.X {
			dist[j] = floats.Distance(row, train, 2)
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })
		sum := 0.0
		for _, j := range order[:n] {
			sum += k.y[j]
		}
		out[i] = sum / float64(n)
	}
	return out
}
