package ml

import (
	"errors"
	"math"
	"testing"
)

func blobs(n int) ([][]float64, []float64) {
	X := make([][]float64, 0, 2*n)
	y := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		jitter := float64(i%5) * 0.1
		X = append(X, []float64{1 + jitter, 1 - jitter})
		y = append(y, 0)
		X = append(X, []float64{5 - jitter, 5 + jitter})
		y = append(y, 1)
	}
	return X, y
}

func accuracy(pred, y []float64) float64 {
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 7}, {2, 7}, {3, 7}}
	var s StandardScaler
	out := s.FitTransform(X)

	if s.Mean[0] != 2 || s.Mean[1] != 7 {
		t.Errorf("Mean = %v, want [2 7]", s.Mean)
	}
	if s.Scale[1] != 1 {
		t.Errorf("constant column scale = %v, want 1", s.Scale[1])
	}
	want := math.Sqrt(1.5)
	if math.Abs(out[2][0]-want) > 1e-12 || math.Abs(out[0][0]+want) > 1e-12 {
		t.Errorf("column 0 = %v, %v, want -/+%v", out[0][0], out[2][0], want)
	}
	for i := range out {
		if out[i][1] != 0 {
			t.Errorf("constant column row %d = %v, want 0", i, out[i][1])
		}
	}
}

func TestSplit(t *testing.T) {
	train, test, err := Split(10, 0.2, 42)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("sizes = %d/%d, want 8/2", len(train), len(test))
	}
	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		if seen[i] {
			t.Fatalf("index %d in both partitions", i)
		}
		seen[i] = true
	}

	again, _, _ := Split(10, 0.2, 42)
	for i := range train {
		if train[i] != again[i] {
			t.Fatal("same seed produced a different split")
		}
	}

	if _, _, err := Split(1, 0.2, 42); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Split(1) err = %v, want ErrInsufficientData", err)
	}
}

func TestStratifiedSplit(t *testing.T) {
	y := []float64{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 2, 2, 2}
	train, test, err := StratifiedSplit(y, 0.2, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit: %v", err)
	}
	if len(train)+len(test) != len(y) {
		t.Fatalf("partition sizes %d+%d != %d", len(train), len(test), len(y))
	}
	for _, part := range [][]int{train, test} {
		classes := map[float64]bool{}
		for _, i := range part {
			classes[y[i]] = true
		}
		if len(classes) != 3 {
			t.Errorf("partition holds classes %v, want all three", classes)
		}
	}
}

func TestStratifiedSplit_Insufficient(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
	}{
		{"singleton class", []float64{0, 0, 0, 1}},
		{"one class", []float64{1, 1, 1, 1}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := StratifiedSplit(tt.y, 0.2, 42); !errors.Is(err, ErrInsufficientData) {
				t.Errorf("err = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func TestDecisionTree(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 60; i++ {
		x := float64(i)
		X = append(X, []float64{x, float64(i % 3)})
		if x >= 30 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	tree := NewDecisionTree()
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if acc := accuracy(tree.Predict(X), y); acc != 1 {
		t.Errorf("training accuracy = %v, want 1", acc)
	}
	imp := tree.FeatureImportances()
	if imp[0] != 1 || imp[1] != 0 {
		t.Errorf("importances = %v, want [1 0]", imp)
	}
	if tree.Depth() > tree.MaxDepth {
		t.Errorf("depth %d exceeds max %d", tree.Depth(), tree.MaxDepth)
	}
}

func TestDecisionTree_RespectsMinSamples(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{0, 1, 0, 1, 0, 1}

	tree := NewDecisionTree()
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if tree.Depth() != 0 {
		t.Errorf("depth = %d, want a single leaf below min_samples_split", tree.Depth())
	}
}

func TestKNNRegressor(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {10}}
	y := []float64{1, 3, 5, 100}

	knn := &KNNRegressor{K: 2}
	if err := knn.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got := knn.Predict([][]float64{{0.1}, {9}})
	if got[0] != 2 {
		t.Errorf("Predict(0.1) = %v, want 2", got[0])
	}
	if got[1] != 52.5 {
		t.Errorf("Predict(9) = %v, want 52.5", got[1])
	}

	big := NewKNNRegressor()
	big.Fit(X, y)
	if got := big.Predict([][]float64{{0}}); got[0] != 27.25 {
		t.Errorf("k larger than training set = %v, want mean 27.25", got[0])
	}
}

func TestGaussianNB(t *testing.T) {
	X, y := blobs(10)
	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if acc := accuracy(nb.Predict(X), y); acc != 1 {
		t.Errorf("accuracy = %v, want 1", acc)
	}
	if err := NewGaussianNB().Fit([][]float64{{1}, {2}}, []float64{0, 0}); !errors.Is(err, ErrDegenerate) {
		t.Errorf("single class err = %v, want ErrDegenerate", err)
	}
}

func TestSVC(t *testing.T) {
	X, y := blobs(10)
	svc := NewSVC()
	if err := svc.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if acc := accuracy(svc.Predict(X), y); acc != 1 {
		t.Errorf("accuracy = %v, want 1", acc)
	}
	if svc.SupportVectors() == 0 {
		t.Error("no support vectors")
	}
	scores := svc.DecisionFunction([][]float64{{0, 0}, {6, 6}})
	if scores[0] >= 0 || scores[1] <= 0 {
		t.Errorf("decision scores = %v, want negative then positive", scores)
	}
}

func TestSVC_SingleClass(t *testing.T) {
	err := NewSVC().Fit([][]float64{{1, 2}, {2, 3}}, []float64{1, 1})
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("err = %v, want ErrDegenerate", err)
	}
}

func TestRidge(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}, {4}}
	y := []float64{1, 3, 5, 7, 9}

	exact := &Ridge{Alpha: 0}
	if err := exact.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(exact.Coef[0]-2) > 1e-9 || math.Abs(exact.Intercept-1) > 1e-9 {
		t.Errorf("alpha 0: coef %v intercept %v, want 2 and 1", exact.Coef, exact.Intercept)
	}

	shrunk := NewRidge()
	if err := shrunk.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	// sum((x-2)^2) = 10, so the slope is 20 / (10 + 1).
	if math.Abs(shrunk.Coef[0]-20.0/11) > 1e-9 {
		t.Errorf("alpha 1: coef %v, want %v", shrunk.Coef[0], 20.0/11)
	}
	pred := shrunk.Predict([][]float64{{2}})
	if math.Abs(pred[0]-5) > 1e-9 {
		t.Errorf("prediction at mean = %v, want 5", pred[0])
	}
}

func TestMLPRegressor(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 80; i++ {
		a := float64(i%10) / 10
		b := float64(i%7) / 7
		X = append(X, []float64{a, b})
		y = append(y, 0.2+0.5*a+0.2*b)
	}

	nn := NewMLPRegressor(42)
	nn.Epochs = 30
	if err := nn.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if n := len(nn.History.Loss); n == 0 || n > 30 || n != len(nn.History.ValLoss) {
		t.Errorf("history lengths = %d/%d", len(nn.History.Loss), len(nn.History.ValLoss))
	}
	if nn.History.BestEpoch < 1 {
		t.Errorf("BestEpoch = %d, want >= 1", nn.History.BestEpoch)
	}
	for i, p := range nn.Predict(X) {
		if p <= 0 || p >= 1 || math.IsNaN(p) {
			t.Fatalf("prediction %d = %v, want within (0, 1)", i, p)
		}
	}

	again := NewMLPRegressor(42)
	again.Epochs = 30
	again.Fit(X, y)
	if a, b := nn.Predict(X[:1])[0], again.Predict(X[:1])[0]; a != b {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

func TestRegressorStrategy(t *testing.T) {
	nn := NewMLPRegressor(1)
	ridge := NewRidge()

	tests := []struct {
		name         string
		strategy     RegressorStrategy
		rows         int
		want         Estimator
		wantFallback bool
	}{
		{"enough rows", RegressorStrategy{Preferred: nn, Fallback: ridge}, 100, nn, false},
		{"too few rows", RegressorStrategy{Preferred: nn, Fallback: ridge}, 5, ridge, true},
		{"neural disabled", RegressorStrategy{Fallback: ridge}, 100, ridge, true},
		{"scaled wrapper forwards capability", RegressorStrategy{Preferred: NewScaled(nn), Fallback: ridge}, 5, ridge, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fallback := tt.strategy.Select(tt.rows)
			if got != tt.want || fallback != tt.wantFallback {
				t.Errorf("Select(%d) = %T, %v; want %T, %v", tt.rows, got, fallback, tt.want, tt.wantFallback)
			}
		})
	}
}

func TestProject2D(t *testing.T) {
	X := [][]float64{{1, 2, 3}, {2, 4, 6.5}, {3, 6, 8.9}, {4, 8.2, 12}}
	pts := Project2D(X)
	if len(pts) != len(X) {
		t.Fatalf("points = %d, want %d", len(pts), len(X))
	}
	var sum float64
	for _, p := range pts {
		sum += p[0]
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("first component not centred: sum %v", sum)
	}
	if Project2D([][]float64{{1, 2}}) != nil {
		t.Error("single row should not project")
	}
}
