// Package evaluate computes the metric sets stored in model reports.
package evaluate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/yatrik/fleetml/internal/models"
)

// Metric keys as they appear in stored reports.
const (
	Accuracy  = "Accuracy"
	Precision = "Precision"
	Recall    = "Recall"
	F1        = "F1_Score"
	MSE       = "MSE"
	RMSE      = "RMSE"
	MAE       = "MAE"
	R2        = "R2_Score"
)

// Binary scores a two-class prediction with class 1 as the positive class.
// Precision, recall and F1 are 0 when their denominator is 0.
func Binary(yTrue, yPred []float64) models.MetricSet {
	var tp, fp, fn float64
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1:
			fp++
		case yTrue[i] == 1:
			fn++
		}
	}
	p, r, f := prf(tp, fp, fn)
	return models.MetricSet{
		Accuracy:  accuracy(yTrue, yPred),
		Precision: p,
		Recall:    r,
		F1:        f,
	}
}

// Weighted scores a multi-class prediction, averaging per-class precision,
// recall and F1 weighted by each class's support in yTrue.
func Weighted(yTrue, yPred []float64, nClasses int) models.MetricSet {
	cm := Confusion(yTrue, yPred, nClasses)
	var precision, recall, f1, total float64
	for c := 0; c < nClasses; c++ {
		var tp, fp, fn float64
		tp = float64(cm[c][c])
		for k := 0; k < nClasses; k++ {
			if k == c {
				continue
			}
			fp += float64(cm[k][c])
			fn += float64(cm[c][k])
		}
		support := tp + fn
		p, r, f := prf(tp, fp, fn)
		precision += p * support
		recall += r * support
		f1 += f * support
		total += support
	}
	if total > 0 {
		precision /= total
		recall /= total
		f1 /= total
	}
	return models.MetricSet{
		Accuracy:  accuracy(yTrue, yPred),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
}

// Confusion returns counts indexed [true class][predicted class].
func Confusion(yTrue, yPred []float64, nClasses int) [][]int {
	cm := make([][]int, nClasses)
	for i := range cm {
		cm[i] = make([]int, nClasses)
	}
	for i := range yTrue {
		t, p := int(yTrue[i]), int(yPred[i])
		if t >= 0 && t < nClasses && p >= 0 && p < nClasses {
			cm[t][p]++
		}
	}
	return cm
}

// Regression returns MSE, RMSE, MAE and R². With a constant yTrue, R² is 1
// for a perfect prediction and 0 otherwise.
func Regression(yTrue, yPred []float64) models.MetricSet {
	n := float64(len(yTrue))
	if n == 0 {
		return models.MetricSet{MSE: 0, RMSE: 0, MAE: 0, R2: 0}
	}
	var sse, sae float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sse += d * d
		sae += math.Abs(d)
	}
	mean := stat.Mean(yTrue, nil)
	var sst float64
	for _, v := range yTrue {
		sst += (v - mean) * (v - mean)
	}
	var r2 float64
	switch {
	case sst > 0:
		r2 = 1 - sse/sst
	case sse == 0:
		r2 = 1
	}
	mse := sse / n
	return models.MetricSet{
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAE:  sae / n,
		R2:   r2,
	}
}

func accuracy(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

func prf(tp, fp, fn float64) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
