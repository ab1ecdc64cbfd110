// Package pipeline runs the five fleet models end to end: fetch records,
// build features, split, train, evaluate, chart and report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yatrik/fleetml/internal/chart"
	"github.com/yatrik/fleetml/internal/config"
	"github.com/yatrik/fleetml/internal/ml"
	"github.com/yatrik/fleetml/internal/models"
	"github.com/yatrik/fleetml/internal/source"
)

var (
	// ErrDataUnavailable means the ERP database could not be queried.
	ErrDataUnavailable = source.ErrDataUnavailable
	// ErrInsufficientData means the run produced no result: no records, or
	// too few rows or classes to split and train. Nothing is persisted.
	ErrInsufficientData = ml.ErrInsufficientData
	// ErrTrainingFailure means the estimator could not be fitted.
	ErrTrainingFailure = errors.New("training failure")
	// ErrStorageFailure means the report could not be persisted.
	ErrStorageFailure = errors.New("storage failure")
	// ErrUnknownModel is returned for a model key that is not registered.
	ErrUnknownModel = errors.New("unknown model")
)

// Outcome is what a pipeline hands back to the Runner for persisting.
type Outcome struct {
	Metrics        models.ReportMetrics
	RecordsFetched int
	Fallback       bool
}

// Func trains one model against src using cfg.
type Func func(ctx context.Context, src source.Source, cfg config.Config) (*Outcome, error)

// Pipeline is one registered model: its key, display name and run function.
type Pipeline struct {
	Key  string
	Name string
	Run  Func
}

// Registry lists the pipelines in run-all order.
var Registry = []Pipeline{
	{Key: "knn_demand_prediction", Name: "KNN Passenger Demand Prediction", Run: Demand},
	{Key: "nb_route_performance", Name: "Naive Bayes Route Performance", Run: Performance},
	{Key: "dt_delay_prediction", Name: "Decision Tree Trip Delay", Run: Delay},
	{Key: "svm_route_optimization", Name: "SVM Route Optimization", Run: Optimization},
	{Key: "nn_crew_load_balancing", Name: "Neural Network Crew Load", Run: CrewLoad},
}

// Lookup returns the registered pipeline for key.
func Lookup(key string) (Pipeline, bool) {
	for _, p := range Registry {
		if p.Key == key {
			return p, true
		}
	}
	return Pipeline{}, false
}

// Keys returns the registered model keys in run order.
func Keys() []string {
	keys := make([]string, len(Registry))
	for i, p := range Registry {
		keys[i] = p.Key
	}
	return keys
}

// fitted holds the predictions of one trained estimator on both partitions.
type fitted struct {
	trainX, testX       [][]float64
	trainY, testY       []float64
	trainPred, testPred []float64
}

func fit(est ml.Estimator, X [][]float64, y []float64, train, test []int) (*fitted, error) {
	f := &fitted{}
	f.trainX, f.trainY = ml.Take(X, y, train)
	f.testX, f.testY = ml.Take(X, y, test)
	if err := est.Fit(f.trainX, f.trainY); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailure, err)
	}
	f.trainPred = est.Predict(f.trainX)
	f.testPred = est.Predict(f.testX)
	return f, nil
}

func estimatorName(est ml.Estimator) string {
	if n, ok := est.(ml.Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", est)
}

// render turns a chart into a data URI. A chart that fails to render leaves
// the report without a visualization rather than failing the run.
func render(model string, png []byte, err error) string {
	if err != nil {
		log.Printf("pipeline: %s: render chart: %v", model, err)
		return ""
	}
	return chart.DataURI(png)
}

func copyWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
