package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/yatrik/fleetml/internal/chart"
	"github.com/yatrik/fleetml/internal/config"
	"github.com/yatrik/fleetml/internal/evaluate"
	"github.com/yatrik/fleetml/internal/features"
	"github.com/yatrik/fleetml/internal/ml"
	"github.com/yatrik/fleetml/internal/models"
	"github.com/yatrik/fleetml/internal/scoring"
	"github.com/yatrik/fleetml/internal/source"
)

// minOptimizationRoutes is the fewest routes the SVM is trained on.
const minOptimizationRoutes = 11

func fetchTrips(ctx context.Context, src source.Source) ([]models.TripRecord, error) {
	trips, err := src.FetchTrips(ctx)
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return nil, fmt.Errorf("%w: no trip records", ErrInsufficientData)
	}
	return trips, nil
}

func stratified(ds features.Dataset, cfg config.Config) (train, test []int, err error) {
	if ds.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no rows after feature engineering", ErrInsufficientData)
	}
	return ml.StratifiedSplit(ds.Y, cfg.TestFraction, cfg.RandomSeed)
}

// Delay trains the decision tree that predicts whether a trip departs more
// than ten minutes late. The tree works on unscaled features.
func Delay(ctx context.Context, src source.Source, cfg config.Config) (*Outcome, error) {
	trips, err := fetchTrips(ctx, src)
	if err != nil {
		return nil, err
	}
	ds := features.Delay(trips)
	counts := ds.ClassCounts()
	log.Printf("pipeline: delay: %d trips, %d rows (on_time=%d delayed=%d)",
		len(trips), ds.Len(), counts["on_time"], counts["delayed"])

	train, test, err := stratified(ds, cfg)
	if err != nil {
		return nil, err
	}
	tree := ml.NewDecisionTree()
	f, err := fit(tree, ds.X, ds.Y, train, test)
	if err != nil {
		return nil, err
	}

	importances := tree.FeatureImportances()
	byFeature := make(map[string]float64, len(ds.Features))
	for i, name := range ds.Features {
		byFeature[name] = importances[i]
	}
	png, err := chart.Bar("Decision Tree Feature Importance", ds.Features, importances)

	return &Outcome{
		RecordsFetched: len(trips),
		Metrics: models.ReportMetrics{
			ModelType:         "Decision Tree Classifier",
			Description:       "Trip delay prediction (On-time vs Delayed)",
			Estimator:         tree.Name(),
			TrainMetrics:      evaluate.Binary(f.trainY, f.trainPred),
			TestMetrics:       evaluate.Binary(f.testY, f.testPred),
			Visualization:     render("dt_delay_prediction", png, err),
			FeatureImportance: byFeature,
			Hyperparameters:   tree.Hyperparameters(),
			ClassDistribution: counts,
			Architecture:      map[string]any{"depth": tree.Depth()},
			Features:          ds.Features,
			Records:           ds.Len(),
		},
	}, nil
}

// Performance trains Gaussian naive Bayes on route aggregates labelled High,
// Medium or Low against this batch's score percentiles.
func Performance(ctx context.Context, src source.Source, cfg config.Config) (*Outcome, error) {
	trips, err := fetchTrips(ctx, src)
	if err != nil {
		return nil, err
	}
	ds, th := features.Performance(trips)
	log.Printf("pipeline: performance: %d trips, %d routes, thresholds %.2f/%.2f, classes %v",
		len(trips), ds.Len(), th.Low, th.High, ds.ClassCounts())

	train, test, err := stratified(ds, cfg)
	if err != nil {
		return nil, err
	}
	nb := ml.NewGaussianNB()
	f, err := fit(ml.NewScaled(nb), ds.X, ds.Y, train, test)
	if err != nil {
		return nil, err
	}

	n := len(ds.Classes)
	png, err := chart.Heatmap("Naive Bayes Confusion Matrix", ds.Classes, evaluate.Confusion(f.testY, f.testPred, n))

	return &Outcome{
		RecordsFetched: len(trips),
		Metrics: models.ReportMetrics{
			ModelType:         "Gaussian Naive Bayes",
			Description:       "Route performance classification (High/Medium/Low)",
			Estimator:         nb.Name(),
			TrainMetrics:      evaluate.Weighted(f.trainY, f.trainPred, n),
			TestMetrics:       evaluate.Weighted(f.testY, f.testPred, n),
			Visualization:     render("nb_route_performance", png, err),
			FeatureWeights:    copyWeights(scoring.PerformanceWeights),
			Hyperparameters:   nb.Hyperparameters(),
			ClassDistribution: ds.ClassCounts(),
			Thresholds:        map[string]float64{"low": th.Low, "high": th.High},
			Features:          ds.Features,
			Records:           ds.Len(),
		},
	}, nil
}

// Optimization trains the RBF SVM that flags routes scoring below the batch
// median as needing optimization. The chart projects the scaled route table
// onto its first two principal components, coloured by predicted class.
func Optimization(ctx context.Context, src source.Source, cfg config.Config) (*Outcome, error) {
	trips, err := fetchTrips(ctx, src)
	if err != nil {
		return nil, err
	}
	ds, median := features.Optimization(trips)
	log.Printf("pipeline: optimization: %d trips, %d routes, median score %.2f, classes %v",
		len(trips), ds.Len(), median, ds.ClassCounts())
	if ds.Len() < minOptimizationRoutes {
		return nil, fmt.Errorf("%w: %d routes, need %d", ErrInsufficientData, ds.Len(), minOptimizationRoutes)
	}

	train, test, err := stratified(ds, cfg)
	if err != nil {
		return nil, err
	}
	svc := ml.NewSVC()
	est := ml.NewScaled(svc)
	f, err := fit(est, ds.X, ds.Y, train, test)
	if err != nil {
		return nil, err
	}
	log.Printf("pipeline: optimization: %d support vectors", svc.SupportVectors())

	var scaler ml.StandardScaler
	projected := ml.Project2D(scaler.FitTransform(ds.X))
	predicted := est.Predict(ds.X)
	points := make([]chart.Point, len(projected))
	for i, p := range projected {
		points[i] = chart.Point{X: p[0], Y: p[1], Class: int(predicted[i])}
	}
	png, err := chart.Scatter("SVM Route Optimization (PCA projection)", "PC1", "PC2", points, ds.Classes, false)

	return &Outcome{
		RecordsFetched: len(trips),
		Metrics: models.ReportMetrics{
			ModelType:         "SVM (RBF Kernel)",
			Description:       "Route optimization suggestion (Optimized vs Needs Optimization)",
			Estimator:         svc.Name(),
			TrainMetrics:      evaluate.Binary(f.trainY, f.trainPred),
			TestMetrics:       evaluate.Binary(f.testY, f.testPred),
			Visualization:     render("svm_route_optimization", png, err),
			FeatureWeights:    copyWeights(scoring.OptimizationWeights),
			Hyperparameters:   svc.Hyperparameters(),
			ClassDistribution: ds.ClassCounts(),
			Thresholds:        map[string]float64{"median": median},
			Features:          ds.Features,
			Records:           ds.Len(),
		},
	}, nil
}
