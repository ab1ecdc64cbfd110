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
	"github.com/yatrik/fleetml/internal/source"
)

func shuffled(ds features.Dataset, cfg config.Config) (train, test []int, err error) {
	if ds.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: no rows after feature engineering", ErrInsufficientData)
	}
	return ml.Split(ds.Len(), cfg.TestFraction, cfg.RandomSeed)
}

// Demand trains the k-nearest-neighbours regressor predicting seats booked
// per (route, day of week, hour) bucket.
func Demand(ctx context.Context, src source.Source, cfg config.Config) (*Outcome, error) {
	bookings, err := src.FetchBookings(ctx)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, fmt.Errorf("%w: no booking records", ErrInsufficientData)
	}
	ds, routes := features.Demand(bookings)
	log.Printf("pipeline: demand: %d bookings, %d buckets over %d routes", len(bookings), ds.Len(), routes.Len())

	train, test, err := shuffled(ds, cfg)
	if err != nil {
		return nil, err
	}
	knn := ml.NewKNNRegressor()
	f, err := fit(ml.NewScaled(knn), ds.X, ds.Y, train, test)
	if err != nil {
		return nil, err
	}

	points := make([]chart.Point, len(f.testY))
	for i := range f.testY {
		points[i] = chart.Point{X: f.testY[i], Y: f.testPred[i]}
	}
	png, err := chart.Scatter("KNN Demand: Predicted vs Actual", "Actual seats", "Predicted seats", points, nil, true)

	return &Outcome{
		RecordsFetched: len(bookings),
		Metrics: models.ReportMetrics{
			ModelType:       "K-Nearest Neighbors Regressor",
			Description:     "Passenger demand prediction by route, day of week and hour",
			Estimator:       knn.Name(),
			TrainMetrics:    evaluate.Regression(f.trainY, f.trainPred),
			TestMetrics:     evaluate.Regression(f.testY, f.testPred),
			Visualization:   render("knn_demand_prediction", png, err),
			Hyperparameters: knn.Hyperparameters(),
			Architecture:    map[string]any{"routes_encoded": routes.Len()},
			Features:        ds.Features,
			Records:         ds.Len(),
		},
	}, nil
}

// CrewLoad trains the crew fitness regressor. The feed-forward network is
// preferred; ridge regression is used when the network is disabled or the
// training partition is too small for its validation split.
func CrewLoad(ctx context.Context, src source.Source, cfg config.Config) (*Outcome, error) {
	duties, err := src.FetchDuties(ctx)
	if err != nil {
		return nil, err
	}
	if len(duties) == 0 {
		return nil, fmt.Errorf("%w: no duty records", ErrInsufficientData)
	}
	ds := features.Crew(duties)
	log.Printf("pipeline: crew: %d duties, %d rows", len(duties), ds.Len())

	train, test, err := shuffled(ds, cfg)
	if err != nil {
		return nil, err
	}

	ridge := ml.NewRidge()
	strategy := ml.RegressorStrategy{Fallback: ml.NewScaled(ridge)}
	var mlp *ml.MLPRegressor
	if cfg.NeuralEnabled {
		mlp = ml.NewMLPRegressor(cfg.RandomSeed)
		mlp.Epochs = cfg.NeuralEpochs
		strategy.Preferred = ml.NewScaled(mlp)
	}
	est, fallback := strategy.Select(len(train))
	if fallback {
		log.Printf("pipeline: crew: using ridge fallback for %d training rows", len(train))
	}

	f, err := fit(est, ds.X, ds.Y, train, test)
	if err != nil {
		return nil, err
	}

	m := models.ReportMetrics{
		Description:  "Crew fitness score prediction for load balancing",
		Estimator:    estimatorName(est),
		TrainMetrics: evaluate.Regression(f.trainY, f.trainPred),
		TestMetrics:  evaluate.Regression(f.testY, f.testPred),
		Features:     ds.Features,
		Records:      ds.Len(),
	}
	if fallback {
		m.ModelType = "Ridge Regression (Fallback)"
		m.Architecture = ridge.Architecture()
		png, err := chart.Placeholder("Crew Load Model", "Ridge regression has no training curve")
		m.Visualization = render("nn_crew_load_balancing", png, err)
	} else {
		m.ModelType = "Neural Network (Feed-forward)"
		m.Architecture = mlp.Architecture()
		m.Architecture["best_epoch"] = mlp.History.BestEpoch
		m.Architecture["epochs_run"] = len(mlp.History.Loss)
		png, err := chart.Lines("Neural Network Training Loss", "Epoch", "MSE", []chart.Series{
			{Name: "train", Values: mlp.History.Loss},
			{Name: "validation", Values: mlp.History.ValLoss},
		})
		m.Visualization = render("nn_crew_load_balancing", png, err)
	}

	return &Outcome{RecordsFetched: len(duties), Metrics: m, Fallback: fallback}, nil
}
