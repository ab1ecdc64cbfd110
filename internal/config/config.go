package config

import (
	"errors"
	"fmt"
)

// Config holds the settings shared by every pipeline run. It is passed by value
// into each run so that concurrent runs and tests can use independent settings.
type Config struct {
	MongoURI string
	DBName   string

	TripsCollection      string
	RoutesCollection     string
	BookingsCollection   string
	DutiesCollection     string
	DriversCollection    string
	ConductorsCollection string
	ReportsCollection    string

	RandomSeed   int64
	TestFraction float64

	// NeuralEnabled selects the feed-forward network for crew load balancing.
	// When false, or when too few rows are available, the ridge fallback is used.
	NeuralEnabled bool
	NeuralEpochs  int
}

// Default returns the settings used when no flags or env vars override them.
func Default() Config {
	return Config{
		MongoURI:             "mongodb://localhost:27017",
		DBName:               "yatrik",
		TripsCollection:      "trips",
		RoutesCollection:     "routes",
		BookingsCollection:   "bookings",
		DutiesCollection:     "duties",
		DriversCollection:    "drivers",
		ConductorsCollection: "conductors",
		ReportsCollection:    "ml_reports",
		RandomSeed:           42,
		TestFraction:         0.2,
		NeuralEnabled:        true,
		NeuralEpochs:         100,
	}
}

func (c Config) Validate() error {
	if c.DBName == "" {
		return errors.New("config: database name required")
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("config: test fraction %v must be in (0, 1)", c.TestFraction)
	}
	if c.NeuralEpochs <= 0 {
		return fmt.Errorf("config: neural epochs %d must be positive", c.NeuralEpochs)
	}
	return nil
}
