package models

import "time"

// TripRecord is one trip joined with its route, bookings and duty. Timestamp
// fields hold whatever the ERP stored (BSON datetime, string, or nothing) and
// are normalised by the feature pipelines.
type TripRecord struct {
	RouteID            string   `bson:"route_id"`
	RouteName          string   `bson:"route_name"`
	RouteLength        *float64 `bson:"route_length"`
	Capacity           float64  `bson:"capacity"`
	SeatsBooked        float64  `bson:"seats_booked"`
	Revenue            float64  `bson:"revenue"`
	FuelCost           float64  `bson:"fuel_cost"`
	ShiftHours         *float64 `bson:"shift_hours"`
	TrafficLevel       string   `bson:"traffic_level"`
	ScheduledDeparture any      `bson:"scheduled_departure"`
	ActualDeparture    any      `bson:"actual_departure"`
	ScheduledArrival   any      `bson:"scheduled_arrival"`
	ActualArrival      any      `bson:"actual_arrival"`
}

// BookingRecord is one booking joined with its trip and route.
type BookingRecord struct {
	RouteID  string   `bson:"route_id"`
	Fare     float64  `bson:"fare"`
	Seats    float64  `bson:"seats"`
	BookedAt any      `bson:"booked_at"`
	TripDate any      `bson:"trip_date"`
	Distance *float64 `bson:"distance"`
}

// DutyRecord is one crew duty joined with its driver or conductor and trips.
type DutyRecord struct {
	CrewID      string   `bson:"crew_id"`
	CrewType    string   `bson:"crew_type"` // "driver" or "conductor"
	Date        any      `bson:"date"`
	ShiftHours  *float64 `bson:"shift_hours"`
	TripsCount  int      `bson:"trips_count"`
	RestHours   *float64 `bson:"rest_hours"`
	RouteLength *float64 `bson:"route_length"`
}

const ReportStatusCompleted = "completed"

// MetricSet maps metric names (Accuracy, F1_Score, RMSE, ...) to values.
type MetricSet map[string]float64

// ModelReport is the persisted outcome of one pipeline run. Reports are
// inserted once and never updated.
type ModelReport struct {
	ID        string        `bson:"report_id" json:"id"`
	ModelName string        `bson:"model_name" json:"model_name"`
	Metrics   ReportMetrics `bson:"metrics" json:"metrics"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
	Status    string        `bson:"status" json:"status"`
}

type ReportMetrics struct {
	ModelType         string             `bson:"model_type" json:"model_type"`
	Description       string             `bson:"description" json:"description"`
	Estimator         string             `bson:"estimator" json:"estimator"`
	TrainMetrics      MetricSet          `bson:"train_metrics" json:"train_metrics"`
	TestMetrics       MetricSet          `bson:"test_metrics" json:"test_metrics"`
	Visualization     string             `bson:"visualization" json:"visualization"`
	FeatureImportance map[string]float64 `bson:"feature_importance,omitempty" json:"feature_importance,omitempty"`
	FeatureWeights    map[string]float64 `bson:"feature_weights,omitempty" json:"feature_weights,omitempty"`
	Hyperparameters   map[string]any     `bson:"hyperparameters,omitempty" json:"hyperparameters,omitempty"`
	ClassDistribution map[string]int     `bson:"class_distribution,omitempty" json:"class_distribution,omitempty"`
	Architecture      map[string]any     `bson:"architecture,omitempty" json:"architecture,omitempty"`
	Thresholds        map[string]float64 `bson:"thresholds,omitempty" json:"thresholds,omitempty"`
	Features          []string           `bson:"features" json:"features"`
	Records           int                `bson:"records" json:"records"`
	Insight           string             `bson:"insight,omitempty" json:"insight,omitempty"`
}
