package features

import (
	"sort"
	"time"

	"github.com/yatrik/fleetml/internal/models"
)

const (
	// AverageSpeedKmh converts route length into an estimated trip duration.
	AverageSpeedKmh  = 40
	DefaultRestHours = 8
	fullRestHours    = 12
)

var CrewFeatures = []string{"route_length", "trips_per_day", "rest_hours", "consecutive_days", "avg_trip_duration"}

// CrewDay is one duty with its derived workload features.
type CrewDay struct {
	CrewID          string
	CrewType        string
	Date            time.Time // zero when the duty date is missing
	RouteLength     *float64
	TripsPerDay     float64
	RestHours       float64
	ConsecutiveDays int
	Fitness         float64
}

// FitnessScore combines rest, consecutive days and trip load into [0, 1].
// Maxima of zero or less are treated as 1.
func FitnessScore(restHours, consecutive, maxConsecutive, trips, maxTrips float64) float64 {
	score := (restHours/fullRestHours)*0.4 +
		(1-consecutive/safeDivisor(maxConsecutive))*0.3 +
		(1-trips/safeDivisor(maxTrips))*0.3
	return clamp(score, 0, 1)
}

// CrewDays sorts duties by crew id then date (undated duties last within a
// crew) and numbers each crew's duties 1..N. The counter is a running index:
// gaps between dates do not reset it. Duties without a crew id are dropped.
// Fitness is computed against the batch maxima.
func CrewDays(duties []models.DutyRecord) []CrewDay {
	days := make([]CrewDay, 0, len(duties))
	for _, d := range duties {
		if d.CrewID == "" {
			continue
		}
		day := CrewDay{
			CrewID:      d.CrewID,
			CrewType:    d.CrewType,
			RouteLength: d.RouteLength,
			TripsPerDay: float64(d.TripsCount),
			RestHours:   DefaultRestHours,
		}
		if t, ok := ParseTimestamp(d.Date); ok {
			day.Date = t
		}
		if d.RestHours != nil {
			day.RestHours = *d.RestHours
		}
		days = append(days, day)
	}

	sort.SliceStable(days, func(i, j int) bool {
		a, b := days[i], days[j]
		if a.CrewID != b.CrewID {
			return a.CrewID < b.CrewID
		}
		if a.Date.IsZero() != b.Date.IsZero() {
			return b.Date.IsZero()
		}
		return a.Date.Before(b.Date)
	})

	var maxConsecutive, maxTrips float64
	for i := range days {
		if i > 0 && days[i-1].CrewID == days[i].CrewID {
			days[i].ConsecutiveDays = days[i-1].ConsecutiveDays + 1
		} else {
			days[i].ConsecutiveDays = 1
		}
		if c := float64(days[i].ConsecutiveDays); c > maxConsecutive {
			maxConsecutive = c
		}
		if days[i].TripsPerDay > maxTrips {
			maxTrips = days[i].TripsPerDay
		}
	}
	for i := range days {
		d := &days[i]
		d.Fitness = FitnessScore(d.RestHours, float64(d.ConsecutiveDays), maxConsecutive, d.TripsPerDay, maxTrips)
	}
	return days
}

// Crew builds the crew fitness regression table. Duties without a route
// length are dropped after the fitness score is computed.
func Crew(duties []models.DutyRecord) Dataset {
	ds := Dataset{Features: CrewFeatures}
	for _, d := range CrewDays(duties) {
		if d.RouteLength == nil {
			continue
		}
		length := *d.RouteLength
		ds.X = append(ds.X, []float64{
			length,
			d.TripsPerDay,
			d.RestHours,
			float64(d.ConsecutiveDays),
			length / AverageSpeedKmh,
		})
		ds.Y = append(ds.Y, d.Fitness)
	}
	return ds
}
