package features

import (
	"strings"

	"github.com/yatrik/fleetml/internal/models"
)

// DelayThresholdMinutes is the departure delay above which a trip counts as delayed.
const DelayThresholdMinutes = 10

var DelayFeatures = []string{"route_length", "shift_hours", "traffic_factor", "passenger_load", "day_of_week", "hour_of_day"}

var DelayClasses = []string{"on_time", "delayed"}

// TrafficFactor maps a traffic level to 1 (low), 2 (medium) or 3 (high).
// Unknown levels count as medium.
func TrafficFactor(level string) float64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return 1
	case "high":
		return 3
	default:
		return 2
	}
}

// Delay builds the trip delay classification table. Trips without a route
// length, shift hours or a parsable scheduled departure are dropped.
func Delay(trips []models.TripRecord) Dataset {
	ds := Dataset{Features: DelayFeatures, Classes: DelayClasses}
	for _, t := range trips {
		if t.RouteLength == nil || t.ShiftHours == nil {
			continue
		}
		sched, ok := ParseTimestamp(t.ScheduledDeparture)
		if !ok {
			continue
		}
		delayed := 0.0
		if DelayMinutes(t.ScheduledDeparture, t.ActualDeparture) > DelayThresholdMinutes {
			delayed = 1
		}
		ds.X = append(ds.X, []float64{
			*t.RouteLength,
			*t.ShiftHours,
			TrafficFactor(t.TrafficLevel),
			Percentage(t.SeatsBooked, t.Capacity),
			float64(DayOfWeek(sched)),
			float64(sched.Hour()),
		})
		ds.Y = append(ds.Y, delayed)
	}
	return ds
}
