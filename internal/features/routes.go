package features

import (
	"sort"

	"github.com/yatrik/fleetml/internal/models"
	"github.com/yatrik/fleetml/internal/scoring"
)

// SevereDelayMinutes is the delay above which a trip counts towards a route's delay_count.
const SevereDelayMinutes = 15

var (
	PerformanceFeatures  = []string{"occupancy_percentage", "fuel_per_km", "delay_count", "revenue_per_km"}
	OptimizationFeatures = []string{"occupancy_rate", "avg_delay_minutes", "fuel_per_km", "revenue_per_km"}
	OptimizationClasses  = []string{"optimized", "needs_optimization"}
)

// RouteStats are per-route aggregates over all trips of the route. Per-km
// means only include trips with a known route length.
type RouteStats struct {
	RouteID      string
	Trips        int
	Occupancy    float64
	FuelPerKm    float64
	RevenuePerKm float64
	DelayCount   float64
	AvgDelay     float64 // mean absolute departure delay, minutes
}

type routeAcc struct {
	trips      int
	occupancy  mean
	fuel       mean
	revenue    mean
	delayCount float64
	absDelay   mean
}

// AggregateRoutes groups trips by route id. Routes are returned sorted by id;
// routes where no trip has a route length are dropped.
func AggregateRoutes(trips []models.TripRecord) []RouteStats {
	accs := make(map[string]*routeAcc)
	for _, t := range trips {
		acc, ok := accs[t.RouteID]
		if !ok {
			acc = &routeAcc{}
			accs[t.RouteID] = acc
		}
		acc.trips++
		acc.occupancy.add(Percentage(t.SeatsBooked, t.Capacity))
		delay := DelayMinutes(t.ScheduledDeparture, t.ActualDeparture)
		if delay > SevereDelayMinutes {
			acc.delayCount++
		}
		if delay < 0 {
			delay = -delay
		}
		acc.absDelay.add(delay)
		if t.RouteLength != nil {
			acc.fuel.add(PerKm(t.FuelCost, *t.RouteLength))
			acc.revenue.add(PerKm(t.Revenue, *t.RouteLength))
		}
	}

	ids := make([]string, 0, len(accs))
	for id := range accs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stats := make([]RouteStats, 0, len(ids))
	for _, id := range ids {
		acc := accs[id]
		fuel, ok := acc.fuel.value()
		if !ok {
			continue
		}
		revenue, _ := acc.revenue.value()
		occupancy, _ := acc.occupancy.value()
		avgDelay, _ := acc.absDelay.value()
		stats = append(stats, RouteStats{
			RouteID:      id,
			Trips:        acc.trips,
			Occupancy:    occupancy,
			FuelPerKm:    fuel,
			RevenuePerKm: revenue,
			DelayCount:   acc.delayCount,
			AvgDelay:     avgDelay,
		})
	}
	return stats
}

// Performance builds the route performance classification table. Each route
// is scored with scoring.PerformanceScore and labelled against the 33rd and
// 67th percentiles of this batch. Classes are the labels present, sorted.
func Performance(trips []models.TripRecord) (Dataset, scoring.Thresholds) {
	stats := AggregateRoutes(trips)
	scores := make([]float64, len(stats))
	for i, s := range stats {
		scores[i] = scoring.PerformanceScore(s.Occupancy, s.RevenuePerKm, s.DelayCount, s.FuelPerKm)
	}
	labels, th := scoring.LabelPerformance(scores)

	present := make(map[string]bool)
	for _, l := range labels {
		present[l] = true
	}
	classes := make([]string, 0, len(present))
	for l := range present {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	ds := Dataset{Features: PerformanceFeatures, Classes: classes}
	for i, s := range stats {
		ds.X = append(ds.X, []float64{s.Occupancy, s.FuelPerKm, s.DelayCount, s.RevenuePerKm})
		ds.Y = append(ds.Y, float64(index[labels[i]]))
	}
	return ds, th
}

// Optimization builds the route optimization classification table. Routes
// scoring strictly below the batch median are labelled needs_optimization.
func Optimization(trips []models.TripRecord) (Dataset, float64) {
	stats := AggregateRoutes(trips)
	scores := make([]float64, len(stats))
	for i, s := range stats {
		scores[i] = scoring.OptimizationScore(s.Occupancy, s.AvgDelay, s.RevenuePerKm, s.FuelPerKm)
	}
	flags, median := scoring.LabelOptimization(scores)

	ds := Dataset{Features: OptimizationFeatures, Classes: OptimizationClasses}
	for i, s := range stats {
		ds.X = append(ds.X, []float64{s.Occupancy, s.AvgDelay, s.FuelPerKm, s.RevenuePerKm})
		ds.Y = append(ds.Y, float64(flags[i]))
	}
	return ds, median
}
