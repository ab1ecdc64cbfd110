package scoring

// Performance classes.
const (
	High   = "High"
	Medium = "Medium"
	Low    = "Low"
)

// Percentile cut points for the three-way performance split.
const (
	lowPercentile  = 0.33
	highPercentile = 0.67
)

// Score coefficients. The punctuality weight applies to
// (100 - avg_delay_minutes), so avg_delay_minutes itself carries its negation.
const (
	perfOccupancyWeight = 0.4
	perfRevenueWeight   = 0.4
	perfDelayWeight     = -2
	perfFuelWeight      = -0.2

	optOccupancyWeight   = 0.3
	optPunctualityWeight = 0.3
	optRevenueWeight     = 0.2
	optFuelWeight        = -0.2
)

// PerformanceWeights are the coefficients of PerformanceScore, keyed by feature.
var PerformanceWeights = map[string]float64{
	"occupancy_percentage": perfOccupancyWeight,
	"revenue_per_km":       perfRevenueWeight,
	"delay_count":          perfDelayWeight,
	"fuel_per_km":          perfFuelWeight,
}

// OptimizationWeights are the coefficients of OptimizationScore, keyed by feature.
var OptimizationWeights = map[string]float64{
	"occupancy_rate":    optOccupancyWeight,
	"avg_delay_minutes": -optPunctualityWeight,
	"revenue_per_km":    optRevenueWeight,
	"fuel_per_km":       optFuelWeight,
}

// PerformanceScore is the weighted route performance score. Higher is better.
func PerformanceScore(occupancy, revenuePerKm, delayCount, fuelPerKm float64) float64 {
	return occupancy*perfOccupancyWeight + revenuePerKm*perfRevenueWeight +
		delayCount*perfDelayWeight + fuelPerKm*perfFuelWeight
}

// OptimizationScore is the weighted route efficiency score. Routes below the
// batch median are the optimization candidates.
func OptimizationScore(occupancy, avgDelay, revenuePerKm, fuelPerKm float64) float64 {
	return occupancy*optOccupancyWeight + (100-avgDelay)*optPunctualityWeight +
		revenuePerKm*optRevenueWeight + fuelPerKm*optFuelWeight
}

// Thresholds are the batch-relative cut points used by LabelPerformance.
type Thresholds struct {
	Low  float64
	High float64
}

// LabelPerformance assigns High, Medium or Low to every score using the 33rd
// and 67th percentiles of the batch itself. High is tested first, so when the
// two thresholds coincide (for example a constant batch) every score at the
// threshold is High.
func LabelPerformance(scores []float64) ([]string, Thresholds) {
	if len(scores) == 0 {
		return nil, Thresholds{}
	}
	th := Thresholds{
		Low:  Quantile(scores, lowPercentile),
		High: Quantile(scores, highPercentile),
	}
	labels := make([]string, len(scores))
	for i, s := range scores {
		switch {
		case s >= th.High:
			labels[i] = High
		case s <= th.Low:
			labels[i] = Low
		default:
			labels[i] = Medium
		}
	}
	return labels, th
}

// LabelOptimization flags scores strictly below the batch median as needing
// optimization (1); everything else is 0. A constant batch is therefore all 0.
func LabelOptimization(scores []float64) ([]int, float64) {
	if len(scores) == 0 {
		return nil, 0
	}
	median := Median(scores)
	flags := make([]int, len(scores))
	for i, s := range scores {
		if s < median {
			flags[i] = 1
		}
	}
	return flags, median
}
