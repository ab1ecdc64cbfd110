package scoring

import (
	"math"
	"testing"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"single value", []float64{7}, 0.33, 7},
		{"median odd", []float64{3, 1, 2}, 0.5, 2},
		{"median even", []float64{4, 1, 3, 2}, 0.5, 2.5},
		{"minimum", []float64{5, 1, 9}, 0, 1},
		{"maximum", []float64{5, 1, 9}, 1, 9},
		// h = 9*0.33 = 2.97 -> 3 + 0.97*(4-3)
		{"p33 of 1..10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.33, 3.97},
		// h = 9*0.67 = 6.03 -> 7 + 0.03*(8-7)
		{"p67 of 1..10", []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 0.67, 7.03},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantile(tt.values, tt.q)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Quantile(%v, %v) = %v, want %v", tt.values, tt.q, got, tt.want)
			}
		})
	}
}

func TestQuantile_Empty(t *testing.T) {
	if got := Quantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("Quantile(nil) = %v, want NaN", got)
	}
}

func TestQuantile_DoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Quantile(in, 0.5)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input reordered: %v", in)
	}
}

func TestLabelPerformance_Partition(t *testing.T) {
	scores := []float64{12, -4, 30, 7.5, 0, 18, 22, 3, 9}
	labels, th := LabelPerformance(scores)

	if th.Low > th.High {
		t.Fatalf("low threshold %v > high threshold %v", th.Low, th.High)
	}
	if len(labels) != len(scores) {
		t.Fatalf("len(labels) = %d, want %d", len(labels), len(scores))
	}
	counts := map[string]int{}
	for i, l := range labels {
		switch l {
		case High:
			if scores[i] < th.High {
				t.Errorf("score %v labelled High below threshold %v", scores[i], th.High)
			}
		case Low:
			if scores[i] > th.Low {
				t.Errorf("score %v labelled Low above threshold %v", scores[i], th.Low)
			}
		case Medium:
			if scores[i] <= th.Low || scores[i] >= th.High {
				t.Errorf("score %v labelled Medium outside (%v, %v)", scores[i], th.Low, th.High)
			}
		default:
			t.Errorf("unexpected label %q", l)
		}
		counts[l]++
	}
	if counts[High]+counts[Medium]+counts[Low] != len(scores) {
		t.Errorf("labels do not partition the batch: %v", counts)
	}
}

func TestLabelPerformance_ConstantBatch(t *testing.T) {
	labels, th := LabelPerformance([]float64{5, 5, 5})
	if th.Low != 5 || th.High != 5 {
		t.Fatalf("thresholds = %+v, want both 5", th)
	}
	for i, l := range labels {
		if l != High {
			t.Errorf("labels[%d] = %q, want High", i, l)
		}
	}
}

func TestLabelOptimization(t *testing.T) {
	flags, median := LabelOptimization([]float64{10, 40, 20, 30})
	if median != 25 {
		t.Fatalf("median = %v, want 25", median)
	}
	want := []int{1, 0, 1, 0}
	for i := range want {
		if flags[i] != want[i] {
			t.Errorf("flags[%d] = %d, want %d", i, flags[i], want[i])
		}
	}
}

func TestLabelOptimization_ConstantBatch(t *testing.T) {
	// Three routes with identical scores: strict "< median" leaves all optimized.
	flags, median := LabelOptimization([]float64{61.5, 61.5, 61.5})
	if median != 61.5 {
		t.Fatalf("median = %v, want 61.5", median)
	}
	for i, f := range flags {
		if f != 0 {
			t.Errorf("flags[%d] = %d, want 0", i, f)
		}
	}
}

func TestScores(t *testing.T) {
	if got := PerformanceScore(50, 10, 2, 5); math.Abs(got-(20+4-4-1)) > 1e-12 {
		t.Errorf("PerformanceScore = %v, want 19", got)
	}
	if got := OptimizationScore(50, 10, 10, 5); math.Abs(got-(15+27+2-1)) > 1e-12 {
		t.Errorf("OptimizationScore = %v, want 43", got)
	}
}

func TestScoresMatchPublishedWeights(t *testing.T) {
	occ, rev, delays, fuel := 62.5, 14.2, 3.0, 7.75
	w := PerformanceWeights
	want := occ*w["occupancy_percentage"] + rev*w["revenue_per_km"] + delays*w["delay_count"] + fuel*w["fuel_per_km"]
	if got := PerformanceScore(occ, rev, delays, fuel); math.Abs(got-want) > 1e-9 {
		t.Errorf("PerformanceScore = %v, weights give %v", got, want)
	}

	avgDelay := 12.0
	w = OptimizationWeights
	want = occ*w["occupancy_rate"] + (avgDelay-100)*w["avg_delay_minutes"] + rev*w["revenue_per_km"] + fuel*w["fuel_per_km"]
	if got := OptimizationScore(occ, avgDelay, rev, fuel); math.Abs(got-want) > 1e-9 {
		t.Errorf("OptimizationScore = %v, weights give %v", got, want)
	}
}
