package ml

import "gonum.org/v1/gonum/stat"

// StandardScaler centres each column on its mean and divides by its
// population standard deviation. Constant columns are only centred.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

func (s *StandardScaler) Fit(X [][]float64) {
	if len(X) == 0 {
		return
	}
	cols := len(X[0])
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
}

func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = r
	}
	return out
}

func (s *StandardScaler) FitTransform(X [][]float64) [][]float64 {
	s.Fit(X)
	return s.Transform(X)
}

// Scaled fits a StandardScaler on the training rows before handing them to the
// wrapped estimator, and applies the same scaling at prediction time.
type Scaled struct {
	Estimator Estimator
	scaler    StandardScaler
}

func NewScaled(e Estimator) *Scaled {
	return &Scaled{Estimator: e}
}

func (s *Scaled) Fit(X [][]float64, y []float64) error {
	return s.Estimator.Fit(s.scaler.FitTransform(X), y)
}

func (s *Scaled) Predict(X [][]float64) []float64 {
	return s.Estimator.Predict(s.scaler.Transform(X))
}

func (s *Scaled) Name() string {
	if n, ok := s.Estimator.(Named); ok {
		return n.Name()
	}
	return ""
}

func (s *Scaled) CanFit(rows int) bool {
	if c, ok := s.Estimator.(Capable); ok {
		return c.CanFit(rows)
	}
	return true
}
