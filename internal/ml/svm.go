package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SVC is a binary support vector classifier with an RBF kernel, trained by
// SMO with maximal-violating-pair working set selection. Class 1 is the
// positive side of the decision function.
type SVC struct {
	C         float64
	Gamma     float64 // 0 selects 1 / (n_features * Var(X))
	Tolerance float64
	MaxIter   int

	gamma   float64
	support [][]float64
	coef    []float64 // alpha_i * y_i for each support vector
	rho     float64
}

func NewSVC() *SVC {
	return &SVC{C: 1, Tolerance: 1e-3, MaxIter: 100000}
}

func (s *SVC) Name() string { return "svc_rbf" }

func (s *SVC) Hyperparameters() map[string]any {
	gamma := any("scale")
	if s.Gamma > 0 {
		gamma = s.Gamma
	}
	return map[string]any{"kernel": "rbf", "C": s.C, "gamma": gamma}
}

func (s *SVC) kernel(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-s.gamma * d)
}

func (s *SVC) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	n := len(X)
	sign := make([]float64, n)
	var pos, neg int
	for i, v := range y {
		if v == 1 {
			sign[i] = 1
			pos++
		} else {
			sign[i] = -1
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return fmt.Errorf("%w: svc needs both classes, have %d positive and %d negative", ErrDegenerate, pos, neg)
	}

	s.gamma = s.Gamma
	if s.gamma <= 0 {
		all := make([]float64, 0, n*len(X[0]))
		for _, row := range X {
			all = append(all, row...)
		}
		if v := stat.PopVariance(all, nil); v > 0 {
			s.gamma = 1 / (float64(len(X[0])) * v)
		} else {
			s.gamma = 1
		}
	}

	Q := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			Q.SetSym(i, j, sign[i]*sign[j]*s.kernel(X[i], X[j]))
		}
	}

	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	C := s.C
	const tau = 1e-12

	for iter := 0; iter < s.MaxIter; iter++ {
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -sign[t] * grad[t]
			up := (sign[t] == 1 && alpha[t] < C) || (sign[t] == -1 && alpha[t] > 0)
			low := (sign[t] == 1 && alpha[t] > 0) || (sign[t] == -1 && alpha[t] < C)
			if up && v > gmax {
				gmax, i = v, t
			}
			if low && v < gmin {
				gmin, j = v, t
			}
		}
		if i < 0 || j < 0 || gmax-gmin < s.Tolerance {
			break
		}

		oldI, oldJ := alpha[i], alpha[j]
		if sign[i] != sign[j] {
			quad := Q.At(i, i) + Q.At(j, j) + 2*Q.At(i, j)
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > 0 {
				if alpha[i] > C {
					alpha[i] = C
					alpha[j] = C - diff
				}
			} else if alpha[j] > C {
				alpha[j] = C
				alpha[i] = C + diff
			}
		} else {
			quad := Q.At(i, i) + Q.At(j, j) - 2*Q.At(i, j)
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > C {
				if alpha[i] > C {
					alpha[i] = C
					alpha[j] = sum - C
				}
			} else if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = sum
			}
			if sum > C {
				if alpha[j] > C {
					alpha[j] = C
					alpha[i] = sum - C
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += Q.At(t, i)*dI + Q.At(t, j)*dJ
		}
	}

	s.rho = computeRho(alpha, grad, sign, C)
	s.support = s.support[:0]
	s.coef = s.coef[:0]
	for t := 0; t < n; t++ {
		if alpha[t] > 0 {
			s.support = append(s.support, X[t])
			s.coef = append(s.coef, alpha[t]*sign[t])
		}
	}
	return nil
}

func computeRho(alpha, grad, sign []float64, C float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sum float64
	var free int
	for t := range alpha {
		yg := sign[t] * grad[t]
		switch {
		case alpha[t] >= C:
			if sign[t] == -1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[t] <= 0:
			if sign[t] == 1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sum += yg
		}
	}
	if free > 0 {
		return sum / float64(free)
	}
	return (ub + lb) / 2
}

// DecisionFunction returns the signed distance-like score for each row;
// positive scores predict class 1.
func (s *SVC) DecisionFunction(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		v := -s.rho
		for k, sv := range s.support {
			v += s.coef[k] * s.kernel(sv, row)
		}
		out[i] = v
	}
	return out
}

func (s *SVC) Predict(X [][]float64) []float64 {
	scores := s.DecisionFunction(X)
	for i, v := range scores {
		if v > 0 {
			scores[i] = 1
		} else {
			scores[i] = 0
		}
	}
	return scores
}

// SupportVectors returns the number of support vectors of the fitted model.
func (s *SVC) SupportVectors() int { return len(s.support) }
