package ml

// Capable is implemented by estimators that can only train on enough rows.
type Capable interface {
	CanFit(rows int) bool
}

// RegressorStrategy picks between a preferred estimator and a fallback once
// per run. The preferred estimator is used when it is configured and, if it
// implements Capable, accepts the row count.
type RegressorStrategy struct {
	Preferred Estimator
	Fallback  Estimator
}

// Select returns the estimator to train and whether it is the fallback.
func (s RegressorStrategy) Select(rows int) (Estimator, bool) {
	if s.Preferred != nil {
		c, ok := s.Preferred.(Capable)
		if !ok || c.CanFit(rows) {
			return s.Preferred, false
		}
	}
	return s.Fallback, true
}
