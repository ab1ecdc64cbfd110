package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MLPRegressor is a feed-forward network with ReLU hidden layers, dropout
// after every hidden layer but the last, and a sigmoid output, so predictions
// fall in (0, 1). It minimises mean squared error with Adam. The last
// ValidationFraction of the training rows is held out to monitor validation
// loss; training stops after Patience epochs without improvement and the best
// weights are restored.
type MLPRegressor struct {
	Hidden             []int
	Dropout            float64
	LearningRate       float64
	Epochs             int
	BatchSize          int
	ValidationFraction float64
	Patience           int
	Seed               int64

	layers  []*denseLayer
	History LossHistory
}

// LossHistory records the per-epoch training and validation loss (MSE).
type LossHistory struct {
	Loss      []float64 `json:"loss"`
	ValLoss   []float64 `json:"val_loss"`
	BestEpoch int       `json:"best_epoch"`
}

type denseLayer struct {
	W       *mat.Dense
	b       []float64
	sigmoid bool
	dropout float64

	mW, vW []float64
	mb, vb []float64

	in, out *mat.Dense
	mask    *mat.Dense
}

func NewMLPRegressor(seed int64) *MLPRegressor {
	return &MLPRegressor{
		Hidden:             []int{64, 32, 16},
		Dropout:            0.2,
		LearningRate:       0.001,
		Epochs:             100,
		BatchSize:          32,
		ValidationFraction: 0.2,
		Patience:           10,
		Seed:               seed,
	}
}

func (m *MLPRegressor) Name() string { return "mlp_regressor" }

func (m *MLPRegressor) Architecture() map[string]any {
	layers := append(append([]int(nil), m.Hidden...), 1)
	return map[string]any{
		"layers":     layers,
		"activation": "relu, sigmoid",
		"dropout":    m.Dropout,
		"optimizer":  "adam",
		"epochs":     m.Epochs,
		"batch_size": m.BatchSize,
	}
}

func (m *MLPRegressor) validationSize(rows int) int {
	return rows - int(math.Ceil(float64(rows)*(1-m.ValidationFraction)))
}

// CanFit reports whether rows leaves at least two rows for validation and
// one full batch worth of at least eight rows for training.
func (m *MLPRegressor) CanFit(rows int) bool {
	val := m.validationSize(rows)
	return val >= 2 && rows-val >= 8
}

func (m *MLPRegressor) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	if !m.CanFit(len(X)) {
		return fmt.Errorf("%w: %d rows too few for a validation split", ErrInsufficientData, len(X))
	}
	rng := rand.New(rand.NewSource(m.Seed))
	m.init(len(X[0]), rng)

	nVal := m.validationSize(len(X))
	nTrain := len(X) - nVal
	trainX, trainY := X[:nTrain], y[:nTrain]
	valX, valY := toDense(X[nTrain:]), y[nTrain:]

	m.History = LossHistory{}
	best := math.Inf(1)
	var bestWeights [][]float64
	wait := 0
	step := 0

	order := make([]int, nTrain)
	for i := range order {
		order[i] = i
	}
	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var epochLoss float64
		for start := 0; start < nTrain; start += m.BatchSize {
			end := min(start+m.BatchSize, nTrain)
			bx, by := Take(trainX, trainY, order[start:end])
			step++
			epochLoss += m.trainBatch(toDense(bx), by, rng, step) * float64(end-start)
		}
		epochLoss /= float64(nTrain)
		valLoss := mse(m.forward(valX, nil), valY)
		if math.IsNaN(epochLoss) || math.IsNaN(valLoss) {
			return fmt.Errorf("%w: loss diverged at epoch %d", ErrDegenerate, epoch+1)
		}
		m.History.Loss = append(m.History.Loss, epochLoss)
		m.History.ValLoss = append(m.History.ValLoss, valLoss)

		if valLoss < best {
			best = valLoss
			bestWeights = m.snapshot()
			m.History.BestEpoch = epoch + 1
			wait = 0
			continue
		}
		wait++
		if wait >= m.Patience {
			break
		}
	}
	if bestWeights != nil {
		m.restore(bestWeights)
	}
	return nil
}

func (m *MLPRegressor) init(inputs int, rng *rand.Rand) {
	sizes := append([]int{inputs}, m.Hidden...)
	sizes = append(sizes, 1)
	m.layers = make([]*denseLayer, len(sizes)-1)
	for l := range m.layers {
		in, out := sizes[l], sizes[l+1]
		limit := math.Sqrt(6 / float64(in+out))
		w := make([]float64, in*out)
		for i := range w {
			w[i] = (rng.Float64()*2 - 1) * limit
		}
		layer := &denseLayer{
			W:  mat.NewDense(in, out, w),
			b:  make([]float64, out),
			mW: make([]float64, in*out),
			vW: make([]float64, in*out),
			mb: make([]float64, out),
			vb: make([]float64, out),
		}
		last := l == len(m.layers)-1
		layer.sigmoid = last
		// No dropout after the final hidden layer.
		if !last && l < len(m.layers)-2 {
			layer.dropout = m.Dropout
		}
		m.layers[l] = layer
	}
}

// forward runs the network. A non-nil rng enables dropout.
func (m *MLPRegressor) forward(x *mat.Dense, rng *rand.Rand) []float64 {
	a := x
	for _, l := range m.layers {
		l.in = a
		var z mat.Dense
		z.Mul(a, l.W)
		z.Apply(func(_, j int, v float64) float64 {
			v += l.b[j]
			if l.sigmoid {
				return 1 / (1 + math.Exp(-v))
			}
			return math.Max(0, v)
		}, &z)
		l.mask = nil
		if rng != nil && l.dropout > 0 {
			r, c := z.Dims()
			keep := 1 - l.dropout
			mask := mat.NewDense(r, c, nil)
			mask.Apply(func(_, _ int, _ float64) float64 {
				if rng.Float64() < keep {
					return 1 / keep
				}
				return 0
			}, mask)
			z.MulElem(&z, mask)
			l.mask = mask
		}
		l.out = &z
		a = &z
	}
	r, _ := a.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = a.At(i, 0)
	}
	return out
}

func (m *MLPRegressor) trainBatch(x *mat.Dense, y []float64, rng *rand.Rand, step int) float64 {
	pred := m.forward(x, rng)
	loss := mse(pred, y)

	n := float64(len(y))
	grad := mat.NewDense(len(y), 1, nil)
	for i := range y {
		grad.Set(i, 0, 2*(pred[i]-y[i])/n)
	}
	for li := len(m.layers) - 1; li >= 0; li-- {
		l := m.layers[li]
		// grad holds dLoss/dOutput; turn it into dLoss/dZ.
		if l.mask != nil {
			grad.MulElem(grad, l.mask)
		}
		out := l.out
		grad.Apply(func(i, j int, g float64) float64 {
			v := out.At(i, j)
			if l.sigmoid {
				return g * v * (1 - v)
			}
			if v > 0 {
				return g
			}
			return 0
		}, grad)

		var dW mat.Dense
		dW.Mul(l.in.T(), grad)
		rows, cols := grad.Dims()
		db := make([]float64, cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				db[j] += grad.At(i, j)
			}
		}
		var next *mat.Dense
		if li > 0 {
			next = &mat.Dense{}
			next.Mul(grad, l.W.T())
		}
		m.adam(l, dW.RawMatrix().Data, db, step)
		grad = next
	}
	return loss
}

func (m *MLPRegressor) adam(l *denseLayer, dW, db []float64, step int) {
	const beta1, beta2, eps = 0.9, 0.999, 1e-7
	t := float64(step)
	alpha := m.LearningRate * math.Sqrt(1-math.Pow(beta2, t)) / (1 - math.Pow(beta1, t))
	update := func(w, g, mom, vel []float64) {
		for i := range w {
			mom[i] += (g[i] - mom[i]) * (1 - beta1)
			vel[i] += (g[i]*g[i] - vel[i]) * (1 - beta2)
			w[i] -= alpha * mom[i] / (math.Sqrt(vel[i]) + eps)
		}
	}
	update(l.W.RawMatrix().Data, dW, l.mW, l.vW)
	update(l.b, db, l.mb, l.vb)
}

func (m *MLPRegressor) snapshot() [][]float64 {
	out := make([][]float64, 0, 2*len(m.layers))
	for _, l := range m.layers {
		out = append(out, append([]float64(nil), l.W.RawMatrix().Data...), append([]float64(nil), l.b...))
	}
	return out
}

func (m *MLPRegressor) restore(weights [][]float64) {
	for i, l := range m.layers {
		copy(l.W.RawMatrix().Data, weights[2*i])
		copy(l.b, weights[2*i+1])
	}
}

func (m *MLPRegressor) Predict(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	return m.forward(toDense(X), nil)
}

func mse(pred, y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	sum := 0.0
	for i := range y {
		d := pred[i] - y[i]
		sum += d * d
	}
	return sum / float64(len(y))
}
