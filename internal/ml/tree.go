package ml

import (
	"fmt"
	"sort"
)

// DecisionTree is a CART classifier splitting on Gini impurity. It works on
// raw feature values; thresholds are midpoints between adjacent values.
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	root        *treeNode
	nFeatures   int
	nClasses    int
	importances []float64
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	class     int
	leaf      bool
}

// NewDecisionTree returns a CART classifier with max depth 5, min_samples_split 20
// and min_samples_leaf 10.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{MaxDepth: 5, MinSamplesSplit: 20, MinSamplesLeaf: 10}
}

func (t *DecisionTree) Name() string { return "decision_tree" }

func (t *DecisionTree) Hyperparameters() map[string]any {
	return map[string]any{
		"max_depth":         t.MaxDepth,
		"min_samples_split": t.MinSamplesSplit,
		"min_samples_leaf":  t.MinSamplesLeaf,
	}
}

func (t *DecisionTree) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	t.nFeatures = len(X[0])
	t.nClasses = classCount(y)
	t.importances = make([]float64, t.nFeatures)

	labels := make([]int, len(y))
	for i, v := range y {
		labels[i] = int(v)
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.root = t.grow(X, labels, idx, 0)

	var total float64
	for _, v := range t.importances {
		total += v
	}
	if total > 0 {
		for i := range t.importances {
			t.importances[i] /= total
		}
	}
	return nil
}

func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, depth int) *treeNode {
	counts := make([]float64, t.nClasses)
	for _, i := range idx {
		counts[y[i]]++
	}
	node := &treeNode{leaf: true, class: argmax(counts)}
	impurity := gini(counts, float64(len(idx)))
	if depth >= t.MaxDepth || len(idx) < t.MinSamplesSplit || len(idx) < 2*t.MinSamplesLeaf || impurity == 0 {
		return node
	}

	s, ok := t.bestSplit(X, y, idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	n := float64(len(idx))
	t.importances[s.feature] += n*impurity - float64(len(left))*s.leftImpurity - float64(len(right))*s.rightImpurity

	node.leaf = false
	node.feature = s.feature
	node.threshold = s.threshold
	node.left = t.grow(X, y, left, depth+1)
	node.right = t.grow(X, y, right, depth+1)
	return node
}

type split struct {
	feature       int
	threshold     float64
	leftImpurity  float64
	rightImpurity float64
}

func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int) (split, bool) {
	n := len(idx)
	best := split{}
	bestScore := 0.0
	found := false

	order := make([]int, n)
	left := make([]float64, t.nClasses)
	right := make([]float64, t.nClasses)
	for f := 0; f < t.nFeatures; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		for c := range left {
			left[c] = 0
			right[c] = 0
		}
		for _, i := range order {
			right[y[i]]++
		}

		for k := 0; k < n-1; k++ {
			c := y[order[k]]
			left[c]++
			right[c]--
			nl, nr := k+1, n-k-1
			lo, hi := X[order[k]][f], X[order[k+1]][f]
			if lo == hi || nl < t.MinSamplesLeaf || nr < t.MinSamplesLeaf {
				continue
			}
			gl := gini(left, float64(nl))
			gr := gini(right, float64(nr))
			score := (float64(nl)*gl + float64(nr)*gr) / float64(n)
			if !found || score < bestScore {
				found = true
				bestScore = score
				best = split{feature: f, threshold: lo + (hi-lo)/2, leftImpurity: gl, rightImpurity: gr}
			}
		}
	}
	return best, found
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func (t *DecisionTree) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		node := t.root
		for node != nil && !node.leaf {
			if row[node.feature] <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		if node != nil {
			out[i] = float64(node.class)
		}
	}
	return out
}

// FeatureImportances returns the normalised total Gini decrease per feature.
func (t *DecisionTree) FeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// Depth returns the depth of the fitted tree; a single leaf has depth 0.
func (t *DecisionTree) Depth() int {
	var depth func(*treeNode) int
	depth = func(n *treeNode) int {
		if n == nil || n.leaf {
			return 0
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(t.root)
}

func (t *DecisionTree) String() string {
	return fmt.Sprintf("DecisionTree(max_depth=%d, depth=%d)", t.MaxDepth, t.Depth())
}
