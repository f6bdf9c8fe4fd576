package model

import (
	"fmt"
	"math/rand"
	"sort"
)

// TreeOptions bounds tree growth.
type TreeOptions struct {
	MaxDepth        int
	MinSamplesSplit int
}

// LinearOptions configures batch gradient descent for the linear trainers.
type LinearOptions struct {
	Epochs       int
	LearningRate float64
	L2           float64
}

func (o TreeOptions) withDefaults() TreeOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 5
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	return o
}

func (o LinearOptions) withDefaults() LinearOptions {
	if o.Epochs <= 0 {
		o.Epochs = 500
	}
	if o.LearningRate <= 0 {
		o.LearningRate = 0.1
	}
	if o.L2 < 0 {
		o.L2 = 0
	}
	return o
}

func checkTrainingSet(x [][]float64, n int) (int, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("empty training set")
	}
	if len(x) != n {
		return 0, fmt.Errorf("features and labels size mismatch: %d vs %d", len(x), n)
	}
	d := len(x[0])
	for i, row := range x {
		if len(row) != d {
			return 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), d)
		}
	}
	return d, nil
}

func indexLabels(labels []any) ([]any, []int) {
	classes := UniqueSorted(labels)
	pos := make(map[any]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = pos[l]
	}
	return classes, y
}

type treeBuilder struct {
	x     [][]float64
	y     []int
	k     int
	opts  TreeOptions
	nodes []TreeNode
}

// TrainTree grows a CART classification tree using Gini impurity.
func TrainTree(x [][]float64, labels []any, opts TreeOptions) (Spec, error) {
	d, err := checkTrainingSet(x, len(labels))
	if err != nil {
		return Spec{}, err
	}
	classes, y := indexLabels(labels)
	b := &treeBuilder{x: x, y: y, k: len(classes), opts: opts.withDefaults()}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	b.grow(idx, 0)
	return Spec{Type: TypeDecisionTree, Classes: classes, Features: d, Nodes: b.nodes}, nil
}

func (b *treeBuilder) counts(idx []int) []int {
	c := make([]int, b.k)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func gini(c []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, v := range c {
		p := float64(v) / float64(n)
		g -= p * p
	}
	return g
}

// grow appends the subtree for idx in pre-order and returns its root index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{})
	c := b.counts(idx)
	dist := make([]float64, b.k)
	best := 0
	for i, v := range c {
		dist[i] = float64(v) / float64(len(idx))
		if v > c[best] {
			best = i
		}
	}
	leaf := TreeNode{Leaf: true, Class: best, Dist: dist, Left: -1, Right: -1, Feature: -1}
	if depth >= b.opts.MaxDepth || len(idx) < b.opts.MinSamplesSplit || c[best] == len(idx) {
		b.nodes[pos] = leaf
		return pos
	}
	feat, thr, ok := b.bestSplit(idx, gini(c, len(idx)))
	if !ok {
		b.nodes[pos] = leaf
		return pos
	}
	var left, right []int
	for _, i := range idx {
		if b.x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[pos] = TreeNode{Feature: feat, Threshold: thr, Left: l, Right: r, Class: best}
	return pos
}

func (b *treeBuilder) bestSplit(idx []int, parent float64) (int, float64, bool) {
	n := len(idx)
	bestFeat, bestThr, bestImp := -1, 0.0, parent
	sorted := append([]int(nil), idx...)
	for f := range b.x[idx[0]] {
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })
		left := make([]int, b.k)
		right := b.counts(sorted)
		for i := 0; i < n-1; i++ {
			cls := b.y[sorted[i]]
			left[cls]++
			right[cls]--
			v, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if v == next {
				continue
			}
			nl, nr := i+1, n-i-1
			imp := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
			if imp < bestImp-1e-12 {
				bestFeat, bestThr, bestImp = f, (v+next)/2, imp
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

// TrainLogistic fits a logistic regression by batch gradient descent. Two
// classes yield a single sigmoid row, more yield a softmax model.
func TrainLogistic(x [][]float64, labels []any, opts LinearOptions) (Spec, error) {
	d, err := checkTrainingSet(x, len(labels))
	if err != nil {
		return Spec{}, err
	}
	classes, y := indexLabels(labels)
	if len(classes) < 2 {
		return Spec{}, fmt.Errorf("logistic: need at least 2 classes, got %d", len(classes))
	}
	o := opts.withDefaults()
	rows := 1
	if len(classes) > 2 {
		rows = len(classes)
	}
	w := make([][]float64, rows)
	for k := range w {
		w[k] = make([]float64, d)
	}
	bias := make([]float64, rows)
	n := float64(len(x))
	m := &Logistic{coef: w, intercept: bias, classes: classes}
	for epoch := 0; epoch < o.Epochs; epoch++ {
		probs, _ := m.PredictProba(x)
		gw := make([][]float64, rows)
		for k := range gw {
			gw[k] = make([]float64, d)
		}
		gb := make([]float64, rows)
		for i, row := range x {
			for k := 0; k < rows; k++ {
				var p, target float64
				if rows == 1 {
					p = probs[i][1]
					if y[i] == 1 {
						target = 1
					}
				} else {
					p = probs[i][k]
					if y[i] == k {
						target = 1
					}
				}
				g := p - target
				for j, v := range row {
					gw[k][j] += g * v
				}
				gb[k] += g
			}
		}
		for k := 0; k < rows; k++ {
			for j := range w[k] {
				w[k][j] -= o.LearningRate * (gw[k][j]/n + o.L2*w[k][j])
			}
			bias[k] -= o.LearningRate * gb[k] / n
		}
	}
	return Spec{Type: TypeLogistic, Classes: classes, Features: d, Coef: w, Intercept: bias}, nil
}

// TrainLinear fits a linear regressor on numeric targets by gradient descent
// on the mean squared error.
func TrainLinear(x [][]float64, targets []float64, opts LinearOptions) (Spec, error) {
	d, err := checkTrainingSet(x, len(targets))
	if err != nil {
		return Spec{}, err
	}
	o := opts.withDefaults()
	w := make([]float64, d)
	var b float64
	n := float64(len(x))
	for epoch := 0; epoch < o.Epochs; epoch++ {
		gw := make([]float64, d)
		var gb float64
		for i, row := range x {
			g := dot(w, row) + b - targets[i]
			for j, v := range row {
				gw[j] += g * v
			}
			gb += g
		}
		for j := range w {
			w[j] -= o.LearningRate * (gw[j]/n + o.L2*w[j])
		}
		b -= o.LearningRate * gb / n
	}
	return Spec{Type: TypeLinear, Features: d, Coef: [][]float64{w}, Intercept: []float64{b}}, nil
}

// TrainTestSplit shuffles 0..n-1 with seed and holds out testFraction of them.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	if testFraction <= 0 || n < 2 {
		return perm, nil
	}
	nt := int(float64(n)*testFraction + 0.5)
	if nt < 1 {
		nt = 1
	}
	if nt >= n {
		nt = n - 1
	}
	return perm[nt:], perm[:nt]
}

// Accuracy is the fraction of equal pairs. Empty input scores 0.
func Accuracy(pred, want []any) float64 {
	if len(pred) == 0 || len(pred) != len(want) {
		return 0
	}
	hits := 0
	for i := range pred {
		if pred[i] == want[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(pred))
}
