package model

import (
	"fmt"
)

// TreeNode is one node of a flattened decision tree. Rows with
// x[Feature] <= Threshold go Left.
type TreeNode struct {
	Feature   int       `json:"feature" yaml:"feature" toml:"feature"`
	Threshold float64   `json:"threshold" yaml:"threshold" toml:"threshold"`
	Left      int       `json:"left" yaml:"left" toml:"left"`
	Right     int       `json:"right" yaml:"right" toml:"right"`
	Leaf      bool      `json:"leaf,omitempty" yaml:"leaf,omitempty" toml:"leaf,omitempty"`
	Class     int       `json:"class" yaml:"class" toml:"class"`
	Dist      []float64 `json:"dist,omitempty" yaml:"dist,omitempty" toml:"dist,omitempty"`
}

// DecisionTree is a classification tree over encoded features.
type DecisionTree struct {
	nodes    []TreeNode
	classes  []any
	features int
}

func buildTree(s Spec) (Predictor, error) {
	if len(s.Nodes) == 0 {
		return nil, fmt.Errorf("decision tree: no nodes")
	}
	if len(s.Classes) == 0 {
		return nil, fmt.Errorf("decision tree: no classes")
	}
	for i, n := range s.Nodes {
		if n.Leaf {
			if n.Class < 0 || n.Class >= len(s.Classes) {
				return nil, fmt.Errorf("decision tree: node %d class %d out of range", i, n.Class)
			}
			if len(n.Dist) != 0 && len(n.Dist) != len(s.Classes) {
				return nil, fmt.Errorf("decision tree: node %d has %d scores for %d classes", i, len(n.Dist), len(s.Classes))
			}
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(s.Nodes) || n.Right >= len(s.Nodes) {
			return nil, fmt.Errorf("decision tree: node %d has invalid children", i)
		}
		if n.Feature < 0 || (s.Features > 0 && n.Feature >= s.Features) {
			return nil, fmt.Errorf("decision tree: node %d feature %d out of range", i, n.Feature)
		}
	}
	return &DecisionTree{nodes: s.Nodes, classes: s.Classes, features: s.Features}, nil
}

// leaf walks x down the tree. Children always have larger indexes than their
// parent, so the walk terminates.
func (t *DecisionTree) leaf(x []float64) (TreeNode, error) {
	idx := 0
	for {
		n := t.nodes[idx]
		if n.Leaf {
			return n, nil
		}
		if n.Feature >= len(x) {
			return TreeNode{}, fmt.Errorf("feature index %d out of range", n.Feature)
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

func (t *DecisionTree) Predict(x [][]float64) ([]any, error) {
	if err := checkWidth(x, t.features); err != nil {
		return nil, err
	}
	out := make([]any, len(x))
	for i, row := range x {
		n, err := t.leaf(row)
		if err != nil {
			return nil, err
		}
		out[i] = t.classes[n.Class]
	}
	return out, nil
}

func (t *DecisionTree) PredictProba(x [][]float64) ([][]float64, error) {
	if err := checkWidth(x, t.features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		n, err := t.leaf(row)
		if err != nil {
			return nil, err
		}
		p := make([]float64, len(t.classes))
		if len(n.Dist) == 0 {
			p[n.Class] = 1
		} else {
			copy(p, n.Dist)
		}
		out[i] = p
	}
	return out, nil
}

func (t *DecisionTree) Classes() []any { return append([]any(nil), t.classes...) }
