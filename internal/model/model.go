// Package model holds the native model runtimes a bundle can describe and the
// small trainers used to produce them.
package model

import (
	"fmt"
	"sort"
	"sync"

	"predictd/internal/encoder"
)

// Predictor returns one prediction per encoded row.
type Predictor interface {
	Predict(x [][]float64) ([]any, error)
}

// SoftPredictor additionally exposes per-class scores. Score column i belongs
// to Classes()[i].
type SoftPredictor interface {
	Predictor
	PredictProba(x [][]float64) ([][]float64, error)
	Classes() []any
}

const (
	TypeDecisionTree = "decision_tree"
	TypeLogistic     = "logistic"
	TypeLinear       = "linear"
	TypeSegmented    = "segmented"
)

// Spec is the serialisable description of a model stored in a bundle. Only the
// fields relevant to Type are set.
type Spec struct {
	Type      string      `json:"type" yaml:"type" toml:"type"`
	Classes   []any       `json:"classes,omitempty" yaml:"classes,omitempty" toml:"classes,omitempty"`
	Features  int         `json:"features,omitempty" yaml:"features,omitempty" toml:"features,omitempty"`
	Nodes     []TreeNode  `json:"nodes,omitempty" yaml:"nodes,omitempty" toml:"nodes,omitempty"`
	Coef      [][]float64 `json:"coef,omitempty" yaml:"coef,omitempty" toml:"coef,omitempty"`
	Intercept []float64   `json:"intercept,omitempty" yaml:"intercept,omitempty" toml:"intercept,omitempty"`
	Segments  []Segment   `json:"segments,omitempty" yaml:"segments,omitempty" toml:"segments,omitempty"`
}

// Segment routes rows whose indicator Column is set (> 0.5) to Model.
type Segment struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Column int    `json:"column" yaml:"column" toml:"column"`
	Model  Spec   `json:"model" yaml:"model" toml:"model"`
}

// Builder constructs a Predictor from its Spec.
type Builder func(Spec) (Predictor, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{}
)

// The segmented builder calls Build for its sub-models, so the built-ins are
// registered here rather than in the map literal.
func init() {
	builders[TypeDecisionTree] = buildTree
	builders[TypeLogistic] = buildLogistic
	builders[TypeLinear] = buildLinear
	builders[TypeSegmented] = buildSegmented
}

// Register adds or replaces the builder for a model type.
func Register(typ string, b Builder) {
	buildersMu.Lock()
	builders[typ] = b
	buildersMu.Unlock()
}

// Build returns the runtime for spec.
func Build(spec Spec) (Predictor, error) {
	buildersMu.RLock()
	b, ok := builders[spec.Type]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model type: %q", spec.Type)
	}
	return b(spec)
}

func checkWidth(x [][]float64, want int) error {
	if want <= 0 {
		return nil
	}
	for i, row := range x {
		if len(row) != want {
			return &encoder.InputError{Row: i, Col: -1, Msg: fmt.Sprintf("expected %d features, got %d", want, len(row))}
		}
	}
	return nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// UniqueSorted returns the distinct labels in ascending order. Numbers sort
// numerically and before strings.
func UniqueSorted(labels []any) []any {
	seen := make(map[any]struct{}, len(labels))
	out := make([]any, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return labelLess(out[i], out[j]) })
	return out
}

func labelLess(a, b any) bool {
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	switch {
	case aNum && bNum:
		return fa < fb
	case aNum != bNum:
		return aNum
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}
