package model

import (
	"fmt"

	"predictd/internal/encoder"
)

type segment struct {
	name   string
	column int
	model  Predictor
}

// Segmented routes each row to the first segment whose indicator column is
// set and scores it with that segment's model.
type Segmented struct {
	segments []segment
}

// SoftSegmented is a Segmented model whose segments all expose scores over
// the same classes.
type SoftSegmented struct {
	*Segmented
	classes []any
}

func buildSegmented(s Spec) (Predictor, error) {
	if len(s.Segments) == 0 {
		return nil, fmt.Errorf("segmented: no segments")
	}
	seg := &Segmented{}
	allSoft := true
	var classes []any
	for i, sp := range s.Segments {
		if sp.Column < 0 {
			return nil, fmt.Errorf("segmented: segment %d has negative column", i)
		}
		m, err := Build(sp.Model)
		if err != nil {
			return nil, fmt.Errorf("segmented: segment %d: %w", i, err)
		}
		seg.segments = append(seg.segments, segment{name: sp.Name, column: sp.Column, model: m})
		sm, ok := m.(SoftPredictor)
		if !ok {
			allSoft = false
			continue
		}
		if classes == nil {
			classes = sm.Classes()
		} else if !sameLabels(classes, sm.Classes()) {
			allSoft = false
		}
	}
	if allSoft {
		return &SoftSegmented{Segmented: seg, classes: classes}, nil
	}
	return seg, nil
}

// route groups row indexes by segment.
func (s *Segmented) route(x [][]float64) ([][]int, error) {
	groups := make([][]int, len(s.segments))
	for i, row := range x {
		matched := false
		for k, sg := range s.segments {
			if sg.column < len(row) && row[sg.column] > 0.5 {
				groups[k] = append(groups[k], i)
				matched = true
				break
			}
		}
		if !matched {
			return nil, &encoder.InputError{Row: i, Col: -1, Msg: "row matches no model segment"}
		}
	}
	return groups, nil
}

func subset(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func (s *Segmented) Predict(x [][]float64) ([]any, error) {
	groups, err := s.route(x)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(x))
	for k, idx := range groups {
		if len(idx) == 0 {
			continue
		}
		preds, err := s.segments[k].model.Predict(subset(x, idx))
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", k, err)
		}
		for i, j := range idx {
			out[j] = preds[i]
		}
	}
	return out, nil
}

func (s *SoftSegmented) PredictProba(x [][]float64) ([][]float64, error) {
	groups, err := s.route(x)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for k, idx := range groups {
		if len(idx) == 0 {
			continue
		}
		probs, err := s.segments[k].model.(SoftPredictor).PredictProba(subset(x, idx))
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", k, err)
		}
		for i, j := range idx {
			out[j] = probs[i]
		}
	}
	return out, nil
}

func (s *SoftSegmented) Classes() []any { return append([]any(nil), s.classes...) }

func sameLabels(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if fmt.Sprint(a[i]) != fmt.Sprint(b[i]) {
			return false
		}
	}
	return true
}
