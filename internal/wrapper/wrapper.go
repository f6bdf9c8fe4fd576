// Package wrapper adapts a model bundle to the prediction contract: raw rows
// in, predictions (and optionally per-class scores) out.
package wrapper

import (
	"context"
	"fmt"

	"predictd/internal/bundle"
	"predictd/internal/encoder"
	"predictd/internal/model"
	"predictd/pkg/types"
)

// Predictor scores a batch of raw instances. Implemented by Simple and by the
// hosted-model proxy.
type Predictor interface {
	Predict(ctx context.Context, instances [][]any) (types.PredictionPayload, error)
	Close() error
}

// Simple serves a single bundle in-process.
type Simple struct {
	name      string
	enc       encoder.Encoder
	model     model.Predictor
	columns   []string
	labels    []any
	threshold *float64
	soft      bool
}

// NewSimple builds the encoder and model described by b.
func NewSimple(b *bundle.Bundle) (*Simple, error) {
	if b == nil {
		return nil, fmt.Errorf("nil bundle")
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	enc, err := encoder.Build(b.Encoder)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	m, err := model.Build(b.Model)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	sp, isSoft := m.(model.SoftPredictor)
	if b.SupportsSoftScores && !isSoft {
		return nil, fmt.Errorf("model type %q does not expose scores", b.Model.Type)
	}
	if isSoft && len(b.Outcomes) > 0 && len(sp.Classes()) > 1 && len(b.Outcomes) != len(sp.Classes()) {
		return nil, fmt.Errorf("%d outcome labels for %d model classes", len(b.Outcomes), len(sp.Classes()))
	}
	return &Simple{
		name:      b.Name,
		enc:       enc,
		model:     m,
		columns:   b.Columns,
		labels:    b.Outcomes,
		threshold: b.Threshold,
		soft:      b.SupportsSoftScores,
	}, nil
}

// SupportsSoftScores reports whether responses carry scores and labels.
func (s *Simple) SupportsSoftScores() bool { return s.soft }

func (s *Simple) Close() error { return nil }

func (s *Simple) Predict(ctx context.Context, instances [][]any) (types.PredictionPayload, error) {
	var out types.PredictionPayload
	if len(instances) == 0 {
		return out, ErrInvalidInput("payload.instances is empty")
	}
	if n := len(s.columns); n > 0 {
		for i, row := range instances {
			if len(row) != n {
				return out, ErrInvalidInput(fmt.Sprintf("instance %d has %d values, expected %d columns", i, len(row), n))
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	x, err := s.enc.Encode(instances)
	if err != nil {
		return out, err
	}
	sp, isSoft := s.model.(model.SoftPredictor)
	if !isSoft {
		preds, err := s.model.Predict(x)
		if err != nil {
			return out, err
		}
		out.Predictions = preds
		return out, nil
	}
	scores, err := sp.PredictProba(x)
	if err != nil {
		return out, err
	}
	labels := s.labels
	if len(labels) == 0 {
		labels = sp.Classes()
	}
	preds := make([]any, len(scores))
	for i, sc := range scores {
		if len(sc) == 1 && len(labels) == 2 {
			sc = []float64{1 - sc[0], sc[0]}
			scores[i] = sc
		}
		p, err := s.decide(sc, labels)
		if err != nil {
			return out, err
		}
		preds[i] = p
	}
	out.Predictions = preds
	if s.soft {
		out.Scores = scores
		out.Labels = labels
	}
	return out, nil
}

// decide maps one score vector to a prediction.
func (s *Simple) decide(sc []float64, labels []any) (any, error) {
	switch {
	case len(sc) == 0:
		return nil, fmt.Errorf("model returned no scores")
	case len(sc) == 1:
		// single column without two labels: regression output
		return sc[0], nil
	case len(labels) == 0:
		return nil, fmt.Errorf("no outcome labels for a %d-class model", len(sc))
	case len(labels) != len(sc):
		return nil, fmt.Errorf("%d outcome labels for %d scores", len(labels), len(sc))
	case s.threshold != nil && len(sc) == 2:
		if sc[1] >= *s.threshold {
			return labels[1], nil
		}
		return labels[0], nil
	default:
		best := 0
		for i := 1; i < len(sc); i++ {
			if sc[i] > sc[best] {
				best = i
			}
		}
		return labels[best], nil
	}
}
