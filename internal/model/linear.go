package model

import (
	"fmt"
	"math"
)

// Logistic is a (multinomial) logistic regression classifier. A single
// coefficient row means a binary model whose scores are [1-p, p].
type Logistic struct {
	coef      [][]float64
	intercept []float64
	classes   []any
}

func buildLogistic(s Spec) (Predictor, error) {
	if len(s.Coef) == 0 {
		return nil, fmt.Errorf("logistic: no coefficients")
	}
	if len(s.Intercept) != len(s.Coef) {
		return nil, fmt.Errorf("logistic: %d intercepts for %d coefficient rows", len(s.Intercept), len(s.Coef))
	}
	switch {
	case len(s.Coef) == 1 && len(s.Classes) != 2:
		return nil, fmt.Errorf("logistic: binary model needs 2 classes, got %d", len(s.Classes))
	case len(s.Coef) > 1 && len(s.Coef) != len(s.Classes):
		return nil, fmt.Errorf("logistic: %d coefficient rows for %d classes", len(s.Coef), len(s.Classes))
	}
	width := len(s.Coef[0])
	for i, row := range s.Coef {
		if len(row) != width {
			return nil, fmt.Errorf("logistic: coefficient row %d has %d values, want %d", i, len(row), width)
		}
	}
	return &Logistic{coef: s.Coef, intercept: s.Intercept, classes: s.Classes}, nil
}

func (l *Logistic) PredictProba(x [][]float64) ([][]float64, error) {
	if err := checkWidth(x, len(l.coef[0])); err != nil {
		return nil, err
	}
	out := make([][]float64, len(x))
	for i, row := range x {
		if len(l.coef) == 1 {
			p := sigmoid(dot(l.coef[0], row) + l.intercept[0])
			out[i] = []float64{1 - p, p}
			continue
		}
		z := make([]float64, len(l.coef))
		for k := range l.coef {
			z[k] = dot(l.coef[k], row) + l.intercept[k]
		}
		out[i] = softmax(z)
	}
	return out, nil
}

func (l *Logistic) Predict(x [][]float64) ([]any, error) {
	probs, err := l.PredictProba(x)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(probs))
	for i, p := range probs {
		out[i] = l.classes[argmax(p)]
	}
	return out, nil
}

func (l *Logistic) Classes() []any { return append([]any(nil), l.classes...) }

// Linear is a least-squares style regressor: y = coef·x + intercept.
type Linear struct {
	coef      []float64
	intercept float64
}

func buildLinear(s Spec) (Predictor, error) {
	if len(s.Coef) != 1 || len(s.Coef[0]) == 0 {
		return nil, fmt.Errorf("linear: expected one coefficient row")
	}
	var b float64
	if len(s.Intercept) > 0 {
		b = s.Intercept[0]
	}
	return &Linear{coef: s.Coef[0], intercept: b}, nil
}

func (l *Linear) Predict(x [][]float64) ([]any, error) {
	if err := checkWidth(x, len(l.coef)); err != nil {
		return nil, err
	}
	out := make([]any, len(x))
	for i, row := range x {
		out[i] = dot(l.coef, row) + l.intercept
	}
	return out, nil
}

func dot(w, x []float64) float64 {
	var s float64
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softmax(z []float64) []float64 {
	m := z[0]
	for _, v := range z[1:] {
		if v > m {
			m = v
		}
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
