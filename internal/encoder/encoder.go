// Package encoder turns raw request rows (numbers and category strings) into
// the numeric feature matrix a model consumes.
package encoder

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encoder converts a batch of raw rows into numeric features.
type Encoder interface {
	Encode(rows [][]any) ([][]float64, error)
}

// InputError reports a row value that cannot be encoded. The HTTP layer maps
// it to 400.
type InputError struct {
	Row int
	Col int
	Msg string
}

func (e *InputError) Error() string {
	if e.Col < 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Msg)
	}
	return fmt.Sprintf("row %d, column %d: %s", e.Row, e.Col, e.Msg)
}

// StatusCode implements the HTTP error contract of the API layer.
func (e *InputError) StatusCode() int { return 400 }

const (
	TypeCategorical = "cat"
	TypeNumeric     = "numeric"
)

// Spec is the serialisable form of an encoder stored inside a bundle.
type Spec struct {
	Type        string              `json:"type" yaml:"type" toml:"type"`
	Columns     []string            `json:"columns,omitempty" yaml:"columns,omitempty" toml:"columns,omitempty"`
	Categorical []CategoricalColumn `json:"categorical,omitempty" yaml:"categorical,omitempty" toml:"categorical,omitempty"`
	Normalize   bool                `json:"normalize,omitempty" yaml:"normalize,omitempty" toml:"normalize,omitempty"`
	// Cast lists the numeric-encoder columns that may arrive as numeric
	// strings, such as target-encoded categories. Empty casts every column.
	Cast        []string            `json:"cast,omitempty" yaml:"cast,omitempty" toml:"cast,omitempty"`
}

// CategoricalColumn lists the known categories of one input column in
// one-hot order.
type CategoricalColumn struct {
	Name       string   `json:"name" yaml:"name" toml:"name"`
	Categories []string `json:"categories" yaml:"categories" toml:"categories"`
}

// Build returns the encoder described by spec. A nil spec means rows are
// already numeric.
func Build(spec *Spec) (Encoder, error) {
	if spec == nil {
		return Numeric{}, nil
	}
	switch spec.Type {
	case TypeCategorical:
		return NewCatEncoder(spec.Columns, spec.Categorical, spec.Normalize)
	case TypeNumeric, "":
		return NewNumeric(spec.Columns, spec.Cast)
	default:
		return nil, fmt.Errorf("unknown encoder type: %q", spec.Type)
	}
}

// Numeric casts values to float64. When Columns is set each row must have
// exactly that many values. Built by NewNumeric with a cast list, only the
// listed columns accept numeric strings and the rest must be numbers.
type Numeric struct {
	Columns []string
	cast    map[int]bool
}

// NewNumeric returns a numeric encoder that parses strings only in the cast
// columns. An empty cast list casts every column.
func NewNumeric(columns, cast []string) (Numeric, error) {
	n := Numeric{Columns: columns}
	if len(cast) == 0 {
		return n, nil
	}
	if len(columns) == 0 {
		return Numeric{}, fmt.Errorf("numeric encoder: cast columns need the column list")
	}
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	n.cast = make(map[int]bool, len(cast))
	for _, c := range cast {
		i, ok := pos[c]
		if !ok {
			return Numeric{}, fmt.Errorf("numeric encoder: unknown cast column %q", c)
		}
		n.cast[i] = true
	}
	return n, nil
}

func (n Numeric) Encode(rows [][]any) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(n.Columns) > 0 && len(row) != len(n.Columns) {
			return nil, &InputError{Row: i, Col: -1, Msg: fmt.Sprintf("expected %d values, got %d", len(n.Columns), len(row))}
		}
		vec := make([]float64, len(row))
		for j, v := range row {
			if str, ok := v.(string); ok && n.cast != nil && !n.cast[j] {
				return nil, &InputError{Row: i, Col: j, Msg: fmt.Sprintf("expected a number, got %q", str)}
			}
			f, err := ToFloat(v)
			if err != nil {
				return nil, &InputError{Row: i, Col: j, Msg: err.Error()}
			}
			vec[j] = f
		}
		out[i] = vec
	}
	return out, nil
}

// ToFloat converts a decoded JSON/YAML scalar to a finite float64.
func ToFloat(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

// CategoryKey renders a scalar the way category names are stored: integral
// numbers lose their fractional part so 1.0 matches category "1".
func CategoryKey(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case nil:
		return "", fmt.Errorf("missing value")
	case bool:
		return strconv.FormatBool(x), nil
	}
	f, err := ToFloat(v)
	if err != nil {
		return "", err
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Decoder turns a vector of scores into 0/1 decisions.
type Decoder struct {
	Threshold float64
}

// Decode returns 1 where score > Threshold and 0 elsewhere.
func (d Decoder) Decode(scores []float64) []int {
	out := make([]int, len(scores))
	for i, s := range scores {
		if s > d.Threshold {
			out[i] = 1
		}
	}
	return out
}
