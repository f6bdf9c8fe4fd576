package encoder

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func germanEncoder(t *testing.T, normalize bool) *CatEncoder {
	t.Helper()
	e, err := NewCatEncoder(
		[]string{"status", "duration", "purpose", "amount"},
		[]CategoricalColumn{
			{Name: "status", Categories: []string{"A11", "A12", "A14"}},
			{Name: "purpose", Categories: []string{"A40", "A43"}},
		},
		normalize,
	)
	if err != nil {
		t.Fatalf("NewCatEncoder: %v", err)
	}
	return e
}

func TestCatEncoder_Layout(t *testing.T) {
	e := germanEncoder(t, false)
	if e.Width() != 7 {
		t.Fatalf("width=%d, want 7", e.Width())
	}
	got, err := e.Encode([][]any{{"A12", 6.0, "A43", "1169"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []float64{6, 1169, 0, 1, 0, 0, 1}
	for i := range want {
		if got[0][i] != want[i] {
			t.Fatalf("encoded=%v, want %v", got[0], want)
		}
	}
	names := e.TransformedFeatures()
	wantNames := []string{"duration", "amount", "status_A11", "status_A12", "status_A14", "purpose_A40", "purpose_A43"}
	for i := range wantNames {
		if names[i] != wantNames[i] {
			t.Fatalf("features=%v, want %v", names, wantNames)
		}
	}
}

func TestCatEncoder_Normalize(t *testing.T) {
	e := germanEncoder(t, true)
	got, err := e.Encode([][]any{{"A11", 3, "A40", 4}, {"A11", 0, "A40", 0}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if math.Abs(got[0][0]-0.6) > 1e-12 || math.Abs(got[0][1]-0.8) > 1e-12 {
		t.Fatalf("normalized=%v", got[0][:2])
	}
	if got[1][0] != 0 || got[1][1] != 0 {
		t.Fatalf("zero row should stay zero: %v", got[1])
	}
	// one-hot block untouched by normalization
	if got[0][2] != 1 || got[0][5] != 1 {
		t.Fatalf("one-hot=%v", got[0][2:])
	}
}

func TestCatEncoder_InputErrors(t *testing.T) {
	e := germanEncoder(t, false)
	cases := [][]any{
		{"A11", 1, "A40"},               // short row
		{"A99", 1, "A40", 10},           // unknown category
		{"A11", "abc", "A40", 10},       // non-numeric
		{"A11", nil, "A40", 10},         // missing
		{"A11", "NaN", "A40", 10},       // not finite
		{"A11", "-inf", "A40", 10},      // not finite
		{"A11", math.Inf(1), "A40", 10}, // not finite
	}
	for _, row := range cases {
		_, err := e.Encode([][]any{row})
		var ie *InputError
		if !errors.As(err, &ie) {
			t.Fatalf("row %v: expected InputError, got %v", row, err)
		}
		if ie.StatusCode() != 400 {
			t.Fatalf("status=%d", ie.StatusCode())
		}
	}
}

func TestCatEncoder_CatIndexesOfFeature(t *testing.T) {
	e := germanEncoder(t, false)
	idx, err := e.CatIndexesOfFeature("purpose")
	if err != nil {
		t.Fatalf("CatIndexesOfFeature: %v", err)
	}
	if idx["A40"] != 5 || idx["A43"] != 6 {
		t.Fatalf("indexes=%v", idx)
	}
	if _, err := e.CatIndexesOfFeature("amount"); err == nil {
		t.Fatalf("expected error for numeric column")
	}
}

func TestFit_SortsCategoriesAndRoundTripsSpec(t *testing.T) {
	cols := []string{"color", "size"}
	rows := [][]string{{"red", "1"}, {"blue", "2"}, {"red", "3"}}
	e, err := Fit(cols, rows, []string{"color"}, false)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	spec := e.Spec()
	if spec.Categorical[0].Categories[0] != "blue" || spec.Categorical[0].Categories[1] != "red" {
		t.Fatalf("categories=%v", spec.Categorical[0].Categories)
	}
	b, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Spec
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	enc, err := Build(&back)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out, err := enc.Encode([][]any{{"red", 2}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(out[0]) != 3 || out[0][0] != 2 || out[0][2] != 1 {
		t.Fatalf("encoded=%v", out[0])
	}
	if _, err := Fit(cols, rows, []string{"weight"}, false); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestNewCatEncoder_Validation(t *testing.T) {
	if _, err := NewCatEncoder(nil, nil, false); err == nil {
		t.Fatalf("expected error for no columns")
	}
	if _, err := NewCatEncoder([]string{"a"}, []CategoricalColumn{{Name: "b", Categories: []string{"x"}}}, false); err == nil {
		t.Fatalf("expected error for unknown categorical column")
	}
	if _, err := NewCatEncoder([]string{"a"}, []CategoricalColumn{{Name: "a"}}, false); err == nil {
		t.Fatalf("expected error for empty categories")
	}
}

func TestNumeric_CastsAndChecksWidth(t *testing.T) {
	n := Numeric{Columns: []string{"a", "b"}}
	got, err := n.Encode([][]any{{"1.5", json.Number("2")}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got[0][0] != 1.5 || got[0][1] != 2 {
		t.Fatalf("got %v", got[0])
	}
	if _, err := n.Encode([][]any{{1}}); err == nil {
		t.Fatalf("expected width error")
	}
	if _, err := (Numeric{}).Encode([][]any{{1, 2, 3}}); err != nil {
		t.Fatalf("unbounded numeric encoder: %v", err)
	}
	for _, v := range []any{"NaN", "Inf", "-inf", json.Number("NaN"), math.NaN(), math.Inf(-1)} {
		_, err := n.Encode([][]any{{v, 1.0}})
		var ie *InputError
		if !errors.As(err, &ie) || ie.Col != 0 {
			t.Fatalf("%v: expected InputError on column 0, got %v", v, err)
		}
	}
}

func TestNumeric_CastSubset(t *testing.T) {
	enc, err := Build(&Spec{Type: TypeNumeric, Columns: []string{"amount", "status_te"}, Cast: []string{"status_te"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := enc.Encode([][]any{{1200.0, "0.35"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got[0][0] != 1200 || got[0][1] != 0.35 {
		t.Fatalf("got %v", got[0])
	}
	_, err = enc.Encode([][]any{{"1200", "0.35"}})
	var ie *InputError
	if !errors.As(err, &ie) || ie.Col != 0 {
		t.Fatalf("expected InputError for string in a non-cast column, got %v", err)
	}
	if _, err := NewNumeric([]string{"a"}, []string{"b"}); err == nil {
		t.Fatalf("expected error for unknown cast column")
	}
	if _, err := NewNumeric(nil, []string{"a"}); err == nil {
		t.Fatalf("expected error for cast without columns")
	}
}

func TestCategoryKey(t *testing.T) {
	cases := map[any]string{1.0: "1", 2: "2", 0.5: "0.5", "A11": "A11", true: "true", 1e20: "100000000000000000000"}
	for in, want := range cases {
		got, err := CategoryKey(in)
		if err != nil || got != want {
			t.Fatalf("CategoryKey(%v) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestDecoder(t *testing.T) {
	got := Decoder{Threshold: 0.5}.Decode([]float64{0.2, 0.5, 0.51})
	if got[0] != 0 || got[1] != 0 || got[2] != 1 {
		t.Fatalf("decoded=%v", got)
	}
}

func TestBuild_UnknownType(t *testing.T) {
	if _, err := Build(&Spec{Type: "hash"}); err == nil {
		t.Fatalf("expected error")
	}
	enc, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if _, ok := enc.(Numeric); !ok {
		t.Fatalf("expected Numeric, got %T", enc)
	}
}
