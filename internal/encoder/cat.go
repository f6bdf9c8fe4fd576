package encoder

import (
	"fmt"
	"math"
	"sort"
)

// CatEncoder one-hot encodes categorical columns and passes numeric columns
// through, optionally scaling each row's numeric part to unit L2 norm.
// Encoded rows are laid out as all numeric columns (input order) followed by
// the one-hot blocks (input order, categories in declared order).
type CatEncoder struct {
	columns   []string
	numIdx    []int
	catIdx    []int
	cats      [][]string
	lookup    []map[string]int
	normalize bool
}

// NewCatEncoder validates that every categorical column exists in columns and
// has at least one category.
func NewCatEncoder(columns []string, categorical []CategoricalColumn, normalize bool) (*CatEncoder, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("cat encoder: no columns")
	}
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := pos[c]; dup {
			return nil, fmt.Errorf("cat encoder: duplicate column %q", c)
		}
		pos[c] = i
	}
	catCats := make(map[int][]string, len(categorical))
	for _, cc := range categorical {
		i, ok := pos[cc.Name]
		if !ok {
			return nil, fmt.Errorf("cat encoder: categorical column %q not in columns", cc.Name)
		}
		if len(cc.Categories) == 0 {
			return nil, fmt.Errorf("cat encoder: column %q has no categories", cc.Name)
		}
		catCats[i] = cc.Categories
	}
	e := &CatEncoder{columns: append([]string(nil), columns...), normalize: normalize}
	for i := range columns {
		cats, isCat := catCats[i]
		if !isCat {
			e.numIdx = append(e.numIdx, i)
			continue
		}
		lk := make(map[string]int, len(cats))
		for j, c := range cats {
			if _, dup := lk[c]; dup {
				return nil, fmt.Errorf("cat encoder: column %q repeats category %q", columns[i], c)
			}
			lk[c] = j
		}
		e.catIdx = append(e.catIdx, i)
		e.cats = append(e.cats, append([]string(nil), cats...))
		e.lookup = append(e.lookup, lk)
	}
	return e, nil
}

// Fit derives the categories of catColumns from string data. Categories are
// sorted so the same data always yields the same layout.
func Fit(columns []string, rows [][]string, catColumns []string, normalize bool) (*CatEncoder, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	categorical := make([]CategoricalColumn, 0, len(catColumns))
	for _, name := range catColumns {
		i, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("fit: unknown column %q", name)
		}
		seen := map[string]struct{}{}
		for r, row := range rows {
			if i >= len(row) {
				return nil, fmt.Errorf("fit: row %d has %d values, want %d", r, len(row), len(columns))
			}
			seen[row[i]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		categorical = append(categorical, CategoricalColumn{Name: name, Categories: cats})
	}
	return NewCatEncoder(columns, categorical, normalize)
}

// Width is the number of encoded features per row.
func (e *CatEncoder) Width() int {
	n := len(e.numIdx)
	for _, c := range e.cats {
		n += len(c)
	}
	return n
}

// Columns returns the expected input columns.
func (e *CatEncoder) Columns() []string { return append([]string(nil), e.columns...) }

func (e *CatEncoder) Encode(rows [][]any) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for r, row := range rows {
		if len(row) != len(e.columns) {
			return nil, &InputError{Row: r, Col: -1, Msg: fmt.Sprintf("expected %d values, got %d", len(e.columns), len(row))}
		}
		vec := make([]float64, e.Width())
		for k, i := range e.numIdx {
			f, err := ToFloat(row[i])
			if err != nil {
				return nil, &InputError{Row: r, Col: i, Msg: err.Error()}
			}
			vec[k] = f
		}
		if e.normalize {
			l2Normalize(vec[:len(e.numIdx)])
		}
		off := len(e.numIdx)
		for k, i := range e.catIdx {
			key, err := CategoryKey(row[i])
			if err != nil {
				return nil, &InputError{Row: r, Col: i, Msg: err.Error()}
			}
			j, ok := e.lookup[k][key]
			if !ok {
				return nil, &InputError{Row: r, Col: i, Msg: fmt.Sprintf("unknown category %q for column %q", key, e.columns[i])}
			}
			vec[off+j] = 1
			off += len(e.cats[k])
		}
		out[r] = vec
	}
	return out, nil
}

// TransformedFeatures names the encoded features: numeric column names, then
// "<column>_<category>" for each one-hot slot.
func (e *CatEncoder) TransformedFeatures() []string {
	out := make([]string, 0, e.Width())
	for _, i := range e.numIdx {
		out = append(out, e.columns[i])
	}
	for k, i := range e.catIdx {
		for _, c := range e.cats[k] {
			out = append(out, e.columns[i]+"_"+c)
		}
	}
	return out
}

// CatIndexesOfFeature maps each category of a categorical input column to its
// index in the encoded row.
func (e *CatEncoder) CatIndexesOfFeature(feature string) (map[string]int, error) {
	off := len(e.numIdx)
	for k, i := range e.catIdx {
		if e.columns[i] == feature {
			out := make(map[string]int, len(e.cats[k]))
			for j, c := range e.cats[k] {
				out[c] = off + j
			}
			return out, nil
		}
		off += len(e.cats[k])
	}
	return nil, fmt.Errorf("%q is not a categorical column", feature)
}

// Spec returns the serialisable description of e.
func (e *CatEncoder) Spec() *Spec {
	s := &Spec{Type: TypeCategorical, Columns: e.Columns(), Normalize: e.normalize}
	for k, i := range e.catIdx {
		s.Categorical = append(s.Categorical, CategoricalColumn{Name: e.columns[i], Categories: append([]string(nil), e.cats[k]...)})
	}
	return s
}

func l2Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}
