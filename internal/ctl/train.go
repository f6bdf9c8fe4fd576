package ctl

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"predictd/internal/bundle"
	"predictd/internal/common/fsutil"
	"predictd/internal/encoder"
	"predictd/internal/model"
	"predictd/internal/wrapper"
)

const (
	AlgoTree     = "tree"
	AlgoLogistic = "logistic"
)

// TrainOptions configure the train command.
type TrainOptions struct {
	Data string
	// Label is the target column; the last column when empty.
	Label        string
	Categorical  []string
	Algorithm    string
	TestFraction float64
	Seed         int64
	MaxDepth     int
	Epochs       int
	Normalize    bool
	Name         string
	Out          string
}

// TrainResult summarises a trained bundle.
type TrainResult struct {
	Path      string
	Rows      int
	TestRows  int
	Accuracy  float64
	Classes   []any
	Algorithm string
}

// readCSV returns the header and data rows of a CSV file.
func readCSV(path string) ([]string, [][]string, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: no data rows", path)
	}
	return header, rows, nil
}

// labelValues keeps labels as strings unless every one parses as a number.
// Numbers are float64 so they compare equal after a JSON round trip.
func labelValues(raw []string) []any {
	out := make([]any, len(raw))
	nums := make([]float64, len(raw))
	numeric := true
	for i, s := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
	}
	for i, s := range raw {
		if numeric {
			out[i] = nums[i]
		} else {
			out[i] = s
		}
	}
	return out
}

func train(opts TrainOptions) (TrainResult, error) {
	if opts.Out == "" {
		return TrainResult{}, fmt.Errorf("--out is required")
	}
	header, rows, err := readCSV(opts.Data)
	if err != nil {
		return TrainResult{}, err
	}
	labelIdx := len(header) - 1
	if opts.Label != "" {
		labelIdx = -1
		for i, h := range header {
			if h == opts.Label {
				labelIdx = i
			}
		}
		if labelIdx < 0 {
			return TrainResult{}, fmt.Errorf("label column %q not in header", opts.Label)
		}
	}
	columns := make([]string, 0, len(header)-1)
	for i, h := range header {
		if i != labelIdx {
			columns = append(columns, h)
		}
	}
	features := make([][]string, len(rows))
	rawLabels := make([]string, len(rows))
	for r, row := range rows {
		if len(row) != len(header) {
			return TrainResult{}, fmt.Errorf("row %d has %d values, want %d", r+1, len(row), len(header))
		}
		rawLabels[r] = row[labelIdx]
		feat := make([]string, 0, len(columns))
		for i, v := range row {
			if i != labelIdx {
				feat = append(feat, v)
			}
		}
		features[r] = feat
	}

	enc, err := encoder.Fit(columns, features, opts.Categorical, opts.Normalize)
	if err != nil {
		return TrainResult{}, err
	}
	asAny := make([][]any, len(features))
	for i, row := range features {
		a := make([]any, len(row))
		for j, v := range row {
			a[j] = v
		}
		asAny[i] = a
	}
	x, err := enc.Encode(asAny)
	if err != nil {
		return TrainResult{}, err
	}
	labels := labelValues(rawLabels)

	trainIdx, testIdx := model.TrainTestSplit(len(x), opts.TestFraction, opts.Seed)
	pick := func(idx []int) ([][]float64, []any) {
		xs := make([][]float64, len(idx))
		ys := make([]any, len(idx))
		for i, j := range idx {
			xs[i], ys[i] = x[j], labels[j]
		}
		return xs, ys
	}
	xTrain, yTrain := pick(trainIdx)

	algo := strings.ToLower(opts.Algorithm)
	var spec model.Spec
	switch algo {
	case "", AlgoTree:
		algo = AlgoTree
		spec, err = model.TrainTree(xTrain, yTrain, model.TreeOptions{MaxDepth: opts.MaxDepth})
	case AlgoLogistic:
		spec, err = model.TrainLogistic(xTrain, yTrain, model.LinearOptions{Epochs: opts.Epochs})
	default:
		return TrainResult{}, fmt.Errorf("unknown algorithm %q (want tree|logistic)", opts.Algorithm)
	}
	if err != nil {
		return TrainResult{}, err
	}

	b := &bundle.Bundle{
		Name:               opts.Name,
		Model:              spec,
		Encoder:            enc.Spec(),
		Columns:            columns,
		Outcomes:           spec.Classes,
		SupportsSoftScores: true,
		CreatedUnix:        time.Now().Unix(),
	}
	if _, err := wrapper.NewSimple(b); err != nil {
		return TrainResult{}, fmt.Errorf("trained bundle is not servable: %w", err)
	}
	res := TrainResult{Rows: len(x), TestRows: len(testIdx), Classes: spec.Classes, Algorithm: algo}
	if len(testIdx) > 0 {
		xTest, yTest := pick(testIdx)
		pred, err := predictEncoded(spec, xTest)
		if err != nil {
			return TrainResult{}, err
		}
		res.Accuracy = model.Accuracy(pred, yTest)
		b.TestAccuracy = res.Accuracy
	}
	out, err := fsutil.ExpandHome(opts.Out)
	if err != nil {
		return TrainResult{}, err
	}
	if err := bundle.Save(out, b); err != nil {
		return TrainResult{}, err
	}
	res.Path = out
	return res, nil
}

func predictEncoded(spec model.Spec, x [][]float64) ([]any, error) {
	p, err := model.Build(spec)
	if err != nil {
		return nil, err
	}
	return p.Predict(x)
}
