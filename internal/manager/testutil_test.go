package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"predictd/internal/bundle"
	"predictd/internal/model"
	"predictd/internal/wrapper"
	"predictd/pkg/types"
)

// fakePredictor answers each row with its index. When block is set, Predict
// waits for it to be closed (or ctx) before answering.
type fakePredictor struct {
	block  chan struct{}
	err    error
	calls  atomic.Int32
	closed atomic.Bool
}

func (f *fakePredictor) Predict(ctx context.Context, instances [][]any) (types.PredictionPayload, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return types.PredictionPayload{}, ctx.Err()
		}
	}
	if f.err != nil {
		return types.PredictionPayload{}, f.err
	}
	preds := make([]any, len(instances))
	for i := range instances {
		preds[i] = i
	}
	return types.PredictionPayload{Predictions: preds}, nil
}

func (f *fakePredictor) Close() error {
	f.closed.Store(true)
	return nil
}

var _ wrapper.Predictor = (*fakePredictor)(nil)

func staticLoader(p wrapper.Predictor) Loader {
	return func(context.Context, ServiceSpec) (Loaded, error) {
		return Loaded{Predictor: p}, nil
	}
}

// memRecorder keeps journal entries in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []types.JournalEntry
}

func (r *memRecorder) Record(_ context.Context, e types.JournalEntry) error {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	return nil
}

func (r *memRecorder) all() []types.JournalEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.JournalEntry(nil), r.entries...)
}

// writeTreeBundle saves a one-column stump: x <= threshold is "no", else "yes".
func writeTreeBundle(t *testing.T, dir, name string, threshold float64) string {
	t.Helper()
	b := &bundle.Bundle{
		Name:    name,
		Columns: []string{"x"},
		Model: model.Spec{
			Type:     model.TypeDecisionTree,
			Classes:  []any{"no", "yes"},
			Features: 1,
			Nodes: []model.TreeNode{
				{Feature: 0, Threshold: threshold, Left: 1, Right: 2},
				{Leaf: true, Class: 0},
				{Leaf: true, Class: 1},
			},
		},
	}
	p := filepath.Join(dir, name+".json")
	if err := bundle.Save(p, b); err != nil {
		t.Fatalf("save bundle: %v", err)
	}
	return p
}

func newStarted(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	m, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	_ = m.Start(testCtx(t))
	return m
}

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// newHostedModel serves the certifai schema, predicting 1 for every row.
func newHostedModel(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		preds := make([]any, len(req.Payload.Instances))
		for i := range preds {
			preds[i] = 1
		}
		_ = json.NewEncoder(w).Encode(types.PredictResponse{Payload: types.PredictionPayload{Predictions: preds}})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newFailingUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)
	return ts
}
