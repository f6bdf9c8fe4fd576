package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"predictd/internal/config"
	"predictd/internal/manager"
	"predictd/internal/proxy"
	"predictd/internal/wrapper"
	"predictd/pkg/types"
)

// hostedModel answers the certifai schema with 0 for every row.
func hostedModel(t *testing.T, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		preds := make([]any, len(req.Payload.Instances))
		for i := range preds {
			preds[i] = 0
		}
		_ = json.NewEncoder(w).Encode(types.PredictResponse{Payload: types.PredictionPayload{Predictions: preds}})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func decodePredict(t *testing.T, body []byte) types.PredictResponse {
	t.Helper()
	var out types.PredictResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return out
}

// TestE2E_ComposedServices mounts a trained bundle and a hosted-model proxy on
// one server and drives them through the public HTTP contract.
func TestE2E_ComposedServices(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeCreditBundle(t, dir)
	hosted := hostedModel(t, http.StatusOK)
	st := newStack(t, manager.ManagerConfig{Services: []manager.ServiceSpec{
		{ID: "dtree", Source: bundlePath},
		{ID: "hosted", Kind: types.KindProxy, Proxy: proxy.Config{URL: hosted.URL}},
	}})

	resp, body := httpGet(t, st.srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz: %d %s", resp.StatusCode, body)
	}
	resp, body = httpGet(t, st.srv.URL+"/models")
	var models types.ModelsResponse
	if err := json.Unmarshal(body, &models); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("models: %d %s", resp.StatusCode, body)
	}
	if len(models.Models) != 2 || models.Models[0].ID != "dtree" || models.Models[1].Endpoint != "/hosted/predict" {
		t.Fatalf("unexpected models: %+v", models.Models)
	}

	resp, body = httpPostJSON(t, st.srv.URL+"/dtree/predict", []byte(`{"payload":{"instances":[["A11",6],["A14",24]]}}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dtree predict: %d %s", resp.StatusCode, body)
	}
	out := decodePredict(t, body)
	if len(out.Payload.Predictions) != 2 || out.Payload.Predictions[0] != 1.0 || out.Payload.Predictions[1] != 2.0 {
		t.Fatalf("unexpected predictions: %v", out.Payload.Predictions)
	}
	if len(out.Payload.Scores) != 2 || len(out.Payload.Labels) != 2 {
		t.Fatalf("expected soft scores: %+v", out.Payload)
	}

	resp, body = httpPostJSON(t, st.srv.URL+"/hosted/predict", []byte(`{"payload":{"instances":[[1,2],[3,4],[5,6]]}}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hosted predict: %d %s", resp.StatusCode, body)
	}
	if n := len(decodePredict(t, body).Payload.Predictions); n != 3 {
		t.Fatalf("expected 3 predictions, got %d", n)
	}

	// unknown category is a client error
	resp, body = httpPostJSON(t, st.srv.URL+"/dtree/predict", []byte(`{"payload":{"instances":[["A99",6]]}}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown category: %d %s", resp.StatusCode, body)
	}
	resp, _ = httpPost(t, st.srv.URL+"/dtree/predict", "text/plain", []byte(`{}`))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("content type: %d", resp.StatusCode)
	}
	resp, _ = httpPostJSON(t, st.srv.URL+"/nope/predict", []byte(`{"payload":{"instances":[[1]]}}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route: %d", resp.StatusCode)
	}

	resp, body = httpGet(t, st.srv.URL+"/journal?limit=10")
	var jr types.JournalResponse
	if err := json.Unmarshal(body, &jr); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("journal: %d %s", resp.StatusCode, body)
	}
	if len(jr.Entries) != 3 || jr.Entries[0].Status != http.StatusBadRequest {
		t.Fatalf("unexpected journal entries: %+v", jr.Entries)
	}

	_, body = httpGet(t, st.srv.URL+"/metrics")
	if !strings.Contains(string(body), "predictd_predictions_total") {
		t.Fatalf("metrics missing prediction counter")
	}
}

// TestE2E_SingleModelFromEnv follows the container layout: MODEL_PATH and
// METADATA_PATH select one bundle served at /predict.
func TestE2E_SingleModelFromEnv(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeCreditBundle(t, dir)
	md := filepath.Join(dir, "metadata.yml")
	if err := os.WriteFile(md, []byte("outcomes: [good, bad]\nsupports_soft_scoring: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MODEL_PATH", bundlePath)
	t.Setenv("METADATA_PATH", md)
	var cfg config.Config
	if err := config.ApplyEnv(&cfg); err != nil {
		t.Fatalf("env: %v", err)
	}
	cfg.ApplyDefaults()
	specs, err := cfg.ServiceSpecs()
	if err != nil {
		t.Fatalf("specs: %v", err)
	}
	st := newStack(t, manager.ManagerConfig{Services: specs})

	resp, body := httpPostJSON(t, st.srv.URL+"/predict", []byte(`{"payload":{"instances":[["A14",12]]}}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("predict: %d %s", resp.StatusCode, body)
	}
	out := decodePredict(t, body)
	if out.Payload.Predictions[0] != "bad" || out.Payload.Scores != nil {
		t.Fatalf("metadata overlay not applied: %+v", out.Payload)
	}
}

// TestE2E_UpstreamFailureIs502 checks that a hosted model answering 5xx after
// retries surfaces as a bad gateway.
func TestE2E_UpstreamFailureIs502(t *testing.T) {
	hosted := hostedModel(t, http.StatusServiceUnavailable)
	st := newStack(t, manager.ManagerConfig{Services: []manager.ServiceSpec{
		{ID: "hosted", Endpoint: "/predict", Kind: types.KindProxy, Proxy: proxy.Config{URL: hosted.URL, Retries: -1}},
	}})
	resp, body := httpPostJSON(t, st.srv.URL+"/predict", []byte(`{"payload":{"instances":[[1]]}}`))
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d %s", resp.StatusCode, body)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Code != http.StatusBadGateway {
		t.Fatalf("unexpected error body: %s", body)
	}
}

// TestE2E_FailedBundleIs503 keeps a broken service mounted but not ready.
func TestE2E_FailedBundleIs503(t *testing.T) {
	st := newStack(t, manager.ManagerConfig{Services: []manager.ServiceSpec{
		{ID: "broken", Source: filepath.Join(t.TempDir(), "missing.json")},
	}})
	resp, _ := httpGet(t, st.srv.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz: expected 503, got %d", resp.StatusCode)
	}
	resp, body := httpPostJSON(t, st.srv.URL+"/broken/predict", []byte(`{"payload":{"instances":[[1]]}}`))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("predict: expected 503, got %d %s", resp.StatusCode, body)
	}
}

// gatedPredictor blocks every call until release is closed.
type gatedPredictor struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	opened  sync.Once
}

func (g *gatedPredictor) open() { g.opened.Do(func() { close(g.release) }) }

func (g *gatedPredictor) Predict(ctx context.Context, instances [][]any) (types.PredictionPayload, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return types.PredictionPayload{}, ctx.Err()
	}
	return types.PredictionPayload{Predictions: make([]any, len(instances))}, nil
}

func (g *gatedPredictor) Close() error { return nil }

var _ wrapper.Predictor = (*gatedPredictor)(nil)

// TestE2E_Backpressure429 verifies a full admission queue answers 429.
func TestE2E_Backpressure429(t *testing.T) {
	g := &gatedPredictor{started: make(chan struct{}), release: make(chan struct{})}
	st := newStack(t, manager.ManagerConfig{
		Services:      []manager.ServiceSpec{{ID: "slow", Kind: types.KindBundle, Source: "unused"}},
		Workers:       1,
		MaxQueueDepth: 1,
		Loader: func(context.Context, manager.ServiceSpec) (manager.Loaded, error) {
			return manager.Loaded{Predictor: g}, nil
		},
	})

	t.Cleanup(g.open)

	first := make(chan int, 1)
	go func() {
		resp, err := http.Post(st.srv.URL+"/slow/predict", "application/json", strings.NewReader(`{"payload":{"instances":[[1]]}}`))
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-g.started

	resp, body := httpPostJSON(t, st.srv.URL+"/slow/predict", []byte(`{"payload":{"instances":[[1]]}}`))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while the only slot is busy, got %d %s", resp.StatusCode, body)
	}
	g.open()
	if code := <-first; code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
}
