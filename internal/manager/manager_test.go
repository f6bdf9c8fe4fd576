package manager

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"predictd/internal/proxy"
	"predictd/pkg/types"
)

func TestNewWithConfigDefaults(t *testing.T) {
	m, err := NewWithConfig(ManagerConfig{Services: []ServiceSpec{{ID: "a", Source: "a.json"}}})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if m.workers != defaultWorkers || m.maxQueueDepth != defaultMaxQueueDepth || m.maxWait != defaultMaxWait {
		t.Fatalf("defaults not applied: workers=%d depth=%d wait=%v", m.workers, m.maxQueueDepth, m.maxWait)
	}
	svcs := m.ListServices()
	if len(svcs) != 1 || svcs[0].Endpoint != "/a/predict" || svcs[0].Kind != types.KindBundle || svcs[0].Name != "a" {
		t.Fatalf("unexpected service info: %+v", svcs)
	}
	if m.Ready() {
		t.Fatalf("services are loading before Start")
	}
}

func TestNewWithConfig_PerServiceLimits(t *testing.T) {
	m, err := NewWithConfig(ManagerConfig{
		Workers: 4,
		Services: []ServiceSpec{
			{ID: "a", Source: "a.json"},
			{ID: "b", Source: "b.json", Workers: 2, MaxQueueDepth: 1},
		},
	})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	st := m.Status()
	if st.Services[0].Workers != 4 || st.Services[0].MaxQueueDepth != defaultMaxQueueDepth {
		t.Fatalf("service a limits: %+v", st.Services[0])
	}
	// the queue always fits the workers
	if st.Services[1].Workers != 2 || st.Services[1].MaxQueueDepth != 2 {
		t.Fatalf("service b limits: %+v", st.Services[1])
	}
}

func TestNewWithConfig_Rejects(t *testing.T) {
	cases := map[string][]ServiceSpec{
		"empty id":          {{Source: "a.json"}},
		"slash in id":       {{ID: "a/b", Source: "a.json"}},
		"duplicate id":      {{ID: "a", Source: "a.json"}, {ID: "a", Source: "b.json"}},
		"shared endpoint":   {{ID: "a", Source: "a.json", Endpoint: "/predict"}, {ID: "b", Source: "b.json", Endpoint: "/predict"}},
		"reserved endpoint": {{ID: "a", Source: "a.json", Endpoint: "/metrics"}},
		"missing source":    {{ID: "a"}},
		"unknown kind":      {{ID: "a", Source: "a.json", Kind: "grpc"}},
	}
	for name, specs := range cases {
		if _, err := NewWithConfig(ManagerConfig{Services: specs}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestStart_LoadsBundleAndPredicts(t *testing.T) {
	dir := t.TempDir()
	p := writeTreeBundle(t, dir, "stump", 3)
	pub := NewMemoryPublisher()
	m := newStarted(t, ManagerConfig{Services: []ServiceSpec{{ID: "stump", Source: p}}, Publisher: pub})
	if !m.Ready() {
		t.Fatalf("expected ready, status=%+v", m.Status())
	}
	out, err := m.Predict(testCtx(t), "stump", [][]any{{1}, {5}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if out.Predictions[0] != "no" || out.Predictions[1] != "yes" {
		t.Fatalf("predictions=%v", out.Predictions)
	}
	info := m.ListServices()[0]
	if len(info.Columns) != 1 || info.Columns[0] != "x" {
		t.Fatalf("columns not reported: %+v", info)
	}
	names := pub.Names()
	if len(names) != 2 || names[0] != EventLoadStart || names[1] != EventLoadReady {
		t.Fatalf("events=%v", names)
	}
	st := m.Status()
	if st.State != string(StateReady) || st.InstancesTotal != 2 || st.Services[0].Requests != 1 || st.Services[0].LastUsed == 0 {
		t.Fatalf("status=%+v", st)
	}
}

func TestStart_MetadataOverlay(t *testing.T) {
	dir := t.TempDir()
	p := writeTreeBundle(t, dir, "stump", 3)
	md := filepath.Join(dir, "metadata.yml")
	if err := os.WriteFile(md, []byte("columns: [a, b]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := newStarted(t, ManagerConfig{Services: []ServiceSpec{{ID: "stump", Source: p, MetadataPath: md}}})
	// metadata now demands two columns
	_, err := m.Predict(testCtx(t), "stump", [][]any{{1}})
	if !IsInvalidInput(err) || StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStart_FailedServiceIsNotReady(t *testing.T) {
	dir := t.TempDir()
	good := writeTreeBundle(t, dir, "good", 3)
	pub := NewMemoryPublisher()
	m, err := NewWithConfig(ManagerConfig{
		Services: []ServiceSpec{
			{ID: "good", Source: good},
			{ID: "bad", Source: filepath.Join(dir, "missing.json")},
		},
		Publisher: pub,
	})
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	if err := m.Start(testCtx(t)); err == nil {
		t.Fatalf("expected Start to report the failed service")
	}
	if m.Ready() {
		t.Fatalf("one failed service must keep the server unready")
	}
	_, err = m.Predict(testCtx(t), "bad", [][]any{{1}})
	if !IsNotReady(err) || StatusOf(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected not ready, got %v", err)
	}
	if _, err := m.Predict(testCtx(t), "good", [][]any{{1}}); err != nil {
		t.Fatalf("healthy service should still serve: %v", err)
	}
	st := m.Status()
	if st.State != string(StateError) || st.LastError == "" || st.Services[1].Error == "" || st.Services[1].Failures != 1 {
		t.Fatalf("status=%+v", st)
	}
}

func TestPredict_UnknownService(t *testing.T) {
	m := newStarted(t, ManagerConfig{Loader: staticLoader(&fakePredictor{}), Services: []ServiceSpec{{ID: "a", Source: "x"}}})
	_, err := m.Predict(testCtx(t), "nope", [][]any{{1}})
	if !IsServiceNotFound(err) || StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPredict_ProxyService(t *testing.T) {
	ts := newHostedModel(t)
	m := newStarted(t, ManagerConfig{Services: []ServiceSpec{{ID: "hosted", Kind: types.KindProxy, Source: ts.URL}}})
	out, err := m.Predict(testCtx(t), "hosted", [][]any{{1}, {2}, {3}})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(out.Predictions) != 3 {
		t.Fatalf("predictions=%v", out.Predictions)
	}
	if m.ListServices()[0].Source != ts.URL {
		t.Fatalf("source=%q", m.ListServices()[0].Source)
	}
}

func TestPredict_ProxyUpstreamFailure(t *testing.T) {
	ts := newFailingUpstream(t)
	m := newStarted(t, ManagerConfig{Services: []ServiceSpec{{
		ID: "down", Kind: types.KindProxy, Source: ts.URL,
		Proxy: proxy.Config{Retries: -1},
	}}})
	_, err := m.Predict(testCtx(t), "down", [][]any{{1}})
	if !IsUpstream(err) || StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestPredict_CanceledContext(t *testing.T) {
	m := newStarted(t, ManagerConfig{Loader: staticLoader(&fakePredictor{}), Services: []ServiceSpec{{ID: "a", Source: "x"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Predict(ctx, "a", [][]any{{1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecorder_RecordsEachCall(t *testing.T) {
	dir := t.TempDir()
	p := writeTreeBundle(t, dir, "stump", 3)
	rec := &memRecorder{}
	m := newStarted(t, ManagerConfig{Services: []ServiceSpec{{ID: "stump", Source: p}}, Recorder: rec})
	_, _ = m.Predict(testCtx(t), "stump", [][]any{{1}, {2}})
	_, _ = m.Predict(testCtx(t), "stump", [][]any{{1, 2}})
	_, _ = m.Predict(testCtx(t), "unknown", [][]any{{1}})
	got := rec.all()
	if len(got) != 3 {
		t.Fatalf("entries=%+v", got)
	}
	if got[0].Service != "stump" || got[0].Instances != 2 || got[0].Status != 200 || got[0].Error != "" {
		t.Fatalf("first entry=%+v", got[0])
	}
	if got[1].Status != 400 || got[1].Error == "" {
		t.Fatalf("second entry=%+v", got[1])
	}
	if got[2].Status != 404 {
		t.Fatalf("third entry=%+v", got[2])
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 200},
		{tooBusyError{id: "a"}, 429},
		{ErrServiceNotFound("a"), 404},
		{notReadyError{id: "a"}, 503},
		{context.DeadlineExceeded, 504},
		{errors.New("boom"), 500},
	}
	for _, c := range cases {
		if got := StatusOf(c.err); got != c.want {
			t.Fatalf("StatusOf(%v)=%d want %d", c.err, got, c.want)
		}
	}
}

func TestServicesFromDir(t *testing.T) {
	dir := t.TempDir()
	writeTreeBundle(t, dir, "b_model", 1)
	writeTreeBundle(t, dir, "a_model", 1)
	if err := os.WriteFile(filepath.Join(dir, "metadata.yml"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	specs, err := ServicesFromDir(dir, "")
	if err != nil {
		t.Fatalf("ServicesFromDir: %v", err)
	}
	if len(specs) != 2 || specs[0].ID != "a_model" || specs[1].ID != "b_model" {
		t.Fatalf("specs=%+v", specs)
	}
	m := newStarted(t, ManagerConfig{Services: specs})
	if !m.Ready() {
		t.Fatalf("composed services should load: %+v", m.Status())
	}
	if got := m.ListServices()[1].Endpoint; got != "/b_model/predict" {
		t.Fatalf("endpoint=%s", got)
	}
	if _, err := ServicesFromDir(t.TempDir(), ""); err == nil {
		t.Fatalf("expected error for an empty directory")
	}
}

func TestStart_RespectsTimeoutOnSlowLoader(t *testing.T) {
	slow := func(ctx context.Context, _ ServiceSpec) (Loaded, error) {
		select {
		case <-ctx.Done():
			return Loaded{}, ctx.Err()
		case <-time.After(time.Second):
			return Loaded{Predictor: &fakePredictor{}}, nil
		}
	}
	m, err := NewWithConfig(ManagerConfig{Loader: slow, Services: []ServiceSpec{{ID: "a", Source: "x"}}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
