package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"predictd/pkg/types"
)

// echoModel answers one "ok" prediction per instance.
func echoModel(t *testing.T, failFirst int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failFirst {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "invalid JSON body", Code: 400})
			return
		}
		preds := make([]any, len(req.Payload.Instances))
		for i := range preds {
			preds[i] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.PredictResponse{Payload: types.PredictionPayload{Predictions: preds}})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestParseInstances(t *testing.T) {
	rows, err := parseInstances([]byte(`[[1,"A11"],[2,"A12"]]`))
	if err != nil || len(rows) != 2 {
		t.Fatalf("bare batch: %v %v", rows, err)
	}
	if _, ok := rows[0][0].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", rows[0][0])
	}
	rows, err = parseInstances([]byte(` {"payload":{"instances":[[3]]}}`))
	if err != nil || len(rows) != 1 {
		t.Fatalf("full request: %v %v", rows, err)
	}
	for _, bad := range []string{"", "[]", `{"payload":{}}`, "[[1]"} {
		if _, err := parseInstances([]byte(bad)); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestPredict_PrintsResponse(t *testing.T) {
	srv, calls := echoModel(t, 1)
	var out bytes.Buffer
	err := predict(context.Background(), PredictOptions{URL: srv.URL, Instances: "[[1],[2]]", Retries: 2, Timeout: time.Second}, &out)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
	if !strings.Contains(out.String(), `"predictions"`) {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestPredict_FileAndErrors(t *testing.T) {
	srv, _ := echoModel(t, 0)
	p := filepath.Join(t.TempDir(), "req.json")
	if err := os.WriteFile(p, []byte(`{"payload":{"instances":[[1]]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := predict(context.Background(), PredictOptions{URL: srv.URL, File: p}, &out); err != nil {
		t.Fatalf("predict from file: %v", err)
	}
	if err := predict(context.Background(), PredictOptions{URL: srv.URL, File: p, Instances: "[[1]]"}, &out); err == nil {
		t.Fatalf("expected error when both --file and --instances are set")
	}
	if err := predict(context.Background(), PredictOptions{Instances: "[[1]]"}, &out); err == nil {
		t.Fatalf("expected error without url")
	}
}

func TestPredict_NonOKIsError(t *testing.T) {
	srv, _ := echoModel(t, 100)
	var out bytes.Buffer
	err := predict(context.Background(), PredictOptions{URL: srv.URL, Instances: "[[1]]", Retries: 0}, &out)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
	if !strings.Contains(out.String(), "warming up") {
		t.Fatalf("body should be printed, got %q", out.String())
	}
}
