package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"predictd/internal/bundle"
	"predictd/internal/encoder"
	"predictd/internal/httpapi"
	"predictd/internal/journal"
	"predictd/internal/manager"
	"predictd/internal/model"
)

// creditRows is a tiny credit table: checking status decides the outcome.
var creditRows = [][]string{
	{"A11", "6", "1"}, {"A11", "12", "1"}, {"A11", "24", "1"}, {"A11", "36", "1"},
	{"A14", "6", "2"}, {"A14", "12", "2"}, {"A14", "24", "2"}, {"A14", "36", "2"},
}

// writeCreditBundle trains a tree on creditRows and saves it under dir.
func writeCreditBundle(t *testing.T, dir string) string {
	t.Helper()
	columns := []string{"checkingstatus", "duration"}
	features := make([][]string, len(creditRows))
	labels := make([]any, len(creditRows))
	for i, r := range creditRows {
		features[i] = r[:2]
		if r[2] == "1" {
			labels[i] = 1.0
		} else {
			labels[i] = 2.0
		}
	}
	enc, err := encoder.Fit(columns, features, []string{"checkingstatus"}, false)
	if err != nil {
		t.Fatalf("fit encoder: %v", err)
	}
	rows := make([][]any, len(features))
	for i, f := range features {
		rows[i] = []any{f[0], f[1]}
	}
	x, err := enc.Encode(rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	spec, err := model.TrainTree(x, labels, model.TreeOptions{})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	b := &bundle.Bundle{
		Name:               "german_credit_dtree",
		Model:              spec,
		Encoder:            enc.Spec(),
		Columns:            columns,
		Outcomes:           spec.Classes,
		SupportsSoftScores: true,
	}
	p := filepath.Join(dir, "german_credit_dtree.json")
	if err := bundle.Save(p, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	return p
}

type stack struct {
	srv     *httptest.Server
	mgr     *manager.Manager
	journal *journal.Store
}

// newStack wires manager, journal and HTTP layer the way cmd/predictd does.
func newStack(t *testing.T, cfg manager.ManagerConfig) stack {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	cfg.Recorder = j
	mgr, err := manager.NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = mgr.Start(ctx)
	httpapi.SetJournal(j)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		httpapi.SetJournal(nil)
		_ = mgr.Close()
		_ = j.Close()
	})
	return stack{srv: srv, mgr: mgr, journal: j}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	return httpPost(t, url, "application/json", payload)
}

func httpPost(t *testing.T, url, contentType string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
