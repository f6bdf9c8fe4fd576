package ctl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// SmokeOptions configure the smoke command.
type SmokeOptions struct {
	// Bin is the predictd binary; when empty it is built from ./cmd/predictd.
	Bin            string
	ModelPath      string
	MetadataPath   string
	HostedModelURL string
	Instances      string
	File           string
	Timeout        time.Duration
}

// SmokeResult reports what the smoke test observed.
type SmokeResult struct {
	Addr        string
	Status      int
	Predictions int
}

// startDaemon launches predictd on addr and returns a stop function.
func startDaemon(ctx context.Context, opts SmokeOptions, addr string) (func(), error) {
	bin := opts.Bin
	if bin == "" {
		dir, err := os.MkdirTemp("", "predictctl-smoke-")
		if err != nil {
			return nil, err
		}
		bin = filepath.Join(dir, "predictd")
		info("building predictd into %s", bin)
		if err := RunCmd(ctx, Cmd{Path: "go", Args: []string{"build", "-o", bin, "./cmd/predictd"}, Stream: true}); err != nil {
			return nil, fmt.Errorf("build predictd: %w", err)
		}
	}
	args := []string{"-addr", addr}
	if opts.ModelPath != "" {
		args = append(args, "-model-path", opts.ModelPath)
	}
	if opts.MetadataPath != "" {
		args = append(args, "-metadata-path", opts.MetadataPath)
	}
	if opts.HostedModelURL != "" {
		args = append(args, "-hosted-model-url", opts.HostedModelURL)
	}
	procs := NewProcManager()
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	procs.Add(cmd)
	return procs.KillAll, nil
}

// smoke starts a daemon on a free port, waits for it, sends one request and
// checks that every instance got a prediction.
func smoke(ctx context.Context, opts SmokeOptions) (SmokeResult, error) {
	if opts.ModelPath == "" && opts.HostedModelURL == "" {
		return SmokeResult{}, fmt.Errorf("--model-path or --hosted-model-url is required")
	}
	rows, err := PredictOptions{Instances: opts.Instances, File: opts.File}.instances()
	if err != nil {
		return SmokeResult{}, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	port, err := chooseFreePort()
	if err != nil {
		return SmokeResult{}, err
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	res := SmokeResult{Addr: addr}
	stop, err := fnStartDaemon(ctx, opts, addr)
	if err != nil {
		return res, err
	}
	defer stop()

	base := "http://" + addr
	if err := waitHTTP(ctx, base+"/readyz", 200, opts.Timeout); err != nil {
		return res, err
	}
	info("predictd ready on %s", addr)
	pr, err := postPredict(ctx, newClient(opts.Timeout, 0), base+"/predict", rows)
	if err != nil {
		return res, err
	}
	res.Status = pr.Status
	res.Predictions = len(pr.Response.Payload.Predictions)
	if pr.Status != 200 {
		return res, fmt.Errorf("predict answered %d: %s", pr.Status, pr.Body)
	}
	if res.Predictions != len(rows) {
		return res, fmt.Errorf("got %d predictions for %d instances", res.Predictions, len(rows))
	}
	return res, nil
}
