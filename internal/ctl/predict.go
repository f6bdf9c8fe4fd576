package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"predictd/internal/common/fsutil"
	"predictd/pkg/types"
)

// PredictOptions configure the predict command.
type PredictOptions struct {
	URL string
	// Instances is inline JSON; File names a JSON file. Either may hold a
	// bare [[...]] batch or a full {"payload":{"instances":...}} request.
	Instances string
	File      string
	Timeout   time.Duration
	Retries   int
}

// PredictResult is the outcome of one prediction call.
type PredictResult struct {
	Status   int
	Body     []byte
	Response types.PredictResponse
}

func parseInstances(raw []byte) ([][]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("no instances given")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if raw[0] == '{' {
		var req types.PredictRequest
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		if len(req.Payload.Instances) == 0 {
			return nil, fmt.Errorf("payload.instances is empty")
		}
		return req.Payload.Instances, nil
	}
	var rows [][]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode instances: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no instances given")
	}
	return rows, nil
}

func (o PredictOptions) instances() ([][]any, error) {
	switch {
	case o.Instances != "" && o.File != "":
		return nil, fmt.Errorf("use either --instances or --file")
	case o.File != "":
		p, err := fsutil.ExpandHome(o.File)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		return parseInstances(b)
	default:
		return parseInstances([]byte(o.Instances))
	}
}

func newClient(timeout time.Duration, retries int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = func(_ retryablehttp.Logger, r *http.Request, attempt int) {
		if attempt > 0 {
			debug("retry %d %s", attempt, r.URL)
		}
	}
	if timeout > 0 {
		rc.HTTPClient.Timeout = timeout
	}
	return rc
}

// postPredict sends one prediction request. Non-2xx answers are returned
// with their body, not as an error.
func postPredict(ctx context.Context, client *retryablehttp.Client, url string, instances [][]any) (PredictResult, error) {
	body, err := json.Marshal(types.PredictRequest{Payload: types.PredictPayload{Instances: instances}})
	if err != nil {
		return PredictResult{}, err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return PredictResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return PredictResult{}, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return PredictResult{}, err
	}
	res := PredictResult{Status: resp.StatusCode, Body: b}
	if resp.StatusCode/100 == 2 {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&res.Response); err != nil {
			return res, fmt.Errorf("decode response: %w", err)
		}
	}
	return res, nil
}

func predict(ctx context.Context, opts PredictOptions, out io.Writer) error {
	if opts.URL == "" {
		return fmt.Errorf("--url is required")
	}
	rows, err := opts.instances()
	if err != nil {
		return err
	}
	res, err := postPredict(ctx, newClient(opts.Timeout, opts.Retries), opts.URL, rows)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, res.Body, "", "  ") != nil {
		pretty.Reset()
		pretty.Write(res.Body)
	}
	fmt.Fprintln(out, strings.TrimSpace(pretty.String()))
	if res.Status/100 != 2 {
		return fmt.Errorf("%s answered %d", opts.URL, res.Status)
	}
	return nil
}
