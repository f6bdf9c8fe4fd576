// Package proxy forwards prediction batches to a model hosted elsewhere,
// retrying transient failures and translating between wire schemas.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"predictd/internal/wrapper"
	"predictd/pkg/types"
)

// Proxy implements wrapper.Predictor against a hosted model.
type Proxy struct {
	cfg    Config
	client *retryablehttp.Client
	log    zerolog.Logger

	cache *lru.Cache[string, cached]
	// labels seen in the last upstream response that carried scores
	mu     sync.RWMutex
	labels []any
}

type cached struct {
	prediction any
	scores     []float64
}

var _ wrapper.Predictor = (*Proxy)(nil)

// New validates cfg and builds the retrying client.
func New(cfg Config, logger zerolog.Logger) (*Proxy, error) {
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	p := &Proxy{cfg: c, log: logger.With().Str("component", "proxy").Str("service", c.Name).Logger()}
	rc := retryablehttp.NewClient()
	rc.Logger = leveledLogger{l: p.log}
	rc.RetryMax = c.Retries
	rc.RetryWaitMin = 0
	rc.RetryWaitMax = maxBackoff
	rc.CheckRetry = p.checkRetry
	rc.Backoff = p.backoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			proxyRetries.WithLabelValues(c.Name).Inc()
		}
	}
	p.client = rc
	if c.CacheSize > 0 {
		cache, err := lru.New[string, cached](c.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("proxy %q: cache: %w", c.Name, err)
		}
		p.cache = cache
	}
	return p, nil
}

// URL returns the hosted model endpoint.
func (p *Proxy) URL() string { return p.cfg.URL }

func (p *Proxy) Close() error {
	p.client.HTTPClient.CloseIdleConnections()
	if p.cache != nil {
		p.cache.Purge()
	}
	return nil
}

// checkRetry retries connection errors and statuses in the forcelist. The
// final response is handed back unchanged once retries run out.
func (p *Proxy) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.Request != nil && resp.Request.Method != http.MethodGet && resp.Request.Method != http.MethodPost {
		return false, nil
	}
	for _, code := range p.cfg.StatusForcelist {
		if resp.StatusCode == code {
			return true, nil
		}
	}
	return false, nil
}

// backoff sleeps factor*2^n before retry n (0-based), skipping the sleep
// before the first retry. A Retry-After header on 429/503 wins.
func (p *Proxy) backoff(_, ceiling time.Duration, attempt int, resp *http.Response) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s >= 0 {
			return time.Duration(s) * time.Second
		}
	}
	return backoffDuration(p.cfg.BackoffFactor, attempt, ceiling)
}

func backoffDuration(factor float64, attempt int, ceiling time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := time.Duration(factor * float64(int64(1)<<uint(attempt)) * float64(time.Second))
	if d > ceiling || d < 0 {
		return ceiling
	}
	return d
}

// Predict answers cached rows locally and forwards the rest in one request.
func (p *Proxy) Predict(ctx context.Context, instances [][]any) (types.PredictionPayload, error) {
	var out types.PredictionPayload
	if len(instances) == 0 {
		return out, wrapper.ErrInvalidInput("payload.instances is empty")
	}
	results := make([]cached, len(instances))
	keys := make([]string, len(instances))
	var miss []int
	for i, row := range instances {
		if p.cache == nil {
			miss = append(miss, i)
			continue
		}
		b, err := json.Marshal(row)
		if err != nil {
			return out, wrapper.ErrInvalidInput(fmt.Sprintf("instance %d: %v", i, err))
		}
		keys[i] = string(b)
		if v, ok := p.cache.Get(keys[i]); ok {
			results[i] = v
			proxyCacheHits.WithLabelValues(p.cfg.Name).Inc()
			continue
		}
		miss = append(miss, i)
	}

	if len(miss) > 0 {
		rows := make([][]any, len(miss))
		for k, i := range miss {
			rows[k] = instances[i]
		}
		got, err := p.forward(ctx, rows)
		if err != nil {
			return out, err
		}
		if len(got.Predictions) != len(rows) {
			return out, upstreamError{msg: fmt.Sprintf("hosted model returned %d predictions for %d instances", len(got.Predictions), len(rows))}
		}
		if got.Scores != nil && len(got.Scores) != len(rows) {
			return out, upstreamError{msg: fmt.Sprintf("hosted model returned %d score rows for %d instances", len(got.Scores), len(rows))}
		}
		if got.Labels != nil {
			p.mu.Lock()
			p.labels = got.Labels
			p.mu.Unlock()
		}
		for k, i := range miss {
			c := cached{prediction: got.Predictions[k]}
			if got.Scores != nil {
				c.scores = got.Scores[k]
			}
			results[i] = c
			if p.cache != nil {
				p.cache.Add(keys[i], c)
			}
		}
	}

	out.Predictions = make([]any, len(results))
	withScores := true
	for i, r := range results {
		out.Predictions[i] = r.prediction
		if r.scores == nil {
			withScores = false
		}
	}
	if withScores {
		out.Scores = make([][]float64, len(results))
		for i, r := range results {
			out.Scores[i] = r.scores
		}
		p.mu.RLock()
		out.Labels = p.labels
		p.mu.RUnlock()
	}
	return out, nil
}

// forward sends rows upstream and decodes the answer.
func (p *Proxy) forward(ctx context.Context, rows [][]any) (types.PredictionPayload, error) {
	var out types.PredictionPayload
	body, err := encodeRequest(p.cfg.Schema, rows)
	if err != nil {
		return out, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}
	if p.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.AuthToken)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		proxyRequests.WithLabelValues(p.cfg.Name, "error").Inc()
		if errors.Is(err, context.Canceled) {
			return out, err
		}
		return out, upstreamError{msg: fmt.Sprintf("hosted model unreachable: %v", err)}
	}
	defer resp.Body.Close()
	proxyRequests.WithLabelValues(p.cfg.Name, strconv.Itoa(resp.StatusCode)).Inc()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, upstreamError{status: resp.StatusCode, msg: fmt.Sprintf("read hosted model response: %v", err)}
	}
	p.log.Debug().Int("status", resp.StatusCode).Int("instances", len(rows)).Dur("dur", time.Since(start)).Msg("hosted model call")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, upstreamError{status: resp.StatusCode, msg: fmt.Sprintf("hosted model returned %d: %s", resp.StatusCode, snippet(payload))}
	}
	return decodeResponse(p.cfg.Schema, payload)
}

func encodeRequest(schema string, rows [][]any) ([]byte, error) {
	switch schema {
	case SchemaTFServing:
		return json.Marshal(map[string]any{"instances": rows})
	default:
		return json.Marshal(types.PredictRequest{Payload: types.PredictPayload{Instances: rows}})
	}
}

func decodeResponse(schema string, body []byte) (types.PredictionPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out types.PredictionPayload
	switch schema {
	case SchemaTFServing:
		var r struct {
			Predictions []any `json:"predictions"`
		}
		if err := dec.Decode(&r); err != nil {
			return out, upstreamError{msg: fmt.Sprintf("decode hosted model response: %v", err)}
		}
		out.Predictions = r.Predictions
	default:
		var r types.PredictResponse
		if err := dec.Decode(&r); err != nil {
			return out, upstreamError{msg: fmt.Sprintf("decode hosted model response: %v", err)}
		}
		out = r.Payload
	}
	if out.Predictions == nil {
		return out, upstreamError{msg: "hosted model response has no predictions"}
	}
	return out, nil
}

func snippet(b []byte) string {
	const n = 200
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
