package proxy

import (
	"fmt"
	"net/url"
	"time"
)

// Defaults mirror the retry policy hosted scanners expect: five retries with
// a 0.2s backoff factor on gateway-style failures.
const (
	defaultRetries       = 5
	defaultBackoffFactor = 0.2
	defaultTimeout       = 30 * time.Second
	maxBackoff           = 120 * time.Second
	maxResponseBytes     = 32 << 20

	SchemaCertifai  = "certifai"
	SchemaTFServing = "tfserving"
)

var defaultStatusForcelist = []int{500, 502, 503, 504}

// Config describes one hosted model.
type Config struct {
	// Name labels logs and metrics.
	Name string
	URL  string
	// Headers are added to every upstream request.
	Headers map[string]string
	// AuthToken, when set, is sent as "Authorization: Bearer <token>".
	AuthToken string
	// Schema selects the upstream wire format: certifai (default) or tfserving.
	Schema string
	// Retries is the total retry budget; negative disables retries.
	Retries         int
	BackoffFactor   float64
	StatusForcelist []int
	Timeout         time.Duration
	// CacheSize > 0 enables the per-row prediction cache.
	CacheSize int
}

func (c Config) withDefaults() (Config, error) {
	if c.URL == "" {
		return c, fmt.Errorf("proxy %q: hosted model URL is required", c.Name)
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c, fmt.Errorf("proxy %q: invalid hosted model URL %q", c.Name, c.URL)
	}
	switch c.Schema {
	case "":
		c.Schema = SchemaCertifai
	case SchemaCertifai, SchemaTFServing:
	default:
		return c, fmt.Errorf("proxy %q: unknown schema %q", c.Name, c.Schema)
	}
	switch {
	case c.Retries == 0:
		c.Retries = defaultRetries
	case c.Retries < 0:
		c.Retries = 0
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = defaultBackoffFactor
	}
	if len(c.StatusForcelist) == 0 {
		c.StatusForcelist = defaultStatusForcelist
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c, nil
}
