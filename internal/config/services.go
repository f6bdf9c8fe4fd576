package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"predictd/internal/manager"
	"predictd/internal/proxy"
	"predictd/pkg/types"
)

const (
	// DefaultMetadataPath is read next to a single MODEL_PATH bundle when
	// nothing else is configured and the file exists.
	DefaultMetadataPath = "model/metadata.yml"
	singleEndpoint      = "/predict"
	hostedServiceID     = "hosted_model"
)

// ServiceSpecs resolves the configured services. See Config for precedence.
func (c Config) ServiceSpecs() ([]manager.ServiceSpec, error) {
	switch {
	case len(c.Services) > 0:
		out := make([]manager.ServiceSpec, 0, len(c.Services))
		for i, s := range c.Services {
			spec, err := s.spec()
			if err != nil {
				return nil, fmt.Errorf("services[%d]: %w", i, err)
			}
			if spec.MetadataPath == "" {
				spec.MetadataPath = c.MetadataPath
			}
			out = append(out, spec)
		}
		return out, nil
	case c.ModelsDir != "":
		return manager.ServicesFromDir(c.ModelsDir, c.MetadataPath)
	}
	var out []manager.ServiceSpec
	if c.ModelPath != "" {
		out = append(out, manager.ServiceSpec{
			ID:           serviceIDFromPath(c.ModelPath),
			Endpoint:     singleEndpoint,
			Kind:         types.KindBundle,
			Source:       c.ModelPath,
			MetadataPath: c.MetadataPath,
		})
	}
	if c.HostedModelURL != "" {
		out = append(out, manager.ServiceSpec{
			ID:       hostedServiceID,
			Endpoint: singleEndpoint,
			Kind:     types.KindProxy,
			Source:   c.HostedModelURL,
			Proxy:    proxy.Config{URL: c.HostedModelURL, AuthToken: c.HostedModelToken},
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no services configured: set services, models_dir, model_path or hosted_model_url")
	}
	return out, nil
}

func (s ServiceConfig) spec() (manager.ServiceSpec, error) {
	kind := types.ServiceKind(strings.ToLower(s.Kind))
	switch kind {
	case "", types.KindBundle, types.KindProxy:
	default:
		return manager.ServiceSpec{}, fmt.Errorf("unknown kind %q", s.Kind)
	}
	id := s.ID
	if id == "" && s.Source != "" && kind != types.KindProxy {
		id = serviceIDFromPath(s.Source)
	}
	return manager.ServiceSpec{
		ID:            id,
		Name:          s.Name,
		Endpoint:      s.Endpoint,
		Kind:          kind,
		Source:        s.Source,
		MetadataPath:  s.MetadataPath,
		Workers:       s.Workers,
		MaxQueueDepth: s.MaxQueueDepth,
		Proxy: proxy.Config{
			URL:             s.Proxy.URL,
			Headers:         s.Proxy.Headers,
			AuthToken:       s.Proxy.AuthToken,
			Schema:          s.Proxy.Schema,
			Retries:         s.Proxy.Retries,
			BackoffFactor:   s.Proxy.BackoffFactor,
			StatusForcelist: s.Proxy.StatusForcelist,
			Timeout:         time.Duration(s.Proxy.TimeoutMS) * time.Millisecond,
			CacheSize:       s.Proxy.CacheSize,
		},
	}, nil
}

// serviceIDFromPath turns "models/german_credit_dtree.json" into
// "german_credit_dtree".
func serviceIDFromPath(p string) string {
	base := filepath.Base(strings.TrimRight(p, "/"))
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return "model"
	}
	return base
}

// MaxWait returns the admission wait as a duration; zero means default.
func (c Config) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMS) * time.Millisecond
}

// DrainTimeout returns the unload drain timeout; zero means default.
func (c Config) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMS) * time.Millisecond
}

// PredictTimeout bounds each predict request; zero disables it.
func (c Config) PredictTimeout() time.Duration {
	return time.Duration(c.PredictTimeoutMS) * time.Millisecond
}

// ApplyDefaults fills the address and, for a single MODEL_PATH bundle, the
// conventional metadata path.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelPath != "" && c.MetadataPath == "" && len(c.Services) == 0 && c.ModelsDir == "" {
		c.MetadataPath = DefaultMetadataPath
	}
}
