package manager

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"predictd/internal/bundle"
	"predictd/internal/common/fsutil"
	"predictd/internal/proxy"
	"predictd/internal/wrapper"
	"predictd/pkg/types"
)

// Start builds every configured service and, when enabled, begins watching
// bundle files. Services that fail stay mounted in the error state; the
// returned error joins their failures. Watching stops when ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	m.mu.RUnlock()
	var errs []error
	for _, id := range ids {
		if err := m.loadService(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if m.watch {
		if err := m.Watch(ctx); err != nil {
			errs = append(errs, fmt.Errorf("watch: %w", err))
		}
	}
	return errors.Join(errs...)
}

// loadService runs the initial load of one service.
func (m *Manager) loadService(ctx context.Context, id string) error {
	svc, err := m.lookup(id)
	if err != nil {
		return err
	}
	m.publish(Event{Name: EventLoadStart, ServiceID: id, Fields: map[string]any{"kind": string(svc.spec.Kind), "source": svc.spec.Source}})
	start := time.Now()
	ld, err := m.loader(ctx, svc.spec)
	m.mu.Lock()
	if err != nil {
		svc.state = StateError
		svc.err = err.Error()
		m.lastErr = fmt.Sprintf("%s: %v", id, err)
		m.mu.Unlock()
		m.publish(Event{Name: EventLoadFailed, ServiceID: id, Fields: map[string]any{"error": err.Error()}})
		return fmt.Errorf("service %s: %w", id, err)
	}
	svc.state = StateReady
	svc.err = ""
	svc.pred = ld.Predictor
	svc.loaded = ld
	m.mu.Unlock()
	m.publish(Event{Name: EventLoadReady, ServiceID: id, Fields: map[string]any{"dur_ms": time.Since(start).Milliseconds()}})
	return nil
}

// load is the default Loader.
func (m *Manager) load(ctx context.Context, spec ServiceSpec) (Loaded, error) {
	switch spec.Kind {
	case types.KindProxy:
		return m.loadProxy(spec)
	default:
		return m.loadBundle(ctx, spec)
	}
}

func (m *Manager) loadBundle(ctx context.Context, spec ServiceSpec) (Loaded, error) {
	path, err := fsutil.ExpandHome(spec.Source)
	if err != nil {
		return Loaded{}, err
	}
	if u, perr := url.Parse(path); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		path, err = bundle.Fetch(ctx, path, m.cacheDir, nil)
		if err != nil {
			return Loaded{}, err
		}
	} else if path, err = fsutil.AbsPath(path); err != nil {
		return Loaded{}, err
	}
	b, err := bundle.Load(path)
	if err != nil {
		return Loaded{}, err
	}
	if spec.MetadataPath != "" {
		mdPath, err := fsutil.ExpandHome(spec.MetadataPath)
		if err != nil {
			return Loaded{}, err
		}
		md, err := bundle.LoadMetadata(mdPath)
		if err != nil {
			return Loaded{}, err
		}
		md.Apply(b)
	}
	s, err := wrapper.NewSimple(b)
	if err != nil {
		return Loaded{}, fmt.Errorf("bundle %s: %w", path, err)
	}
	return Loaded{
		Predictor:  s,
		SoftScores: s.SupportsSoftScores(),
		Outcomes:   b.Outcomes,
		Columns:    b.Columns,
		LocalPath:  path,
	}, nil
}

func (m *Manager) loadProxy(spec ServiceSpec) (Loaded, error) {
	cfg := spec.Proxy
	cfg.Name = spec.ID
	if cfg.URL == "" {
		cfg.URL = spec.Source
	}
	p, err := proxy.New(cfg, m.log)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{Predictor: p}, nil
}
