package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/proxy"
	"predictd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultWorkers       = 3
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
	defaultWatchDebounce = 250 * time.Millisecond
)

// Routes owned by the HTTP layer; services may not mount on them.
var reservedEndpoints = map[string]bool{
	"/models":  true,
	"/status":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
	"/journal": true,
}

// ServiceSpec declares one service.
type ServiceSpec struct {
	ID   string
	Name string
	// Endpoint defaults to /<id>/predict.
	Endpoint string
	Kind     types.ServiceKind
	// Source is the bundle path or URL for bundle services, or the hosted
	// model URL for proxy services when Proxy.URL is empty.
	Source string
	// MetadataPath points at an optional metadata.yml overlaid on the bundle.
	MetadataPath string
	Proxy        proxy.Config
	// Per-service overrides of the manager defaults.
	Workers       int
	MaxQueueDepth int
}

// Loader builds the predictor for a service.
type Loader func(ctx context.Context, spec ServiceSpec) (Loaded, error)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Services      []ServiceSpec
	Workers       int
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration
	// Watch reloads bundle services when their files change.
	Watch         bool
	WatchDebounce time.Duration
	// CacheDir receives bundles fetched over HTTP.
	CacheDir string

	Logger    *zerolog.Logger
	Publisher EventPublisher
	Recorder  Recorder
	// Loader replaces the bundle/proxy loader (tests).
	Loader Loader
}

// NewWithConfig validates cfg and constructs a Manager. Services start in the
// loading state; call Start to build them.
func NewWithConfig(cfg ManagerConfig) (*Manager, error) {
	m := &Manager{
		services:      make(map[string]*service),
		workers:       orDefault(cfg.Workers, defaultWorkers),
		maxQueueDepth: orDefault(cfg.MaxQueueDepth, defaultMaxQueueDepth),
		maxWait:       cfg.MaxWait,
		drainTimeout:  cfg.DrainTimeout,
		watch:         cfg.Watch,
		debounce:      cfg.WatchDebounce,
		cacheDir:      cfg.CacheDir,
		publisher:     cfg.Publisher,
		recorder:      cfg.Recorder,
		startTime:     time.Now(),
	}
	if m.maxWait <= 0 {
		m.maxWait = defaultMaxWait
	}
	if m.drainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	if m.debounce <= 0 {
		m.debounce = defaultWatchDebounce
	}
	if m.cacheDir == "" {
		m.cacheDir = filepath.Join(os.TempDir(), "predictd-bundles")
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	m.loader = cfg.Loader
	if m.loader == nil {
		m.loader = m.load
	}

	endpoints := make(map[string]string)
	for _, sp := range cfg.Services {
		sp, err := normalizeSpec(sp)
		if err != nil {
			return nil, err
		}
		if _, dup := m.services[sp.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %q", sp.ID)
		}
		if other, dup := endpoints[sp.Endpoint]; dup {
			return nil, fmt.Errorf("services %q and %q share endpoint %s", other, sp.ID, sp.Endpoint)
		}
		endpoints[sp.Endpoint] = sp.ID
		m.services[sp.ID] = m.newService(sp)
		m.order = append(m.order, sp.ID)
	}
	return m, nil
}

func (m *Manager) newService(sp ServiceSpec) *service {
	workers := orDefault(sp.Workers, m.workers)
	depth := orDefault(sp.MaxQueueDepth, m.maxQueueDepth)
	if depth < workers {
		depth = workers
	}
	return &service{
		spec:    sp,
		state:   StateLoading,
		genCh:   make(chan struct{}, workers),
		queueCh: make(chan struct{}, depth),
	}
}

func normalizeSpec(sp ServiceSpec) (ServiceSpec, error) {
	sp.ID = strings.TrimSpace(sp.ID)
	if sp.ID == "" || strings.ContainsAny(sp.ID, "/ \t") {
		return sp, fmt.Errorf("invalid service id %q", sp.ID)
	}
	if sp.Name == "" {
		sp.Name = sp.ID
	}
	if sp.Endpoint == "" {
		sp.Endpoint = "/" + sp.ID + "/predict"
	}
	if !strings.HasPrefix(sp.Endpoint, "/") {
		sp.Endpoint = "/" + sp.Endpoint
	}
	if reservedEndpoints[sp.Endpoint] {
		return sp, fmt.Errorf("service %q: endpoint %s is reserved", sp.ID, sp.Endpoint)
	}
	switch sp.Kind {
	case "":
		sp.Kind = types.KindBundle
		if sp.Proxy.URL != "" {
			sp.Kind = types.KindProxy
		}
	case types.KindBundle, types.KindProxy:
	default:
		return sp, fmt.Errorf("service %q: unknown kind %q", sp.ID, sp.Kind)
	}
	if sp.Kind == types.KindProxy && sp.Source == "" {
		sp.Source = sp.Proxy.URL
	}
	if sp.Source == "" {
		return sp, fmt.Errorf("service %q: source is required", sp.ID)
	}
	return sp, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
