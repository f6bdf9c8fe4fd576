package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"predictd/pkg/types"
)

type Manager struct {
	mu       sync.RWMutex
	services map[string]*service
	// order keeps configuration order for listings.
	order   []string
	lastErr string

	workers       int
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration
	watch         bool
	debounce      time.Duration
	cacheDir      string

	loader    Loader
	publisher EventPublisher
	recorder  Recorder
	log       zerolog.Logger
	startTime time.Time
	scored    atomic.Uint64
}

// SetEventPublisher replaces the event sink. nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

// SetRecorder installs the prediction journal. nil disables recording.
func (m *Manager) SetRecorder(r Recorder) {
	m.mu.Lock()
	m.recorder = r
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(e)
}

// Ready reports whether at least one service is mounted and every service
// that is not draining is ready.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, svc := range m.services {
		if svc.state == StateDraining {
			continue
		}
		if svc.state != StateReady {
			return false
		}
		n++
	}
	return n > 0
}

// ListServices returns the mounted services in configuration order.
func (m *Manager) ListServices() []types.ServiceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ServiceInfo, 0, len(m.order))
	for _, id := range m.order {
		if svc := m.services[id]; svc != nil {
			out = append(out, svc.info())
		}
	}
	return out
}

func (m *Manager) lookup(id string) (*service, error) {
	m.mu.RLock()
	svc := m.services[id]
	m.mu.RUnlock()
	if svc == nil {
		return nil, ErrServiceNotFound(id)
	}
	return svc, nil
}
