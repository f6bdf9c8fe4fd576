package manager

import (
	"sync/atomic"
	"time"

	"predictd/internal/wrapper"
	"predictd/pkg/types"
)

// State represents the lifecycle state of a service.
type State string

const (
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateError    State = "error"
	StateDraining State = "draining"
)

// Loaded is what a Loader produces for one service.
type Loaded struct {
	Predictor  wrapper.Predictor
	SoftScores bool
	Outcomes   []any
	Columns    []string
	// LocalPath is the file the predictor was built from, if any. Watched for reloads.
	LocalPath string
}

// service is one mounted prediction endpoint.
type service struct {
	spec ServiceSpec

	// guarded by Manager.mu
	state    State
	err      string
	pred     wrapper.Predictor
	loaded   Loaded
	lastUsed time.Time

	// queueCh holds every admitted request, genCh the ones being scored.
	genCh   chan struct{}
	queueCh chan struct{}

	requests atomic.Uint64
	failures atomic.Uint64
	reloads  atomic.Uint64
}

func (s *service) info() types.ServiceInfo {
	return types.ServiceInfo{
		ID:                 s.spec.ID,
		Name:               s.spec.Name,
		Endpoint:           s.spec.Endpoint,
		Kind:               s.spec.Kind,
		Source:             s.spec.Source,
		SupportsSoftScores: s.loaded.SoftScores,
		Outcomes:           s.loaded.Outcomes,
		Columns:            s.loaded.Columns,
	}
}
