package manager

import (
	"time"

	"predictd/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		State:          string(StateLoading),
		LastError:      m.lastErr,
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		InstancesTotal: m.scored.Load(),
	}
	resp.Services = make([]types.ServiceStatus, 0, len(m.order))
	allReady := len(m.order) > 0
	anyError := false
	for _, id := range m.order {
		svc := m.services[id]
		if svc == nil {
			continue
		}
		switch svc.state {
		case StateError:
			anyError = true
			allReady = false
		case StateLoading:
			allReady = false
		}
		inflight := len(svc.genCh)
		waiting := len(svc.queueCh) - inflight
		if waiting < 0 {
			waiting = 0
		}
		var lastUsed int64
		if !svc.lastUsed.IsZero() {
			lastUsed = svc.lastUsed.Unix()
		}
		resp.Services = append(resp.Services, types.ServiceStatus{
			ID:            id,
			State:         string(svc.state),
			Error:         svc.err,
			LastUsed:      lastUsed,
			QueueLen:      waiting,
			Inflight:      inflight,
			MaxQueueDepth: cap(svc.queueCh),
			Workers:       cap(svc.genCh),
			Requests:      svc.requests.Load(),
			Failures:      svc.failures.Load(),
			Reloads:       svc.reloads.Load(),
		})
	}
	switch {
	case allReady:
		resp.State = string(StateReady)
	case anyError:
		resp.State = string(StateError)
	}
	return resp
}
