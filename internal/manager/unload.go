package manager

import (
	"time"
)

// Unload initiates a graceful drain of a service and removes it.
//   - Sets the service state to draining to reject new requests.
//   - Waits up to drainTimeout for in-flight and queued requests to finish.
//   - Closes the predictor and removes the service entry.
func (m *Manager) Unload(id string) error {
	if id == "" {
		return ErrServiceNotFound("(unspecified)")
	}
	m.mu.Lock()
	svc := m.services[id]
	if svc == nil {
		m.mu.Unlock()
		return ErrServiceNotFound(id)
	}
	svc.state = StateDraining
	m.mu.Unlock()
	m.publish(Event{Name: EventUnloadStart, ServiceID: id, Fields: map[string]any{}})

	deadline := time.Now().Add(m.drainTimeout)
	for {
		qlen := len(svc.queueCh)
		inflight := len(svc.genCh)
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.publish(Event{Name: EventUnloadTimeout, ServiceID: id, Fields: map[string]any{"inflight": inflight, "queue": qlen}})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	m.mu.Lock()
	pred := svc.pred
	delete(m.services, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	if pred != nil {
		_ = pred.Close()
	}

	m.publish(Event{Name: EventUnloadDone, ServiceID: id, Fields: map[string]any{}})
	return nil
}

// Close unloads every service.
func (m *Manager) Close() error {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Unload(id)
	}
	return nil
}
