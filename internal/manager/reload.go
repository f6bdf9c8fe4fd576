package manager

import (
	"context"
	"fmt"
)

// Reload rebuilds service id from its source. On failure a service that was
// serving keeps its previous predictor; the error is recorded either way.
func (m *Manager) Reload(ctx context.Context, id string) error {
	svc, err := m.lookup(id)
	if err != nil {
		return err
	}
	m.mu.RLock()
	draining := svc.state == StateDraining
	m.mu.RUnlock()
	if draining {
		return tooBusyError{id: id}
	}

	ld, err := m.loader(ctx, svc.spec)
	m.mu.Lock()
	if err != nil {
		svc.err = err.Error()
		if svc.pred == nil {
			svc.state = StateError
		}
		m.lastErr = fmt.Sprintf("%s: %v", id, err)
		m.mu.Unlock()
		m.publish(Event{Name: EventReloadFailed, ServiceID: id, Fields: map[string]any{"error": err.Error()}})
		return fmt.Errorf("reload %s: %w", id, err)
	}
	old := svc.pred
	svc.pred = ld.Predictor
	svc.loaded = ld
	svc.state = StateReady
	svc.err = ""
	m.mu.Unlock()
	svc.reloads.Add(1)
	if old != nil {
		_ = old.Close()
	}
	m.publish(Event{Name: EventReloadDone, ServiceID: id, Fields: map[string]any{"reloads": svc.reloads.Load()}})
	return nil
}
