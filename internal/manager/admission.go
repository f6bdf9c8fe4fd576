package manager

import (
	"context"
	"time"
)

// beginPrediction reserves a queue slot and then one of the service's worker
// slots. Returns a release func to be deferred.
func (m *Manager) beginPrediction(ctx context.Context, svc *service) (func(), error) {
	m.mu.RLock()
	state := svc.state
	m.mu.RUnlock()
	// Draining services reject new work so Unload can finish.
	if state == StateDraining {
		return func() {}, tooBusyError{id: svc.spec.ID}
	}
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	// A full queue is rejected immediately.
	select {
	case svc.queueCh <- struct{}{}:
	default:
		return func() {}, tooBusyError{id: svc.spec.ID}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-svc.queueCh
		}
	}()
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case svc.genCh <- struct{}{}:
		acquired = true
		m.mu.Lock()
		svc.lastUsed = time.Now()
		m.mu.Unlock()
		return func() { <-svc.genCh; <-svc.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{id: svc.spec.ID}
	}
}
