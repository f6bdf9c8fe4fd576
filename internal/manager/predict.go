package manager

import (
	"context"
	"time"

	"predictd/pkg/types"
)

// Predict scores instances on service id. Admission follows the service's
// queue and worker limits; the call is counted, timed and journaled.
func (m *Manager) Predict(ctx context.Context, id string, instances [][]any) (types.PredictionPayload, error) {
	start := time.Now()
	out, err := m.predict(ctx, id, instances)
	m.observe(ctx, id, len(instances), err, time.Since(start))
	return out, err
}

func (m *Manager) predict(ctx context.Context, id string, instances [][]any) (types.PredictionPayload, error) {
	svc, err := m.lookup(id)
	if err != nil {
		return types.PredictionPayload{}, err
	}
	svc.requests.Add(1)
	m.mu.RLock()
	state, reason := svc.state, svc.err
	m.mu.RUnlock()
	if state == StateLoading || state == StateError {
		svc.failures.Add(1)
		return types.PredictionPayload{}, notReadyError{id: id, reason: reason}
	}

	release, err := m.beginPrediction(ctx, svc)
	if err != nil {
		svc.failures.Add(1)
		return types.PredictionPayload{}, err
	}
	defer release()

	// Reload may swap the predictor; take the current one.
	m.mu.RLock()
	pred := svc.pred
	m.mu.RUnlock()
	out, err := pred.Predict(ctx, instances)
	if err != nil {
		svc.failures.Add(1)
	}
	return out, err
}

func (m *Manager) observe(ctx context.Context, id string, n int, err error, dur time.Duration) {
	// No series for unknown ids.
	if !IsServiceNotFound(err) {
		predictionsTotal.WithLabelValues(id, outcomeOf(err)).Inc()
		predictionDuration.WithLabelValues(id).Observe(dur.Seconds())
	}
	if err == nil {
		instancesTotal.WithLabelValues(id).Add(float64(n))
		m.scored.Add(uint64(n))
	}

	m.mu.RLock()
	rec := m.recorder
	m.mu.RUnlock()
	if rec == nil {
		return
	}
	e := types.JournalEntry{
		Service:    id,
		Instances:  n,
		Status:     StatusOf(err),
		DurationMS: dur.Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if rerr := rec.Record(context.WithoutCancel(ctx), e); rerr != nil {
		m.log.Warn().Err(rerr).Str("service", id).Msg("journal record failed")
	}
}
