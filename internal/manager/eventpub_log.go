package manager

import "github.com/rs/zerolog"

// LogPublisher writes events to a zerolog logger. Failures log at warn.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Info()
	switch e.Name {
	case EventLoadFailed, EventReloadFailed, EventUnloadTimeout:
		ev = p.Log.Warn()
	}
	ev.Str("event", e.Name).Str("service", e.ServiceID).Fields(e.Fields).Msg("service event")
}
