package manager

// Event represents a service lifecycle event.
// Minimal and stable: name + service ID and optional fields via key/values.
type Event struct {
	Name      string
	ServiceID string
	Fields    map[string]any
}

// Event names.
const (
	EventLoadStart     = "load_start"
	EventLoadReady     = "load_ready"
	EventLoadFailed    = "load_failed"
	EventReloadDone    = "reload_done"
	EventReloadFailed  = "reload_failed"
	EventUnloadStart   = "unload_start"
	EventUnloadTimeout = "unload_timeout"
	EventUnloadDone    = "unload_done"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
