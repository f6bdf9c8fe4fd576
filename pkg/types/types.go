package types

// ServiceStatus summarizes one service for /status.
type ServiceStatus struct {
	// example: german_credit_dtree
	ID string `json:"id" example:"german_credit_dtree"`
	// Lifecycle state (loading, ready, error, draining).
	// example: ready
	State string `json:"state" example:"ready"`
	// Last load or reload error, if any.
	Error string `json:"error,omitempty"`
	// Last time this service served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Requests waiting for a worker slot.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Requests currently being scored.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// example: 3
	Workers int `json:"workers" example:"3"`
	// Total prediction calls served.
	// example: 42
	Requests uint64 `json:"requests_total" example:"42"`
	// Total prediction calls that failed.
	// example: 1
	Failures uint64 `json:"failures_total" example:"1"`
	// Number of successful reloads.
	// example: 0
	Reloads uint64 `json:"reloads_total" example:"0"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Services []ServiceStatus `json:"services"`
	// Overall state: ready when every service is ready.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total instances scored across all services.
	// example: 1200
	InstancesTotal uint64 `json:"instances_total" example:"1200"`
}
