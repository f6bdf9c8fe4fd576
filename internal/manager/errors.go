package manager

import (
	"context"
	"errors"
	"net/http"

	"predictd/internal/encoder"
	"predictd/internal/proxy"
	"predictd/internal/wrapper"
)

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ id string }

func (e tooBusyError) Error() string   { return "too busy: " + e.id }
func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

type serviceNotFoundError struct{ id string }

func (e serviceNotFoundError) Error() string   { return "service not found: " + e.id }
func (e serviceNotFoundError) StatusCode() int { return http.StatusNotFound }

// ErrServiceNotFound returns an error for an unknown service id.
func ErrServiceNotFound(id string) error { return serviceNotFoundError{id: id} }

// IsServiceNotFound reports whether the error indicates a missing service id.
func IsServiceNotFound(err error) bool {
	_, ok := err.(serviceNotFoundError)
	return ok
}

// notReadyError is returned while a service is loading or failed to load.
type notReadyError struct{ id, reason string }

func (e notReadyError) Error() string {
	if e.reason == "" {
		return "service not ready: " + e.id
	}
	return "service not ready: " + e.id + ": " + e.reason
}
func (e notReadyError) StatusCode() int { return http.StatusServiceUnavailable }

// IsNotReady reports whether err means the service cannot serve yet.
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}

// IsInvalidInput reports whether err was caused by the request rows.
func IsInvalidInput(err error) bool {
	var ie *encoder.InputError
	return wrapper.IsInvalidInput(err) || errors.As(err, &ie)
}

// IsUpstream reports whether err came from a hosted model.
func IsUpstream(err error) bool { return proxy.IsUpstream(err) }

// StatusOf maps a Predict error to the HTTP status it resolves to.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var he interface{ StatusCode() int }
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		return 499
	}
	return http.StatusInternalServerError
}

// outcomeOf is the metrics label for err.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsInvalidInput(err):
		return "invalid_input"
	case IsTooBusy(err):
		return "busy"
	case IsNotReady(err):
		return "not_ready"
	case IsUpstream(err):
		return "upstream"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}
