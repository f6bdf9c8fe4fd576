package proxy

// upstreamError signals a hosted model failure; the API maps it to 502.
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string   { return e.msg }
func (e upstreamError) StatusCode() int { return 502 }

// UpstreamStatus is the status the hosted model answered with, 0 if none.
func (e upstreamError) UpstreamStatus() int { return e.status }

// IsUpstream reports whether err came from the hosted model.
func IsUpstream(err error) bool {
	_, ok := err.(upstreamError)
	return ok
}
