package transport

import (
	"net/http"
	"time"
)

// Response is the outcome of a single request as seen by check predicates.
// A transport failure is reported with Status 0, a nil Body and Err set.
type Response struct {
	Status   int
	Duration time.Duration
	Headers  http.Header
	Body     []byte
	Err      error
}

// Header returns the first value of the named header. The lookup is case-insensitive.
func (r *Response) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// DurationMillis returns the request duration in fractional milliseconds.
func (r *Response) DurationMillis() float64 {
	if r == nil {
		return 0
	}
	return float64(r.Duration) / float64(time.Millisecond)
}

// Failed reports whether the request counts as failed for the
// http_req_failed metric: a transport error or a status outside 200-399.
func (r *Response) Failed() bool {
	if r == nil || r.Err != nil {
		return true
	}
	return r.Status < 200 || r.Status >= 400
}

// Tags are the labels attached to a request and propagated to its metrics.
type Tags map[string]string
