// Package metrics defines the counters and timers emitted by the API and the session core.
package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/johnrichard23/connectedin/internal/observability/errors"
)

// Sink receives metrics. *statsd.Client satisfies it.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Timing(name string, d time.Duration, tags map[string]string)
}

// CacheResult is the outcome of a cache read.
type CacheResult string

const (
	CacheHit   CacheResult = "hit"
	CacheMiss  CacheResult = "miss"
	CacheError CacheResult = "error"
)

// Recorder emits named metrics to a Sink. A nil *Recorder records nothing.
type Recorder struct {
	sink Sink
}

// New returns a Recorder for sink, or nil when sink is nil.
func New(sink Sink) *Recorder {
	if sink == nil {
		return nil
	}
	return &Recorder{sink: sink}
}

// HTTPRequest records one served request. route is the mux pattern, not the raw path.
func (r *Recorder) HTTPRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	tags := map[string]string{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
		"class":  strconv.Itoa(status/100) + "xx",
	}
	r.sink.Count("http.requests", 1, tags)
	r.sink.Timing("http.duration", d, tags)
}

// CacheLookup records a read against a named cache.
func (r *Recorder) CacheLookup(cache string, result CacheResult) {
	if r == nil {
		return
	}
	r.sink.Count("cache.lookup", 1, map[string]string{"cache": cache, "result": string(result)})
}

// AuthOutcome records the end of an authentication flow. A nil err is a success.
func (r *Recorder) AuthOutcome(flow string, err error) {
	if r == nil {
		return
	}
	tags := map[string]string{"flow": flow, "outcome": "success"}
	if err != nil {
		tags["outcome"] = "failure"
		tags["error_type"] = obserrors.Classify(err)
	}
	r.sink.Count("auth.flow", 1, tags)
}

// StateTransition records a session state change.
func (r *Recorder) StateTransition(from, to string) {
	if r == nil {
		return
	}
	r.sink.Count("session.transition", 1, map[string]string{"from": from, "to": to})
}
