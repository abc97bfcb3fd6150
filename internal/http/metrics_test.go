package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrichard23/connectedin/internal/observability/metrics"
)

type recordedMetric struct {
	name string
	tags map[string]string
}

type fakeSink struct {
	mu      sync.Mutex
	counts  []recordedMetric
	timings []recordedMetric
}

func (s *fakeSink) Count(name string, _ int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, recordedMetric{name: name, tags: tags})
}

func (s *fakeSink) Timing(name string, _ time.Duration, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timings = append(s.timings, recordedMetric{name: name, tags: tags})
}

func TestRouter_RecordsRequestMetrics(t *testing.T) {
	sink := &fakeSink{}
	h := NewRouter(RouterServices{
		Churches: &fakeChurchService{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  metrics.New(sink),
	})

	for _, path := range []string{"/healthz", "/nowhere"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, sink.counts, 2)
	assert.Equal(t, map[string]string{
		"method": "GET", "route": "GET /healthz", "status": "200", "class": "2xx",
	}, sink.counts[0].tags)
	assert.Equal(t, "unmatched", sink.counts[1].tags["route"])
	assert.Equal(t, "404", sink.counts[1].tags["status"])

	require.Len(t, sink.timings, 2)
	assert.Equal(t, "http.duration", sink.timings[0].name)
}

func TestMetrics_NilRecorderPassesThrough(t *testing.T) {
	h := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/churches", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
