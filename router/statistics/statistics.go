// Package statistics collects routing latency per route engine. A
// RouteStatistics is owned by whoever owns the router; nothing here is
// process global.
package statistics

import (
	"sync"
	"time"

	"github.com/caio/go-tdigest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

type RouteStatistics struct {
	mu      sync.Mutex
	digests map[string]*tdigest.TDigest

	statements atomic.Uint64
	units      atomic.Uint64
	failures   atomic.Uint64

	routeDuration *prometheus.HistogramVec
	routeUnits    *prometheus.HistogramVec
}

// NewRouteStatistics creates statistics whose Prometheus metrics are
// registered on reg. A nil reg keeps the metrics unregistered.
func NewRouteStatistics(reg prometheus.Registerer) *RouteStatistics {
	factory := promauto.With(reg)
	return &RouteStatistics{
		digests: map[string]*tdigest.TDigest{},
		routeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "shardcore_route_duration_seconds",
			Help: "Statement routing duration in seconds",
			Buckets: []float64{
				0.00001, // 10µs
				0.00005, // 50µs
				0.0001,  // 100µs
				0.0005,  // 500µs
				0.001,   // 1ms
				0.005,   // 5ms
				0.01,    // 10ms
				0.1,     // 100ms
			},
		}, []string{"engine"}),
		routeUnits: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shardcore_route_units",
			Help:    "Number of route units per routed statement",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"engine"}),
	}
}

// RecordRoute records one successfully routed statement.
func (s *RouteStatistics) RecordRoute(engine string, d time.Duration, units int) {
	if s == nil {
		return
	}
	s.statements.Inc()
	s.units.Add(uint64(units))

	s.routeDuration.WithLabelValues(engine).Observe(d.Seconds())
	s.routeUnits.WithLabelValues(engine).Observe(float64(units))

	s.mu.Lock()
	defer s.mu.Unlock()
	td, ok := s.digests[engine]
	if !ok {
		td, _ = tdigest.New()
		s.digests[engine] = td
	}
	_ = td.Add(float64(d.Microseconds()) / 1000)
}

func (s *RouteStatistics) RecordFailure() {
	if s == nil {
		return
	}
	s.failures.Inc()
}

// TimeQuantile returns the q-quantile of routing time in milliseconds for
// the engine, 0 when nothing was recorded.
func (s *RouteStatistics) TimeQuantile(engine string, q float64) float64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	td, ok := s.digests[engine]
	if !ok {
		return 0
	}
	return td.Quantile(q)
}

func (s *RouteStatistics) Statements() uint64 {
	if s == nil {
		return 0
	}
	return s.statements.Load()
}

func (s *RouteStatistics) Units() uint64 {
	if s == nil {
		return 0
	}
	return s.units.Load()
}

func (s *RouteStatistics) Failures() uint64 {
	if s == nil {
		return 0
	}
	return s.failures.Load()
}
