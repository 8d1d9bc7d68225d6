// Package metrics exposes matching engine and similarity cache instrumentation
// in Prometheus format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spigell/care-matcher/internal/similarity"
)

const namespace = "care_matcher"

// Recorder collects engine events into its own registry. A nil *Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	matches    *prometheus.CounterVec
	evaluated  *prometheus.CounterVec
	rejections *prometheus.CounterVec
	results    prometheus.Histogram
	duration   prometheus.Histogram
}

// New returns a Recorder backed by a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		matches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "matches_total",
				Help:      "Total number of match calls by terminal phase",
			},
			[]string{"outcome"},
		),
		evaluated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_evaluated_total",
				Help:      "Total number of candidates run through the filter pipeline",
			},
			[]string{"phase"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filter_rejections_total",
				Help:      "Total number of candidates rejected, by filter",
			},
			[]string{"phase", "filter"},
		),
		results: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "match_results",
				Help:      "Number of results returned per match",
				Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
			},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "match_duration_seconds",
				Help:      "Duration of match calls in seconds",
			},
		),
	}
}

// CandidatesEvaluated counts candidates evaluated in a phase.
func (r *Recorder) CandidatesEvaluated(phase string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.evaluated.WithLabelValues(phase).Add(float64(n))
}

// Rejected counts one rejection by filter.
func (r *Recorder) Rejected(phase, filter string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(phase, filter).Inc()
}

// MatchCompleted records the outcome of one match call.
func (r *Recorder) MatchCompleted(outcome string, results int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.matches.WithLabelValues(outcome).Inc()
	r.results.Observe(float64(results))
	r.duration.Observe(elapsed.Seconds())
}

// ObserveOracle exports the similarity cache counters, read at scrape time.
func (r *Recorder) ObserveOracle(stats func() similarity.Stats) error {
	if r == nil || stats == nil {
		return nil
	}

	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "similarity",
			Name:      "cache_hits_total",
			Help:      "Similarity lookups served from the cache",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "similarity",
			Name:      "cache_misses_total",
			Help:      "Similarity lookups that had to be computed",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "similarity",
			Name:      "embedding_failures_total",
			Help:      "Embedding calls that fell back to lexical similarity",
		}, func() float64 { return float64(stats().EmbedFailures) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "similarity",
			Name:      "cached_pairs",
			Help:      "Number of skill pairs held in the cache",
		}, func() float64 { return float64(stats().CachedPairs) }),
	}

	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return fmt.Errorf("register similarity collector: %w", err)
		}
	}
	return nil
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteToTextfile writes every metric to path in the Prometheus text format.
func (r *Recorder) WriteToTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %q: %w", path, err)
	}
	return nil
}
