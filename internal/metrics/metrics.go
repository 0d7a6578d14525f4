// Package metrics exposes Prometheus counters for the screening pipeline.
// A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheStale   = "stale"
	CacheCorrupt = "corrupt"
)

// Registry holds all screener metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	CacheLookups    *prometheus.CounterVec
	ProviderFetches *prometheus.CounterVec
	TickerOutcomes  *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	LastCandidates  prometheus.Gauge
}

// New creates and registers all metrics.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_cache_lookups_total",
				Help: "Cache lookups by result (hit, miss, stale, corrupt)",
			},
			[]string{"result"},
		),
		ProviderFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_provider_fetches_total",
				Help: "Provider fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		TickerOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_tickers_total",
				Help: "Screened tickers by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "screener_run_duration_seconds",
				Help:    "Duration of a full screening run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
			},
		),
		LastCandidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "screener_last_run_candidates",
				Help: "Number of candidates produced by the most recent run",
			},
		),
	}
	r.reg.MustRegister(r.CacheLookups, r.ProviderFetches, r.TickerOutcomes, r.RunDuration, r.LastCandidates)
	return r
}

// Gatherer returns the underlying registry for scraping or tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// CacheLookup counts one cache lookup.
func (r *Registry) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// ProviderFetch counts one provider call.
func (r *Registry) ProviderFetch(source, outcome string) {
	if r == nil {
		return
	}
	r.ProviderFetches.WithLabelValues(source, outcome).Inc()
}

// TickerOutcome counts one screened ticker.
func (r *Registry) TickerOutcome(outcome string) {
	if r == nil {
		return
	}
	r.TickerOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRun records a completed run.
func (r *Registry) ObserveRun(d time.Duration, candidates int) {
	if r == nil {
		return
	}
	r.RunDuration.Observe(d.Seconds())
	r.LastCandidates.Set(float64(candidates))
}
