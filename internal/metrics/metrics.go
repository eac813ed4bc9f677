// Package metrics exposes Prometheus instrumentation for the scan and
// backtest pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"net/http"
)

// Registry holds the pipeline metrics. Each process builds its own so
// tests can instantiate registries freely.
type Registry struct {
	reg *prometheus.Registry

	TickersAnalyzed *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	CandidatesFound prometheus.Gauge
	ProviderErrors  *prometheus.CounterVec
	TradesSimulated *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		TickersAnalyzed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnscan_tickers_analyzed_total",
				Help: "Tickers processed by the scanner, by outcome",
			},
			[]string{"outcome"}, // scored, excluded, error
		),

		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "earnscan_scan_duration_seconds",
				Help:    "Wall time of a full universe scan",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		CandidatesFound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "earnscan_candidates_found",
				Help: "Candidates surviving filters in the latest scan",
			},
		),

		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnscan_provider_errors_total",
				Help: "Upstream data provider failures by endpoint",
			},
			[]string{"endpoint"},
		),

		TradesSimulated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnscan_trades_simulated_total",
				Help: "Simulated trades closed, by exit reason",
			},
			[]string{"exit_reason"},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "earnscan_fundamentals_cache_hits_total",
				Help: "Fundamentals cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "earnscan_fundamentals_cache_misses_total",
				Help: "Fundamentals cache misses",
			},
		),
	}

	r.reg.MustRegister(
		r.TickersAnalyzed,
		r.ScanDuration,
		r.CandidatesFound,
		r.ProviderErrors,
		r.TradesSimulated,
		r.CacheHits,
		r.CacheMisses,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ScanTimer times one universe scan.
type ScanTimer struct {
	registry *Registry
	start    time.Time
}

func (r *Registry) StartScanTimer() *ScanTimer {
	return &ScanTimer{registry: r, start: time.Now()}
}

// Stop records the scan duration and the candidate count.
func (t *ScanTimer) Stop(candidates int) {
	elapsed := time.Since(t.start)
	t.registry.ScanDuration.Observe(elapsed.Seconds())
	t.registry.CandidatesFound.Set(float64(candidates))

	log.Debug().
		Dur("duration", elapsed).
		Int("candidates", candidates).
		Msg("scan timing recorded")
}
