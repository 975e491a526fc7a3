package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	// configurator sessions
	Mutations         *prometheus.CounterVec
	Rejected          *prometheus.CounterVec
	WriteFailures     prometheus.Counter
	DegradedSessions  prometheus.Gauge
	ChangelogAppended prometheus.Counter
	ChangelogFailed   prometheus.Counter
	QuoteValue        *prometheus.HistogramVec

	// recovery
	Applied            prometheus.Counter
	Skipped            prometheus.Counter
	TTRSec             prometheus.Gauge
	LastManifestAgeSec prometheus.Gauge

	// checkout
	Checkouts          *prometheus.CounterVec
	CheckoutLatencySec prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "kit_mutations_total"}, []string{"line", "op"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "kit_mutations_rejected_total"}, []string{"line", "op"})
	writeFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "kit_state_write_failures_total"})
	degraded := prometheus.NewGauge(prometheus.GaugeOpts{Name: "kit_degraded_sessions"})
	appended := prometheus.NewCounter(prometheus.CounterOpts{Name: "kit_changelog_appended_total"})
	clFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "kit_changelog_failed_total"})
	quote := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kit_quote_value_dollars",
		Buckets: prometheus.ExponentialBuckets(100, 2, 10),
	}, []string{"line"})

	applied := prometheus.NewCounter(prometheus.CounterOpts{Name: "kit_replay_applied_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "kit_replay_skipped_total"})
	ttr := prometheus.NewGauge(prometheus.GaugeOpts{Name: "kit_recovery_ttr_seconds"})
	lastAge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "kit_last_manifest_age_seconds"})

	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "kit_checkouts_total"}, []string{"line", "result"})
	checkoutLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kit_checkout_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(mutations, rejected, writeFailures, degraded, appended, clFailed, quote,
		applied, skipped, ttr, lastAge, checkouts, checkoutLatency)
	return &Registry{
		reg:                r,
		Mutations:          mutations,
		Rejected:           rejected,
		WriteFailures:      writeFailures,
		DegradedSessions:   degraded,
		ChangelogAppended:  appended,
		ChangelogFailed:    clFailed,
		QuoteValue:         quote,
		Applied:            applied,
		Skipped:            skipped,
		TTRSec:             ttr,
		LastManifestAgeSec: lastAge,
		Checkouts:          checkouts,
		CheckoutLatencySec: checkoutLatency,
	}
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
