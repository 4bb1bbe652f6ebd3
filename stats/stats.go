// Package stats exposes Prometheus counters/gauges for session-level
// telemetry: pages transferred, retrains, PPR rounds, CRC failures, and
// gateway suppressed-frame counts. Registration is against a
// caller-supplied *prometheus.Registry rather than the global default
// registry, so a
// process can run multiple independent fax stacks without metric
// collisions.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters/gauges for one fax stack instance.
type Metrics struct {
	PagesTransferred   *prometheus.CounterVec
	Retrains           prometheus.Counter
	PPRRounds          prometheus.Counter
	CRCFailures        prometheus.Counter
	GatewaySuppressed  prometheus.Counter
	ActiveSessions     prometheus.Gauge
	CallDuration       prometheus.Histogram
}

// NewMetrics constructs and registers a Metrics against reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	var m = &Metrics{
		PagesTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gofax_pages_transferred_total",
			Help: "The total number of fax pages transferred",
		}, []string{"direction"}),
		Retrains: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofax_retrains_total",
			Help: "The total number of modem retrains (FTT/RTN fallbacks)",
		}),
		PPRRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofax_ppr_rounds_total",
			Help: "The total number of ECM partial-page-request round trips",
		}),
		CRCFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofax_crc_failures_total",
			Help: "The total number of HDLC frames received with a bad CRC",
		}),
		GatewaySuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gofax_gateway_suppressed_packets_total",
			Help: "The total number of duplicate IFP packets suppressed by the gateway",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gofax_active_sessions",
			Help: "The current number of in-progress fax sessions",
		}),
		CallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gofax_call_duration_seconds",
			Help:    "Duration of completed fax calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.register(reg)
	return m
}

func (m *Metrics) register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.PagesTransferred,
		m.Retrains,
		m.PPRRounds,
		m.CRCFailures,
		m.GatewaySuppressed,
		m.ActiveSessions,
		m.CallDuration,
	)
}

func (m *Metrics) RecordPage(direction string) {
	m.PagesTransferred.WithLabelValues(direction).Inc()
}

func (m *Metrics) RecordRetrain() {
	m.Retrains.Inc()
}

func (m *Metrics) RecordPPRRound() {
	m.PPRRounds.Inc()
}

func (m *Metrics) RecordCRCFailure() {
	m.CRCFailures.Inc()
}

func (m *Metrics) RecordGatewaySuppressed() {
	m.GatewaySuppressed.Inc()
}

func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionEnded(durationSeconds float64) {
	m.ActiveSessions.Dec()
	m.CallDuration.Observe(durationSeconds)
}
