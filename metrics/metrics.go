package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil safe: a nil *Metrics records nothing.
type Metrics struct {
	packetsTotal   *prometheus.CounterVec
	rewritesTotal  *prometheus.CounterVec
	fieldErrors    *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	reloadsTotal   *prometheus.CounterVec
	generation     prometheus.Gauge
	rules          prometheus.Gauge
	connections    prometheus.Gauge
}

const (
	OutcomePassed    = "passed"
	OutcomeRewritten = "rewritten"
	OutcomeMismatch  = "mismatch"
)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		packetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "msgproxy_text_packets_total", Help: "Text carrying packets seen by the interceptor"},
			[]string{"packet", "outcome"},
		),
		rewritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "msgproxy_rewrites_total", Help: "Text fields rewritten"},
			[]string{"kind", "rule_id"},
		),
		fieldErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "msgproxy_field_errors_total", Help: "Rewritten text that could not be encoded back"},
			[]string{"kind"},
		),
		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "msgproxy_placeholder_fallbacks_total", Help: "Placeholders left as literal text"},
			[]string{"reason"},
		),
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "msgproxy_rule_reloads_total", Help: "Rule set reload attempts"},
			[]string{"source", "result"},
		),
		generation: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "msgproxy_rule_generation", Help: "Active rule set generation"},
		),
		rules: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "msgproxy_rules", Help: "Rules in the active rule set"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "msgproxy_connections", Help: "Players connected through the proxy"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.packetsTotal,
		m.rewritesTotal,
		m.fieldErrors,
		m.fallbacksTotal,
		m.reloadsTotal,
		m.generation,
		m.rules,
		m.connections,
	)
	return m
}

func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Packet(packet, outcome string) {
	if m == nil {
		return
	}
	m.packetsTotal.WithLabelValues(packet, outcome).Inc()
}

func (m *Metrics) Rewrite(kind, ruleID string) {
	if m == nil {
		return
	}
	m.rewritesTotal.WithLabelValues(kind, ruleID).Inc()
}

func (m *Metrics) FieldError(kind string) {
	if m == nil {
		return
	}
	m.fieldErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Fallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) Reload(source string, ok bool, generation uint64, rules int) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.reloadsTotal.WithLabelValues(source, result).Inc()
	if ok {
		m.generation.Set(float64(generation))
		m.rules.Set(float64(rules))
	}
}

func (m *Metrics) Connections(delta int) {
	if m == nil {
		return
	}
	m.connections.Add(float64(delta))
}
