package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Packet("ChatMessage", OutcomeRewritten)
	m.Packet("ChatMessage", OutcomeRewritten)
	m.Rewrite("chat", "admin")
	m.FieldError("sign_line")
	m.Fallback("timeout")
	m.Reload("file", true, 3, 12)
	m.Reload("redis", false, 0, 0)
	m.Connections(1)

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("expected metrics gather to succeed: %v", err)
	}
	if v := testutil.ToFloat64(m.packetsTotal.WithLabelValues("ChatMessage", OutcomeRewritten)); v != 2 {
		t.Errorf("packets: got %v", v)
	}
	if v := testutil.ToFloat64(m.generation); v != 3 {
		t.Errorf("generation: got %v", v)
	}
	if v := testutil.ToFloat64(m.rules); v != 12 {
		t.Errorf("rules gauge must keep the last good value, got %v", v)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Packet("x", OutcomePassed)
	m.Rewrite("chat", "r")
	m.FieldError("chat")
	m.Fallback("timeout")
	m.Reload("file", true, 1, 1)
	m.Connections(-1)
}
