package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/api/ingestions", "201", 20*time.Millisecond)
	m.ObserveAPI("POST", "/api/ingestions", "503", 20*time.Millisecond)
	m.ObserveAggregateOperation("imaging.hierarchy.ingest", "success", 5*time.Millisecond)
	m.IncAggregateConflict("imaging.hierarchy.ingest")
	m.IncInstanceIngested("CT", true, true)
	m.IncSignoff("TECHNICIAN_VERIFY", "success")
	m.ObserveSigningCall("sign", "ok", 100*time.Millisecond)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`rf_api_requests_total{method="POST",route="/api/ingestions",status="201"} 1.000000`,
		`rf_api_requests_error_total 1.000000`,
		`rf_aggregate_operations_total{operation="imaging.hierarchy.ingest",status="success"} 1.000000`,
		`rf_aggregate_conflicts_total{operation="imaging.hierarchy.ingest"} 1.000000`,
		`rf_instances_ingested_total{modality="CT",created="study"} 1.000000`,
		`rf_signoff_transitions_total{signature_type="TECHNICIAN_VERIFY",outcome="success"} 1.000000`,
		`rf_signing_call_duration_seconds_bucket{operation="sign",status="ok",le="0.1"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.IncAggregateRetry("op")
	m.IncVerification("valid")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestLabelString(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: %s", got)
	}
}
