package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/radflow-backend/internal/observability"
)

// Hooks receives the outcome of every aggregate write, keyed by op name
// (imaging.hierarchy.ingest, imaging.signoff.technician_verify,
// imaging.signoff.radiologist_approve). Status is "success" or the aggregate
// error code. Conflicts count duplicate instances and lost sign-off races;
// retries count lock and signing-service timeouts.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks feeds rf_aggregate_operations_total, its latency
// histogram, and the conflict and retry counters. A nil metrics value
// disables reporting.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}
