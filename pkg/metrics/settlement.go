package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records webhook-driven settlement activity.
type SettlementMetrics struct {
	webhookReceived    *prometheus.CounterVec
	settlementDuration *prometheus.HistogramVec
	transitions        *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	webhookReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_notifications_total",
		Help: "Gateway webhook notifications by type and outcome.",
	}, []string{"type", "outcome"})
	settlementDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of payment settlement handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions applied by the settlement coordinator.",
	}, []string{"from", "to"})
	sideEffectFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_side_effect_failures_total",
		Help: "Best-effort settlement side effects that failed (cart clear, stock decrement).",
	}, []string{"step"})
	reg.MustRegister(webhookReceived, settlementDuration, transitions, sideEffectFailures)
	return &SettlementMetrics{
		webhookReceived:    webhookReceived,
		settlementDuration: settlementDuration,
		transitions:        transitions,
		sideEffectFailures: sideEffectFailures,
	}
}

// IncWebhook increments the webhook counter for the notification type/outcome.
func (s *SettlementMetrics) IncWebhook(notificationType, outcome string) {
	if s == nil || s.webhookReceived == nil {
		return
	}
	s.webhookReceived.WithLabelValues(normalizeLabel(notificationType), normalizeLabel(outcome)).Inc()
}

// ObserveSettlement records how long settlement handling took for the mapped status.
func (s *SettlementMetrics) ObserveSettlement(status string, duration time.Duration) {
	if s == nil || s.settlementDuration == nil {
		return
	}
	s.settlementDuration.WithLabelValues(normalizeLabel(status)).Observe(duration.Seconds())
}

// IncTransition counts an applied order status transition.
func (s *SettlementMetrics) IncTransition(from, to string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncSideEffectFailure counts a failed best-effort settlement step.
func (s *SettlementMetrics) IncSideEffectFailure(step string) {
	if s == nil || s.sideEffectFailures == nil {
		return
	}
	s.sideEffectFailures.WithLabelValues(normalizeLabel(step)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
