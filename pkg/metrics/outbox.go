package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxPublisherMetrics records outbox relay activity.
type OutboxPublisherMetrics struct {
	published     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	deadLettered  *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// NewOutboxPublisherMetrics registers the publisher metrics on the provided registerer.
func NewOutboxPublisherMetrics(reg prometheus.Registerer) *OutboxPublisherMetrics {
	if reg == nil {
		return &OutboxPublisherMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events successfully published to Pub/Sub.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox publish attempts that failed and will be retried.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_dead_lettered_total",
		Help: "Outbox events routed to the DLQ.",
	}, []string{"reason"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox batch processing in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(published, failed, deadLettered, batchDuration)
	return &OutboxPublisherMetrics{
		published:     published,
		failed:        failed,
		deadLettered:  deadLettered,
		batchDuration: batchDuration,
	}
}

// IncPublished counts a successfully relayed event.
func (o *OutboxPublisherMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed counts a retryable publish failure.
func (o *OutboxPublisherMetrics) IncFailed(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLettered counts an event moved to the DLQ.
func (o *OutboxPublisherMetrics) IncDeadLettered(reason string) {
	if o == nil || o.deadLettered == nil {
		return
	}
	o.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveBatch records how long a poll cycle took.
func (o *OutboxPublisherMetrics) ObserveBatch(duration time.Duration) {
	if o == nil || o.batchDuration == nil {
		return
	}
	o.batchDuration.Observe(duration.Seconds())
}
