package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricsCollector defines the interface for collecting relay metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordBatchProcessed(count int, duration time.Duration)
	RecordOutboxLag(lag int)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
}
func (n *NoOpMetricsCollector) RecordBatchProcessed(count int, duration time.Duration) {}
func (n *NoOpMetricsCollector) RecordOutboxLag(lag int)                               {}

// LogMetricsCollector writes relay metrics to the debug log until a real
// metrics backend exists.
type LogMetricsCollector struct{}

func NewLogMetricsCollector() *LogMetricsCollector {
	return &LogMetricsCollector{}
}

func (l *LogMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	log.Debug().
		Str("event_type", eventType).
		Bool("success", success).
		Dur("duration", duration).
		Msg("outbox event processed")
}

func (l *LogMetricsCollector) RecordBatchProcessed(count int, duration time.Duration) {
	log.Debug().
		Int("count", count).
		Dur("duration", duration).
		Msg("outbox batch processed")
}

func (l *LogMetricsCollector) RecordOutboxLag(lag int) {
	log.Debug().Int("lag", lag).Msg("outbox lag")
}

// MetricPublisher wraps a Publisher with metrics collection
type MetricPublisher struct {
	publisher Publisher
	metrics   MetricsCollector
}

func NewMetricPublisher(publisher Publisher, metrics MetricsCollector) *MetricPublisher {
	return &MetricPublisher{
		publisher: publisher,
		metrics:   metrics,
	}
}

func (p *MetricPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, event)

	p.metrics.RecordEventProcessed(event.EventType, err == nil, time.Since(start))
	return err
}
