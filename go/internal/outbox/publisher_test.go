package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// The server's shutdown path closes the publisher and checks the error, so
// Close carrying an error return is part of the contract even though the
// Publisher interface only names Publish.
var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*MetricPublisher)(nil)

	_ interface{ Close() error } = (*NATSPublisher)(nil)

	_ MetricsCollector = (*NoOpMetricsCollector)(nil)
	_ MetricsCollector = (*LogMetricsCollector)(nil)
)

// TestNATSPublisherCloseWithoutConnection verifies Close is a safe no-op
// when no connection was ever established.
func TestNATSPublisherCloseWithoutConnection(t *testing.T) {
	p := &NATSPublisher{}
	if err := p.Close(); err != nil {
		t.Fatalf("Close on unconnected publisher: %v", err)
	}
}

type recordingCollector struct {
	mu        sync.Mutex
	eventType string
	success   bool
	calls     int
}

func (c *recordingCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventType = eventType
	c.success = success
	c.calls++
}

func (c *recordingCollector) RecordBatchProcessed(count int, duration time.Duration) {}
func (c *recordingCollector) RecordOutboxLag(lag int)                                {}

type stubPublisher struct {
	err error
}

func (p *stubPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	return p.err
}

// TestMetricPublisherRecordsOutcome verifies the wrapper records one
// processed-event sample per publish, tagged with the event type and
// whether the underlying publish succeeded.
func TestMetricPublisherRecordsOutcome(t *testing.T) {
	event := OutboxEvent{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		EventType: EventTypeVoteCast,
		Payload:   []byte(`{}`),
	}

	collector := &recordingCollector{}
	mp := NewMetricPublisher(&stubPublisher{}, collector)
	if err := mp.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if collector.calls != 1 {
		t.Fatalf("recorded %d samples, want 1", collector.calls)
	}
	if collector.eventType != EventTypeVoteCast || !collector.success {
		t.Fatalf("recorded (%s, success=%t), want (%s, success=true)",
			collector.eventType, collector.success, EventTypeVoteCast)
	}

	broken := errors.New("broker down")
	mp = NewMetricPublisher(&stubPublisher{err: broken}, collector)
	if err := mp.Publish(context.Background(), event); !errors.Is(err, broken) {
		t.Fatalf("Publish error = %v, want %v", err, broken)
	}
	if collector.success {
		t.Fatal("failed publish recorded as success")
	}
}
