package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// PublisherConfig holds configuration for the JetStream publisher
type PublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string // e.g. "session.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultPublisherConfig returns default JetStream publisher configuration
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "SESSION_EVENTS",
		SubjectPrefix: "session.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes outbox events to a JetStream stream. Subjects are
// <prefix>.<session_id>.<event_type> so the gateway and client subscriptions
// can filter per session.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config PublisherConfig
}

// NewNATSPublisher connects to NATS and ensures the stream exists.
func NewNATSPublisher(config PublisherConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &NATSPublisher{nc: nc, js: js, config: config}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      p.config.StreamName,
		Subjects:  []string{p.config.SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create or update stream %s: %w", p.config.StreamName, err)
	}
	return nil
}

// Publish sends one event. The message ID is the outbox row ID so JetStream
// deduplicates redelivery from the relay's at-least-once loop.
func (p *NATSPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	subject := fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, event.SessionID, event.EventType)

	envelope := map[string]interface{}{
		"eventId":   event.ID.String(),
		"eventType": event.EventType,
		"sessionId": event.SessionID.String(),
		"timestamp": event.CreatedAt,
		"payload":   json.RawMessage(event.Payload),
	}
	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.js.Publish(ctx, subject, messageBytes, jetstream.WithMsgID(event.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Msg("event published")
	return nil
}

// Close drains the NATS connection so buffered publishes flush before the
// process exits.
func (p *NATSPublisher) Close() error {
	if p.nc == nil || p.nc.IsClosed() {
		return nil
	}
	return p.nc.Drain()
}

// LogPublisher is an in-memory publisher for development without a broker.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("session_id", event.SessionID.String()).
		Msg("publishing event")
	return nil
}
