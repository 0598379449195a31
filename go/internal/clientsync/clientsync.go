// Package clientsync keeps a client's view of a session in lockstep with
// the store. Each change notification triggers a refetch of the full
// session record, and the fresh record replaces the local copy wholesale.
// Local state is never merged with notification payloads, so out-of-order
// delivery cannot produce a view that no store state ever had.
package clientsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/faceoff/go/internal/models"
)

// SessionFetcher reads the authoritative session record.
type SessionFetcher interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Config holds configuration for the sync client
type Config struct {
	URL           string
	SubjectPrefix string
	FetchTimeout  time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default sync client configuration
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "session.events",
		FetchTimeout:  5 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Client multiplexes per-session subscriptions over one NATS connection.
type Client struct {
	nc      *nats.Conn
	fetcher SessionFetcher
	config  Config
}

// NewClient connects to NATS and returns a sync client.
func NewClient(fetcher SessionFetcher, config Config) (*Client, error) {
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

	return &Client{nc: nc, fetcher: fetcher, config: config}, nil
}

// Subscription is a live watch on one session. Unsubscribe is safe to call
// more than once and always detaches the NATS subscription.
type Subscription struct {
	sessionID uuid.UUID
	sub       *nats.Subscription
	cancel    context.CancelFunc
	once      sync.Once
}

// Subscribe watches a session. The current record is fetched and delivered
// first, then a fresh copy after every event on the session. The callback
// runs on the subscription's own goroutine, one invocation at a time, so a
// slow handler cannot reorder records.
func (c *Client) Subscribe(sessionID uuid.UUID, onChange func(*models.Session)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Coalescing channel: while a refetch is in flight, any number of
	// further notifications collapse into one pending wake.
	wake := make(chan struct{}, 1)

	subject := fmt.Sprintf("%s.%s.>", c.config.SubjectPrefix, sessionID)
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	// Seed one wake so the subscriber starts from the authoritative record
	// instead of holding nothing until the session next changes.
	wake <- struct{}{}

	go c.syncLoop(ctx, sessionID, wake, onChange)

	log.Debug().
		Str("session_id", sessionID.String()).
		Str("subject", subject).
		Msg("session subscription started")

	return &Subscription{sessionID: sessionID, sub: sub, cancel: cancel}, nil
}

// syncLoop refetches the session once per wake and hands the fresh record
// to onChange. The record always replaces the previous one wholesale.
func (c *Client) syncLoop(ctx context.Context, sessionID uuid.UUID, wake <-chan struct{}, onChange func(*models.Session)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			fetchCtx, fetchCancel := context.WithTimeout(ctx, c.config.FetchTimeout)
			sess, err := c.fetcher.GetSession(fetchCtx, sessionID)
			fetchCancel()
			if err != nil {
				log.Error().Err(err).
					Str("session_id", sessionID.String()).
					Msg("failed to refetch session after notification")
				continue
			}
			onChange(sess)
		}
	}
}

// Unsubscribe stops the watch and releases the NATS subscription.
func (s *Subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.sub.Unsubscribe()
		log.Debug().
			Str("session_id", s.sessionID.String()).
			Msg("session subscription stopped")
	})
	return err
}

// Close drains the NATS connection. Outstanding subscriptions die with it.
func (c *Client) Close() {
	c.nc.Close()
}
