package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service is the session gateway: it owns the WebSocket connection pools,
// the JetStream consumer feeding them, and the read-only snapshot API.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	stateHandler      *StateHandler
	stateProvider     StateProvider
}

// Config holds configuration for the session gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the session gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a new session gateway service
func NewService(config Config, stateProvider StateProvider) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	wsHandler := NewWebSocketHandler(connectionManager)

	eventConsumer, err := NewEventConsumer(connectionManager, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	stateHandler := NewStateHandler(stateProvider)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
		stateHandler:      stateHandler,
		stateProvider:     stateProvider,
	}, nil
}

// Start begins the gateway service
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session gateway service")

	go s.connectionManager.Start(ctx)

	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("session gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service
func (s *Service) Stop() error {
	if err := s.eventConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event consumer")
	}

	// Connection manager will stop when context is cancelled
	log.Info().Msg("session gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and snapshot HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("session gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "session_gateway"
	stats["status"] = "running"
	return stats
}

// BroadcastEvent allows manual event broadcasting (useful for testing)
func (s *Service) BroadcastEvent(sessionID uuid.UUID, event *SessionEvent) {
	s.connectionManager.BroadcastToSession(sessionID, event)
}
