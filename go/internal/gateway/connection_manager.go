package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections for session events.
// Participants and spectators share the same pools; everyone watching a
// session receives the same broadcasts.
type ConnectionManager struct {
	// Connection pools organized by session ID
	sessionConnections map[uuid.UUID]map[*Connection]bool
	mu                 sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Event broadcasting
	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID        string
	UserID    string
	SessionID uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	SessionID uuid.UUID
	Event     *SessionEvent
	UserID    string // Optional: if set, only send to this user
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // 1KB max message size
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		sessionConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000), // Buffer for high throughput
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, sessionID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		SessionID:   sessionID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("session_id", sessionID.String()).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.sessionConnections[conn.SessionID] == nil {
		cm.sessionConnections[conn.SessionID] = make(map[*Connection]bool)
	}
	cm.sessionConnections[conn.SessionID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID.String()).
		Int("total_connections", len(cm.sessionConnections[conn.SessionID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.sessionConnections[conn.SessionID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			// Clean up empty session connection pools
			if len(connections) == 0 {
				delete(cm.sessionConnections, conn.SessionID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Str("session_id", conn.SessionID.String()).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToSession sends an event to all connections for a specific session
func (cm *ConnectionManager) BroadcastToSession(sessionID uuid.UUID, event *SessionEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: event}:
	default:
		log.Warn().Str("session_id", sessionID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToUser sends an event to a specific user in a session
func (cm *ConnectionManager) BroadcastToUser(sessionID uuid.UUID, userID string, event *SessionEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: event, UserID: userID}:
	default:
		log.Warn().
			Str("session_id", sessionID.String()).
			Str("user_id", userID).
			Msg("broadcast channel full, dropping user message")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.sessionConnections[message.SessionID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Create a snapshot of connections to avoid holding lock during broadcast
	var targetConnections []*Connection
	for conn := range connections {
		// Filter by user if specified
		if message.UserID != "" && conn.UserID != message.UserID {
			continue
		}
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	// Marshal the event once
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targetConnections {
		select {
		case conn.Send <- eventData:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("session_id", message.SessionID.String()).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	totalConnections := 0
	sessionCounts := make(map[string]int)

	for sessionID, connections := range cm.sessionConnections {
		count := len(connections)
		totalConnections += count
		sessionCounts[sessionID.String()] = count
	}

	return map[string]interface{}{
		"total_connections":   totalConnections,
		"active_sessions":     len(cm.sessionConnections),
		"session_connections": sessionCounts,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage processes messages received from the client. All
// actions go through the HTTP API; the socket is downstream-only, so
// anything the client sends is just logged.
func (c *Connection) handleClientMessage(message []byte) {
	log.Debug().
		Str("connection_id", c.ID).
		Str("user_id", c.UserID).
		RawJSON("message", message).
		Msg("received client message")
}
