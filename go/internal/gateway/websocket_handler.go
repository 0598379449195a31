package gateway

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for session connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleSessionConnection handles WebSocket connections for a specific session
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	sessionIDStr := r.URL.Query().Get("session_id")
	if sessionIDStr == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		http.Error(w, "invalid session_id format", http.StatusBadRequest)
		return
	}

	// Extract user ID from query parameter or header
	// In production, this would come from JWT token or session
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		// Spectators may connect anonymously
		userID = "anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID, sessionID); err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}

	// Connection is now handled by the connection manager
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	w.Write([]byte("{"))
	w.Write([]byte("\"total_connections\":" + strconv.Itoa(stats["total_connections"].(int)) + ","))
	w.Write([]byte("\"active_sessions\":" + strconv.Itoa(stats["active_sessions"].(int))))
	w.Write([]byte("}"))
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSessionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
