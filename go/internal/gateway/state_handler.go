package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/faceoff/go/internal/models"
)

// StateProvider interface defines methods for retrieving session state
type StateProvider interface {
	GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionStateResponse, error)
	GetSessionTally(ctx context.Context, sessionID uuid.UUID) (*TallyResponse, error)
}

// SessionStateResponse is the full snapshot a client rebuilds its view
// from. Duel question answer keys are stripped; only the server compares
// them.
type SessionStateResponse struct {
	SessionID    string                          `json:"session_id"`
	Kind         models.SessionKind              `json:"kind"`
	Phase        models.SessionPhase             `json:"phase"`
	ParticipantA *models.Participant             `json:"participant_a,omitempty"`
	ParticipantB *models.Participant             `json:"participant_b,omitempty"`
	Rules        *models.DuelRules               `json:"rules,omitempty"`
	Questions    []PublicQuestion                `json:"questions,omitempty"`
	CaseTitle    string                          `json:"case_title,omitempty"`
	CaseText     string                          `json:"case_text,omitempty"`
	ProgressA    *models.Progress                `json:"progress_a,omitempty"`
	ProgressB    *models.Progress                `json:"progress_b,omitempty"`
	Arguments    map[models.Role]*models.Argument `json:"arguments,omitempty"`
	Tally        *models.Tally                   `json:"tally,omitempty"`
	Outcome      *models.Outcome                 `json:"outcome,omitempty"`
	VotingEndsAt *time.Time                      `json:"voting_ends_at,omitempty"`
	TimeLeftSec  *int                            `json:"voting_time_left_sec,omitempty"`
}

// PublicQuestion is a quiz question without its answer key.
type PublicQuestion struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// TallyResponse is the current vote count for a deliberation.
type TallyResponse struct {
	SessionID string `json:"session_id"`
	VotesA    int    `json:"votes_a"`
	VotesB    int    `json:"votes_b"`
	Total     int    `json:"total"`
}

// StateHandler handles HTTP requests for session state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetSessionState handles GET /api/sessions/{id}/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, ok := sessionIDFromPath(r.URL.Path, "/state")
	if !ok {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	state, err := h.stateProvider.GetSessionState(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get session state")
		http.Error(w, "Failed to get session state", http.StatusInternalServerError)
		return
	}

	// Time remaining is computed at response time so clients never need a
	// synchronized clock.
	if state.Phase == models.SessionPhaseVoting && state.VotingEndsAt != nil {
		remaining := int(time.Until(*state.VotingEndsAt).Seconds())
		if remaining > 0 {
			state.TimeLeftSec = &remaining
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode session state response")
	}
}

// HandleGetSessionTally handles GET /api/sessions/{id}/tally
func (h *StateHandler) HandleGetSessionTally(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, ok := sessionIDFromPath(r.URL.Path, "/tally")
	if !ok {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	tally, err := h.stateProvider.GetSessionTally(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get session tally")
		http.Error(w, "Failed to get session tally", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tally); err != nil {
		log.Error().Err(err).Msg("failed to encode tally response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("path", r.URL.Path).Msg("state handler received request")

		switch {
		case strings.HasSuffix(r.URL.Path, "/state"):
			h.HandleGetSessionState(w, r)
		case strings.HasSuffix(r.URL.Path, "/tally"):
			h.HandleGetSessionTally(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// sessionIDFromPath extracts the session ID from a path like
// /api/sessions/{id}/state.
func sessionIDFromPath(path, suffix string) (uuid.UUID, bool) {
	const prefix = "/api/sessions/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return uuid.Nil, false
	}
	idStr := path[len(prefix) : len(path)-len(suffix)]
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
