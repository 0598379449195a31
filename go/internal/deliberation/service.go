package deliberation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service exposes deliberation operations over JSON HTTP.
type Service struct {
	app *App
}

// NewService creates a new deliberation Service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// HandleCreateDeliberation handles POST /api/deliberations
func (s *Service) HandleCreateDeliberation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateDeliberationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.app.CreateDeliberation(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("create deliberation failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// HandleClaimRole handles POST /api/deliberations/claim
func (s *Service) HandleClaimRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ClaimRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.app.ClaimRole(r.Context(), req)
	if err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// HandleSubmitArgument handles POST /api/deliberations/argument
func (s *Service) HandleSubmitArgument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitArgumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	arg, err := s.app.SubmitArgument(r.Context(), req)
	if err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, arg)
}

// HandleCastVote handles POST /api/deliberations/vote
func (s *Service) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	vote, err := s.app.CastVote(r.Context(), req)
	if err != nil {
		writeActionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, vote)
}

// RegisterRoutes registers deliberation HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/deliberations", s.HandleCreateDeliberation)
	mux.HandleFunc("/api/deliberations/claim", s.HandleClaimRole)
	mux.HandleFunc("/api/deliberations/argument", s.HandleSubmitArgument)
	mux.HandleFunc("/api/deliberations/vote", s.HandleCastVote)
}

// writeActionError maps coordinator errors to status codes. The lost-race
// conditions are expected outcomes and get specific, actionable messages.
func writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRoleAlreadyTaken):
		writeErrorJSON(w, http.StatusConflict, "ROLE_ALREADY_TAKEN", "this role was just taken by someone else")
	case errors.Is(err, ErrAlreadyParticipant):
		writeErrorJSON(w, http.StatusConflict, "ALREADY_PARTICIPANT", "you already hold a role in this session")
	case errors.Is(err, ErrAlreadySubmitted):
		writeErrorJSON(w, http.StatusConflict, "ALREADY_SUBMITTED", "an argument was already submitted for this role")
	case errors.Is(err, ErrAlreadyVoted):
		writeErrorJSON(w, http.StatusConflict, "ALREADY_VOTED", "you have already voted in this session")
	case errors.Is(err, ErrVotingClosed):
		writeErrorJSON(w, http.StatusConflict, "VOTING_CLOSED", "voting is not open for this session")
	case errors.Is(err, ErrNotParticipant):
		writeErrorJSON(w, http.StatusForbidden, "NOT_PARTICIPANT", "only the two participants may do this")
	default:
		log.Error().Err(err).Msg("deliberation action failed")
		writeErrorJSON(w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "could not apply the action, please retry")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
