package duel

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service exposes duel operations over JSON HTTP.
type Service struct {
	app *App
}

// NewService creates a new duel Service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// HandleCreateDuel handles POST /api/duels
func (s *Service) HandleCreateDuel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.app.CreateDuel(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("create duel failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// HandleSubmitAnswer handles POST /api/duels/answer
func (s *Service) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	progress, err := s.app.SubmitAnswer(r.Context(), req)
	if err != nil {
		writeAnswerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// RegisterRoutes registers duel HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/duels", s.HandleCreateDuel)
	mux.HandleFunc("/api/duels/answer", s.HandleSubmitAnswer)
}

// writeAnswerError maps coordinator errors to status codes. Expected races
// get specific messages a client can act on, not generic failures.
func writeAnswerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAlreadyComplete):
		writeErrorJSON(w, http.StatusConflict, "ALREADY_COMPLETE", "you have already answered every question")
	case errors.Is(err, ErrNotParticipant):
		writeErrorJSON(w, http.StatusForbidden, "NOT_PARTICIPANT", "only the two participants may submit answers")
	default:
		log.Error().Err(err).Msg("submit answer failed")
		writeErrorJSON(w, http.StatusInternalServerError, "STORE_UNAVAILABLE", "could not record the answer, please retry")
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
