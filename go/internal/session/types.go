package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/faceoff/go/internal/models"
)

// CreateSessionRequest represents a request to create a new session.
// Duels arrive fully staffed from matchmaking; deliberations may carry zero
// or one claimed role.
type CreateSessionRequest struct {
	ID           uuid.UUID           `json:"id"`
	Kind         models.SessionKind  `json:"kind"`
	Phase        models.SessionPhase `json:"phase"`
	ParticipantA *models.Participant `json:"participant_a,omitempty"`
	ParticipantB *models.Participant `json:"participant_b,omitempty"`
	Payload      models.Payload      `json:"payload"`
}

// PhaseTransition is a compare-and-set phase update. The write applies only
// if the session is currently in From; Outcome and VotingEndsAt are written
// together with the new phase when set.
type PhaseTransition struct {
	From         models.SessionPhase
	To           models.SessionPhase
	Outcome      *models.Outcome
	VotingEndsAt *time.Time
}
