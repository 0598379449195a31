package deliberation

import (
	"github.com/google/uuid"

	"github.com/mcdev12/faceoff/go/internal/models"
)

// CreateDeliberationRequest opens a deliberation session. Initiator is
// optional; when set, InitiatorRole names the slot they take immediately.
type CreateDeliberationRequest struct {
	Initiator     *models.Participant `json:"initiator,omitempty"`
	InitiatorRole models.Role         `json:"initiator_role,omitempty"`
	Payload       models.Payload      `json:"payload"`
}

// ClaimRoleRequest asks for one side of an open deliberation.
type ClaimRoleRequest struct {
	SessionID uuid.UUID   `json:"session_id"`
	Role      models.Role `json:"role"`
	UserID    string      `json:"user_id"`
	UserName  string      `json:"user_name"`
}

// SubmitArgumentRequest carries a participant's single written position.
type SubmitArgumentRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
}

// CastVoteRequest records one community member's choice.
type CastVoteRequest struct {
	SessionID uuid.UUID   `json:"session_id"`
	VoterID   string      `json:"voter_id"`
	Choice    models.Role `json:"choice"`
}
