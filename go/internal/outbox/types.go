package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types written by the two coordinators.
const (
	EventTypeRoleClaimed       = "RoleClaimed"
	EventTypeArgumentSubmitted = "ArgumentSubmitted"
	EventTypeVotingOpened      = "VotingOpened"
	EventTypeVoteCast          = "VoteCast"
	EventTypeAnswerRecorded    = "AnswerRecorded"
	EventTypeSessionFinished   = "SessionFinished"
)

// OutboxEvent represents an outbox event for the application layer
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
