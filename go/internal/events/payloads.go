package events

import (
	"time"

	"github.com/mcdev12/faceoff/go/internal/models"
)

// Event payload types shared between the coordinators, the outbox relay and
// the gateway.

// RoleClaimedPayload is the payload for a RoleClaimed event.
type RoleClaimedPayload struct {
	SessionID string      `json:"session_id"`
	Role      models.Role `json:"role"`
	UserID    string      `json:"user_id"`
	UserName  string      `json:"user_name"`
	ClaimedAt time.Time   `json:"claimed_at"`
	BothTaken bool        `json:"both_taken"`
}

// ArgumentSubmittedPayload is the payload for an ArgumentSubmitted event.
// The argument text itself is not carried; clients refetch the session.
type ArgumentSubmittedPayload struct {
	SessionID   string      `json:"session_id"`
	Role        models.Role `json:"role"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// VotingOpenedPayload is the payload for a VotingOpened event.
type VotingOpenedPayload struct {
	SessionID    string    `json:"session_id"`
	OpenedAt     time.Time `json:"opened_at"`
	VotingEndsAt time.Time `json:"voting_ends_at"`
}

// VoteCastPayload is the payload for a VoteCast event. The choice is not
// carried so live spectators cannot trivially see individual votes; tallies
// come from the ledger.
type VoteCastPayload struct {
	SessionID string    `json:"session_id"`
	VoterID   string    `json:"voter_id"`
	CastAt    time.Time `json:"cast_at"`
}

// AnswerRecordedPayload is the payload for an AnswerRecorded event.
type AnswerRecordedPayload struct {
	SessionID     string      `json:"session_id"`
	Role          models.Role `json:"role"`
	QuestionIndex int         `json:"question_index"`
	AnsweredCount int         `json:"answered_count"`
	Score         int         `json:"score"`
	RecordedAt    time.Time   `json:"recorded_at"`
}

// SessionFinishedPayload is the payload for a SessionFinished event.
type SessionFinishedPayload struct {
	SessionID  string             `json:"session_id"`
	Kind       models.SessionKind `json:"kind"`
	Outcome    models.Outcome     `json:"outcome"`
	FinishedAt time.Time          `json:"finished_at"`
}
