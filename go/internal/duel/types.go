package duel

import (
	"github.com/google/uuid"

	"github.com/mcdev12/faceoff/go/internal/models"
)

// SubmitAnswerRequest carries one answer from one participant. QuestionIndex
// is the idempotency key: resubmitting the same index returns the recorded
// result without rescoring.
type SubmitAnswerRequest struct {
	SessionID      uuid.UUID `json:"session_id"`
	UserID         string    `json:"user_id"`
	QuestionIndex  int       `json:"question_index"`
	AnswerIndex    int       `json:"answer_index"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// CreateDuelRequest creates a duel session with both participants known up
// front and starts it in the active phase.
type CreateDuelRequest struct {
	ParticipantA models.Participant `json:"participant_a"`
	ParticipantB models.Participant `json:"participant_b"`
	Payload      models.Payload     `json:"payload"`
}
