package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxArgumentLength bounds the text of a submitted argument.
const MaxArgumentLength = 5000

// Argument is a role's single written position in a deliberation. At most one
// exists per (session, role); once present it is immutable.
type Argument struct {
	SessionID   uuid.UUID `json:"session_id"`
	Role        Role      `json:"role"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}
