package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one community member's choice in a deliberation. Uniqueness per
// (session, voter) is enforced by the store, never only client-side.
type Vote struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	VoterID   string    `json:"voter_id"`
	Choice    Role      `json:"choice"`
	CreatedAt time.Time `json:"created_at"`
}

// Tally is the current vote count per side, derived by counting ledger rows.
type Tally struct {
	VotesA int `json:"votes_a"`
	VotesB int `json:"votes_b"`
}

// Total returns the number of votes cast.
func (t Tally) Total() int {
	return t.VotesA + t.VotesB
}
