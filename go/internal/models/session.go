package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionKind defines the kind of competitive session.
type SessionKind string

const (
	SessionKindDuel         SessionKind = "DUEL"
	SessionKindDeliberation SessionKind = "DELIBERATION"
)

// SessionPhase defines the state-machine phase of a session.
type SessionPhase string

const (
	// Deliberation phases.
	SessionPhaseOpen     SessionPhase = "OPEN"
	SessionPhaseDrafting SessionPhase = "DRAFTING"
	SessionPhaseVoting   SessionPhase = "VOTING"

	// Duel phase. Duels are created fully staffed and start immediately.
	SessionPhaseActive SessionPhase = "ACTIVE"

	// Terminal for both kinds.
	SessionPhaseFinished SessionPhase = "FINISHED"
)

// Role identifies one of the two participant slots of a session.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// Participant is one claimed slot of a session.
type Participant struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Outcome is the single authoritative result of a finished session.
// Duels fill the score fields, deliberations the vote fields.
// Winner is nil on a draw or tie.
type Outcome struct {
	Winner    *Role     `json:"winner"`
	ScoreA    int       `json:"score_a,omitempty"`
	ScoreB    int       `json:"score_b,omitempty"`
	VotesA    int       `json:"votes_a,omitempty"`
	VotesB    int       `json:"votes_b,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// Session represents one competitive unit between two participants.
type Session struct {
	ID           uuid.UUID    `json:"id"`
	Kind         SessionKind  `json:"kind"`
	Phase        SessionPhase `json:"phase"`
	ParticipantA *Participant `json:"participant_a,omitempty"`
	ParticipantB *Participant `json:"participant_b,omitempty"`
	ProgressA    *Progress    `json:"progress_a,omitempty"`
	ProgressB    *Progress    `json:"progress_b,omitempty"`
	Payload      Payload      `json:"payload"`
	Outcome      *Outcome     `json:"outcome,omitempty"`
	VotingEndsAt *time.Time   `json:"voting_ends_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ParticipantFor returns the participant occupying the given role, or nil.
func (s *Session) ParticipantFor(role Role) *Participant {
	if role == RoleA {
		return s.ParticipantA
	}
	return s.ParticipantB
}

// RoleOf returns the role held by userID, or false if the user holds neither slot.
func (s *Session) RoleOf(userID string) (Role, bool) {
	if s.ParticipantA != nil && s.ParticipantA.UserID == userID {
		return RoleA, true
	}
	if s.ParticipantB != nil && s.ParticipantB.UserID == userID {
		return RoleB, true
	}
	return "", false
}

// Finished reports whether the session has reached its terminal phase.
func (s *Session) Finished() bool {
	return s.Phase == SessionPhaseFinished
}
