package deliberation

import (
	"errors"

	"github.com/mcdev12/faceoff/go/internal/voteledger"
)

var (
	// ErrAlreadyVoted re-exports the ledger's duplicate-vote sentinel so
	// callers of CastVote match against one package.
	ErrAlreadyVoted = voteledger.ErrAlreadyVoted

	// ErrRoleAlreadyTaken is returned when the requested role slot was
	// claimed first by someone else.
	ErrRoleAlreadyTaken = errors.New("role already taken")

	// ErrAlreadyParticipant is returned when a user who holds one slot
	// tries to claim the other.
	ErrAlreadyParticipant = errors.New("user already holds a role in this session")

	// ErrAlreadySubmitted is returned when a role submits a second
	// argument. Arguments are immutable once written.
	ErrAlreadySubmitted = errors.New("argument already submitted for this role")

	// ErrVotingClosed is returned for votes cast outside the voting window.
	ErrVotingClosed = errors.New("voting is not open for this session")

	// ErrNotParticipant is returned when the acting user holds neither
	// role of the session.
	ErrNotParticipant = errors.New("user is not a participant of this session")
)
