package duel

import "errors"

// ErrAlreadyComplete is returned when a participant submits an answer after
// reaching the session's question count. Expected when a lagging client
// replays past the end; not a bug.
var ErrAlreadyComplete = errors.New("participant already answered every question")

// ErrNotParticipant is returned when the submitting user holds neither slot
// of the session.
var ErrNotParticipant = errors.New("user is not a participant of this session")
