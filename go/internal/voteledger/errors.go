package voteledger

import "errors"

// ErrAlreadyVoted is returned when a voter already has a vote recorded for
// the session. The uniqueness lives in the store, so concurrent duplicates
// surface here no matter which client raced.
var ErrAlreadyVoted = errors.New("already voted in this session")
