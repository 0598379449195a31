package voteledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/faceoff/go/internal/models"
)

// uniqueViolation is the Postgres error code raised by the
// (session_id, voter_id) unique index.
const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertVote appends a vote to the ledger. The store's uniqueness constraint
// rejects duplicates; those come back as ErrAlreadyVoted.
func (r *Repository) InsertVote(ctx context.Context, sessionID uuid.UUID, voterID string, choice models.Role) (*models.Vote, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO votes (id, session_id, voter_id, choice)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, voter_id, choice, created_at`,
		uuid.New(), sessionID, voterID, choice)

	var vote models.Vote
	if err := row.Scan(&vote.ID, &vote.SessionID, &vote.VoterID, &vote.Choice, &vote.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}
	return &vote, nil
}

// CountVotes tallies the ledger for a session. Counting rows is the
// authoritative path; there is no separate mutable counter to drift.
func (r *Repository) CountVotes(ctx context.Context, sessionID uuid.UUID) (models.Tally, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT choice, COUNT(*)
		FROM votes
		WHERE session_id = $1
		GROUP BY choice`, sessionID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	var tally models.Tally
	for rows.Next() {
		var choice models.Role
		var count int
		if err := rows.Scan(&choice, &count); err != nil {
			return models.Tally{}, fmt.Errorf("failed to scan vote count: %w", err)
		}
		switch choice {
		case models.RoleA:
			tally.VotesA = count
		case models.RoleB:
			tally.VotesB = count
		}
	}
	return tally, rows.Err()
}

// GetVote fetches a voter's recorded vote for a session, if any.
func (r *Repository) GetVote(ctx context.Context, sessionID uuid.UUID, voterID string) (*models.Vote, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, voter_id, choice, created_at
		FROM votes
		WHERE session_id = $1 AND voter_id = $2`, sessionID, voterID)

	var vote models.Vote
	if err := row.Scan(&vote.ID, &vote.SessionID, &vote.VoterID, &vote.Choice, &vote.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &vote, nil
}
