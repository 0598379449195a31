package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/faceoff/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `id, kind, phase,
	participant_a_id, participant_a_name, participant_b_id, participant_b_name,
	payload, outcome, voting_ends_at, created_at, updated_at`

func (r *Repository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	payloadBytes, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session payload: %w", err)
	}

	var aID, aName, bID, bName sql.NullString
	if req.ParticipantA != nil {
		aID = sql.NullString{String: req.ParticipantA.UserID, Valid: true}
		aName = sql.NullString{String: req.ParticipantA.Name, Valid: true}
	}
	if req.ParticipantB != nil {
		bID = sql.NullString{String: req.ParticipantB.UserID, Valid: true}
		bName = sql.NullString{String: req.ParticipantB.Name, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, kind, phase,
			participant_a_id, participant_a_name, participant_b_id, participant_b_name,
			payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+sessionColumns,
		req.ID, req.Kind, req.Phase, aID, aName, bID, bName, payloadBytes)

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1`, id)

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ClaimRoleSlot conditionally writes userID into the given role slot. The
// write applies only if the slot is currently empty and the user does not
// already hold the opposite slot; it reports whether the claim took effect.
// A false return with nil error means the condition failed and the caller
// must re-read the session to classify the race.
func (r *Repository) ClaimRoleSlot(ctx context.Context, sessionID uuid.UUID, role models.Role, userID, userName string) (bool, error) {
	var query string
	if role == models.RoleA {
		query = `
			UPDATE sessions
			SET participant_a_id = $2, participant_a_name = $3, updated_at = now()
			WHERE id = $1
			  AND participant_a_id IS NULL
			  AND participant_b_id IS DISTINCT FROM $2`
	} else {
		query = `
			UPDATE sessions
			SET participant_b_id = $2, participant_b_name = $3, updated_at = now()
			WHERE id = $1
			  AND participant_b_id IS NULL
			  AND participant_a_id IS DISTINCT FROM $2`
	}

	result, err := r.db.ExecContext(ctx, query, sessionID, userID, userName)
	if err != nil {
		return false, fmt.Errorf("failed to claim role slot: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected count: %w", err)
	}
	return rowsAffected == 1, nil
}

// TransitionPhase applies a compare-and-set phase change. It reports whether
// this call performed the transition; false with nil error means another
// client got there first, which every caller treats as success (the
// transitions are idempotent by design).
func (r *Repository) TransitionPhase(ctx context.Context, sessionID uuid.UUID, t PhaseTransition) (bool, error) {
	var outcome pqtype.NullRawMessage
	if t.Outcome != nil {
		outcomeBytes, err := json.Marshal(t.Outcome)
		if err != nil {
			return false, fmt.Errorf("failed to marshal outcome: %w", err)
		}
		outcome = pqtype.NullRawMessage{RawMessage: outcomeBytes, Valid: true}
	}

	var votingEndsAt sql.NullTime
	if t.VotingEndsAt != nil {
		votingEndsAt = sql.NullTime{Time: *t.VotingEndsAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET phase = $3,
		    outcome = COALESCE($4, outcome),
		    voting_ends_at = COALESCE($5, voting_ends_at),
		    updated_at = now()
		WHERE id = $1 AND phase = $2`,
		sessionID, t.From, t.To, outcome, votingEndsAt)
	if err != nil {
		return false, fmt.Errorf("failed to transition session phase: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected count: %w", err)
	}
	return rowsAffected == 1, nil
}

// FetchNextVotingDeadline returns the soonest voting_ends_at across all
// sessions still in the voting phase, or nil when none exist.
func (r *Repository) FetchNextVotingDeadline(ctx context.Context) (*NextDeadline, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, voting_ends_at
		FROM sessions
		WHERE phase = $1 AND voting_ends_at IS NOT NULL
		ORDER BY voting_ends_at ASC
		LIMIT 1`, models.SessionPhaseVoting)

	var nd NextDeadline
	var deadline sql.NullTime
	if err := row.Scan(&nd.SessionID, &deadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next voting deadline: %w", err)
	}
	if deadline.Valid {
		nd.Deadline = &deadline.Time
	}
	return &nd, nil
}

// FetchSessionsDueForResolution returns voting sessions whose window has
// already closed.
func (r *Repository) FetchSessionsDueForResolution(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM sessions
		WHERE phase = $1 AND voting_ends_at <= $2
		ORDER BY voting_ends_at ASC
		LIMIT $3`, models.SessionPhaseVoting, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions due for resolution: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NextDeadline represents the next voting deadline across all sessions.
type NextDeadline struct {
	SessionID uuid.UUID  `json:"session_id"`
	Deadline  *time.Time `json:"deadline"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sess         models.Session
		aID, aName   sql.NullString
		bID, bName   sql.NullString
		payloadBytes []byte
		outcome      pqtype.NullRawMessage
		votingEndsAt sql.NullTime
	)

	err := row.Scan(
		&sess.ID, &sess.Kind, &sess.Phase,
		&aID, &aName, &bID, &bName,
		&payloadBytes, &outcome, &votingEndsAt,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if aID.Valid {
		sess.ParticipantA = &models.Participant{UserID: aID.String, Name: aName.String}
	}
	if bID.Valid {
		sess.ParticipantB = &models.Participant{UserID: bID.String, Name: bName.String}
	}
	if err := json.Unmarshal(payloadBytes, &sess.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session payload: %w", err)
	}
	if outcome.Valid {
		var o models.Outcome
		if err := json.Unmarshal(outcome.RawMessage, &o); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session outcome: %w", err)
		}
		sess.Outcome = &o
	}
	if votingEndsAt.Valid {
		sess.VotingEndsAt = &votingEndsAt.Time
	}

	return &sess, nil
}
