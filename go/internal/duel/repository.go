package duel

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/faceoff/go/internal/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InitProgress creates the zeroed progress rows for both participants.
// Safe to call again for the same session.
func (r *Repository) InitProgress(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO duel_progress (session_id, role, answered_count, score, answers)
		VALUES ($1, 'A', 0, 0, '[]'), ($1, 'B', 0, 0, '[]')
		ON CONFLICT (session_id, role) DO NOTHING`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to init duel progress: %w", err)
	}
	return nil
}

// GetProgress returns one participant's progress row.
func (r *Repository) GetProgress(ctx context.Context, sessionID uuid.UUID, role models.Role) (*models.Progress, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT answered_count, score, answers
		FROM duel_progress
		WHERE session_id = $1 AND role = $2`, sessionID, role)

	progress, err := scanProgress(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel progress: %w", err)
	}
	return progress, nil
}

// GetBothProgress returns progress for both roles in one round trip.
func (r *Repository) GetBothProgress(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Progress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT role, answered_count, score, answers
		FROM duel_progress
		WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query duel progress: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Role]*models.Progress, 2)
	for rows.Next() {
		var role models.Role
		var p models.Progress
		var answersRaw []byte
		if err := rows.Scan(&role, &p.AnsweredCount, &p.Score, &answersRaw); err != nil {
			return nil, fmt.Errorf("failed to scan duel progress row: %w", err)
		}
		if err := json.Unmarshal(answersRaw, &p.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		out[role] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duel progress rows: %w", err)
	}
	return out, nil
}

// UpdateProgressConditional writes the new progress only if the row still
// holds priorCount answers. Returns false when another write for the same
// participant got there first; the caller re-reads and decides whether the
// competing write already recorded this answer.
func (r *Repository) UpdateProgressConditional(ctx context.Context, sessionID uuid.UUID, role models.Role, priorCount int, p models.Progress) (bool, error) {
	answersBytes, err := json.Marshal(p.Answers)
	if err != nil {
		return false, fmt.Errorf("failed to marshal answers: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE duel_progress
		SET answered_count = $4, score = $5, answers = $6, updated_at = NOW()
		WHERE session_id = $1 AND role = $2 AND answered_count = $3`,
		sessionID, role, priorCount, p.AnsweredCount, p.Score, answersBytes)
	if err != nil {
		return false, fmt.Errorf("failed to update duel progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func scanProgress(row *sql.Row) (*models.Progress, error) {
	var p models.Progress
	var answersRaw []byte
	if err := row.Scan(&p.AnsweredCount, &p.Score, &answersRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answersRaw, &p.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	return &p, nil
}
