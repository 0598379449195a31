package deliberation

import (
	"context"
	"database/sql"
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

// InsertArgument writes a role's argument if none exists yet. The primary
// key on (session_id, role) makes the first writer win; later writers get
// ErrAlreadySubmitted.
func (r *Repository) InsertArgument(ctx context.Context, arg models.Argument) (*models.Argument, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO arguments (session_id, role, text, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, role) DO NOTHING`,
		arg.SessionID, arg.Role, arg.Text, arg.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert argument: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrAlreadySubmitted
	}
	return &arg, nil
}

// GetArguments returns the arguments submitted so far, keyed by role.
func (r *Repository) GetArguments(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Argument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, role, text, submitted_at
		FROM arguments
		WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query arguments: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Role]*models.Argument, 2)
	for rows.Next() {
		var arg models.Argument
		if err := rows.Scan(&arg.SessionID, &arg.Role, &arg.Text, &arg.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan argument row: %w", err)
		}
		out[arg.Role] = &arg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate argument rows: %w", err)
	}
	return out, nil
}
