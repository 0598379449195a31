package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) insertEvent(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_outbox (id, session_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), sessionID, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

func (r *Repository) InsertOutboxRoleClaimed(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, sessionID, EventTypeRoleClaimed, payload)
}

func (r *Repository) InsertOutboxArgumentSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, sessionID, EventTypeArgumentSubmitted, payload)
}

func (r *Repository) InsertOutboxVotingOpened(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, sessionID, EventTypeVotingOpened, payload)
}

func (r *Repository) InsertOutboxVoteCast(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, sessionID, EventTypeVoteCast, payload)
}

func (r *Repository) InsertOutboxAnswerRecorded(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, sessionID, EventTypeAnswerRecorded, payload)
}

func (r *Repository) InsertOutboxSessionFinished(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insertEvent(ctx, sessionID, EventTypeSessionFinished, payload)
}

func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at
		FROM session_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(&event.ID, &event.SessionID, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox rows: %w", err)
	}
	return events, nil
}

func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at
		FROM session_outbox
		WHERE id = $1 AND sent_at IS NULL`, id)

	var event OutboxEvent
	if err := row.Scan(&event.ID, &event.SessionID, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event not found or already sent")
		}
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	return &event, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE session_outbox SET sent_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}
