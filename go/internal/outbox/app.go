package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertOutboxRoleClaimed(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxArgumentSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxVotingOpened(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxVoteCast(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxAnswerRecorded(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxSessionFinished(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
}

// App handles outbox business logic. Inserts happen in the same database as
// the state they describe, so an event exists if and only if its write
// committed.
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

// InsertRoleClaimedEvent inserts a RoleClaimed event into the outbox
func (a *App) InsertRoleClaimedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, sessionID, EventTypeRoleClaimed, payload, a.repo.InsertOutboxRoleClaimed)
}

// InsertArgumentSubmittedEvent inserts an ArgumentSubmitted event into the outbox
func (a *App) InsertArgumentSubmittedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, sessionID, EventTypeArgumentSubmitted, payload, a.repo.InsertOutboxArgumentSubmitted)
}

// InsertVotingOpenedEvent inserts a VotingOpened event into the outbox
func (a *App) InsertVotingOpenedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, sessionID, EventTypeVotingOpened, payload, a.repo.InsertOutboxVotingOpened)
}

// InsertVoteCastEvent inserts a VoteCast event into the outbox
func (a *App) InsertVoteCastEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, sessionID, EventTypeVoteCast, payload, a.repo.InsertOutboxVoteCast)
}

// InsertAnswerRecordedEvent inserts an AnswerRecorded event into the outbox
func (a *App) InsertAnswerRecordedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, sessionID, EventTypeAnswerRecorded, payload, a.repo.InsertOutboxAnswerRecorded)
}

// InsertSessionFinishedEvent inserts a SessionFinished event into the outbox
func (a *App) InsertSessionFinishedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, sessionID, EventTypeSessionFinished, payload, a.repo.InsertOutboxSessionFinished)
}

// FetchUnsentEvents retrieves unsent events for the relay's fallback poll
func (a *App) FetchUnsentEvents(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	events, err := a.repo.FetchUnsentOutbox(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent events: %w", err)
	}
	return events, nil
}

// MarkEventSent marks an event as successfully published
func (a *App) MarkEventSent(ctx context.Context, id uuid.UUID) error {
	if err := a.repo.MarkOutboxSent(ctx, id); err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

func (a *App) insert(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte, insertFn func(context.Context, uuid.UUID, []byte) error) error {
	if err := a.validateEventPayload(payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}
	if err := insertFn(ctx, sessionID, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")
	return nil
}

func (a *App) validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload cannot be empty")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("payload must be valid JSON")
	}
	return nil
}
