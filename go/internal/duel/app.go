package duel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/faceoff/go/internal/events"
	"github.com/mcdev12/faceoff/go/internal/models"
	"github.com/mcdev12/faceoff/go/internal/scoring"
	"github.com/mcdev12/faceoff/go/internal/session"
	"github.com/mcdev12/faceoff/go/internal/sqlutil"
)

// DuelRepository defines what the duel app layer needs from the progress
// repository.
type DuelRepository interface {
	InitProgress(ctx context.Context, sessionID uuid.UUID) error
	GetProgress(ctx context.Context, sessionID uuid.UUID, role models.Role) (*models.Progress, error)
	GetBothProgress(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Progress, error)
	UpdateProgressConditional(ctx context.Context, sessionID uuid.UUID, role models.Role, priorCount int, p models.Progress) (bool, error)
}

// SessionApp defines what the duel app needs from the session app.
type SessionApp interface {
	CreateDuel(ctx context.Context, participantA, participantB models.Participant, payload models.Payload) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	TransitionPhase(ctx context.Context, sessionID uuid.UUID, t session.PhaseTransition) (bool, error)
}

// OutboxApp defines the outbox events the duel coordinator emits.
type OutboxApp interface {
	InsertAnswerRecordedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertSessionFinishedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

const (
	// submitRetries bounds re-attempts when a participant's competing
	// clients collide on the same progress row.
	submitRetries = 3
	submitBackoff = 25 * time.Millisecond
)

// App coordinates duel sessions: answer scoring, progress persistence and
// the finish transition once both participants complete the battery.
type App struct {
	repo       DuelRepository
	sessionApp SessionApp
	outbox     OutboxApp
	clock      clockwork.Clock
}

// NewApp creates a new duel App.
func NewApp(repo DuelRepository, sessionApp SessionApp, outbox OutboxApp, clock clockwork.Clock) *App {
	return &App{
		repo:       repo,
		sessionApp: sessionApp,
		outbox:     outbox,
		clock:      clock,
	}
}

// CreateDuel creates a fully staffed duel session with zeroed progress rows
// for both participants.
func (a *App) CreateDuel(ctx context.Context, req CreateDuelRequest) (*models.Session, error) {
	sess, err := a.sessionApp.CreateDuel(ctx, req.ParticipantA, req.ParticipantB, req.Payload)
	if err != nil {
		return nil, err
	}
	if err := a.repo.InitProgress(ctx, sess.ID); err != nil {
		return nil, fmt.Errorf("failed to init progress for duel %s: %w", sess.ID, err)
	}
	return sess, nil
}

// SubmitAnswer scores and records one answer. Resubmitting an already
// answered question index returns the recorded progress without rescoring,
// so client retries cannot double-count. When both participants have
// answered every question the session is finished and the winner decided by
// total score.
func (a *App) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*models.Progress, error) {
	sess, err := a.sessionApp.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Kind != models.SessionKindDuel {
		return nil, fmt.Errorf("session %s is not a duel", req.SessionID)
	}

	role, ok := sess.RoleOf(req.UserID)
	if !ok {
		return nil, ErrNotParticipant
	}

	rules := sess.Payload.Rules
	if req.QuestionIndex < 0 || req.QuestionIndex >= rules.QuestionCount {
		return nil, fmt.Errorf("question_index %d out of range [0,%d)", req.QuestionIndex, rules.QuestionCount)
	}

	var progress *models.Progress
	err = sqlutil.Retry(ctx, submitRetries, submitBackoff, func() error {
		var applyErr error
		progress, applyErr = a.applyAnswer(ctx, sess, role, req)
		return applyErr
	})
	if err != nil {
		return nil, err
	}

	if err := a.finishIfComplete(ctx, sess); err != nil {
		// The answer is durable; a failed finish pass is retried on the
		// next submission or snapshot read.
		log.Warn().Err(err).
			Str("session_id", sess.ID.String()).
			Msg("duel finish pass failed")
	}

	return progress, nil
}

// applyAnswer performs one optimistic write attempt. Replayed question
// indexes and completed batteries are permanent conditions that the
// surrounding retry must not re-attempt.
func (a *App) applyAnswer(ctx context.Context, sess *models.Session, role models.Role, req SubmitAnswerRequest) (*models.Progress, error) {
	progress, err := a.repo.GetProgress(ctx, sess.ID, role)
	if err != nil {
		return nil, err
	}

	if existing := progress.ResultFor(req.QuestionIndex); existing != nil {
		return progress, nil
	}
	if progress.Complete(sess.Payload.Rules.QuestionCount) {
		return nil, sqlutil.Permanent(ErrAlreadyComplete)
	}
	if sess.Finished() {
		return nil, sqlutil.Permanent(ErrAlreadyComplete)
	}

	rules := *sess.Payload.Rules
	question := sess.Payload.Questions[req.QuestionIndex]
	correct := req.AnswerIndex == question.AnswerIndex

	elapsed := req.ElapsedSeconds
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > rules.TimeLimitSec {
		elapsed = rules.TimeLimitSec
	}

	result := models.AnswerResult{
		QuestionIndex:  req.QuestionIndex,
		Correct:        correct,
		ElapsedSeconds: elapsed,
		Points:         scoring.AnswerScore(correct, elapsed, rules),
		AnsweredAt:     a.clock.Now(),
	}

	priorCount := progress.AnsweredCount
	updated := models.Progress{
		AnsweredCount: priorCount + 1,
		Score:         progress.Score + result.Points,
		Answers:       append(append([]models.AnswerResult{}, progress.Answers...), result),
	}

	applied, err := a.repo.UpdateProgressConditional(ctx, sess.ID, role, priorCount, updated)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another client of the same participant advanced the row. The
		// retry re-reads; if it already holds this question the replay
		// path above returns it.
		return nil, fmt.Errorf("progress row moved past count %d for %s/%s", priorCount, sess.ID, role)
	}

	a.emitAnswerRecorded(ctx, sess.ID, role, req.QuestionIndex, updated)

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("role", string(role)).
		Int("question_index", req.QuestionIndex).
		Bool("correct", correct).
		Int("points", result.Points).
		Msg("answer recorded")

	return &updated, nil
}

// finishIfComplete transitions the session to finished once both batteries
// are complete. The compare-and-set makes it idempotent: exactly one caller
// records the outcome, everyone else no-ops.
func (a *App) finishIfComplete(ctx context.Context, sess *models.Session) error {
	both, err := a.repo.GetBothProgress(ctx, sess.ID)
	if err != nil {
		return err
	}

	n := sess.Payload.Rules.QuestionCount
	progressA, okA := both[models.RoleA]
	progressB, okB := both[models.RoleB]
	if !okA || !okB || !progressA.Complete(n) || !progressB.Complete(n) {
		return nil
	}

	outcome := scoring.DuelOutcome(progressA.Score, progressB.Score, a.clock.Now())
	applied, err := a.sessionApp.TransitionPhase(ctx, sess.ID, session.PhaseTransition{
		From:    models.SessionPhaseActive,
		To:      models.SessionPhaseFinished,
		Outcome: &outcome,
	})
	if err != nil {
		return fmt.Errorf("failed to finish duel %s: %w", sess.ID, err)
	}
	if !applied {
		return nil
	}

	a.emitSessionFinished(ctx, sess.ID, outcome)

	log.Info().
		Str("session_id", sess.ID.String()).
		Int("score_a", progressA.Score).
		Int("score_b", progressB.Score).
		Msg("duel finished")
	return nil
}

// GetProgress returns both participants' progress for a duel session.
func (a *App) GetProgress(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Progress, error) {
	return a.repo.GetBothProgress(ctx, sessionID)
}

func (a *App) emitAnswerRecorded(ctx context.Context, sessionID uuid.UUID, role models.Role, questionIndex int, p models.Progress) {
	payload, err := json.Marshal(events.AnswerRecordedPayload{
		SessionID:     sessionID.String(),
		Role:          role,
		QuestionIndex: questionIndex,
		AnsweredCount: p.AnsweredCount,
		Score:         p.Score,
		RecordedAt:    a.clock.Now(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal AnswerRecorded payload")
		return
	}
	if err := a.outbox.InsertAnswerRecordedEvent(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Msg("failed to insert AnswerRecorded outbox event")
	}
}

func (a *App) emitSessionFinished(ctx context.Context, sessionID uuid.UUID, outcome models.Outcome) {
	payload, err := json.Marshal(events.SessionFinishedPayload{
		SessionID:  sessionID.String(),
		Kind:       models.SessionKindDuel,
		Outcome:    outcome,
		FinishedAt: a.clock.Now(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal SessionFinished payload")
		return
	}
	if err := a.outbox.InsertSessionFinishedEvent(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Msg("failed to insert SessionFinished outbox event")
	}
}
