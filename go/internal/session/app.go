package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/faceoff/go/internal/models"
	"github.com/rs/zerolog/log"
)

// SessionRepository defines what the session app layer needs from the
// session repository.
type SessionRepository interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ClaimRoleSlot(ctx context.Context, sessionID uuid.UUID, role models.Role, userID, userName string) (bool, error)
	TransitionPhase(ctx context.Context, sessionID uuid.UUID, t PhaseTransition) (bool, error)
	FetchNextVotingDeadline(ctx context.Context) (*NextDeadline, error)
	FetchSessionsDueForResolution(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// App handles session record business logic: creation, reads and the
// compare-and-set primitives the two coordinators build on. It contains no
// duel or deliberation rules.
type App struct {
	repo SessionRepository
}

// NewApp creates a new session App.
func NewApp(repo SessionRepository) *App {
	return &App{repo: repo}
}

// CreateDuel creates a fully staffed duel session in the active phase.
func (a *App) CreateDuel(ctx context.Context, participantA, participantB models.Participant, payload models.Payload) (*models.Session, error) {
	if err := validateDuelPayload(payload); err != nil {
		return nil, fmt.Errorf("invalid duel payload: %w", err)
	}
	if participantA.UserID == "" || participantB.UserID == "" {
		return nil, fmt.Errorf("duel requires both participants")
	}
	if participantA.UserID == participantB.UserID {
		return nil, fmt.Errorf("a user cannot occupy both slots of a session")
	}

	sess, err := a.repo.CreateSession(ctx, CreateSessionRequest{
		ID:           uuid.New(),
		Kind:         models.SessionKindDuel,
		Phase:        models.SessionPhaseActive,
		ParticipantA: &participantA,
		ParticipantB: &participantB,
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create duel session: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("participant_a", participantA.UserID).
		Str("participant_b", participantB.UserID).
		Msg("duel session created")
	return sess, nil
}

// CreateDeliberation creates a deliberation session in the open phase.
// The initiator may already hold one role, or neither.
func (a *App) CreateDeliberation(ctx context.Context, initiator *models.Participant, initiatorRole models.Role, payload models.Payload) (*models.Session, error) {
	if payload.CaseText == "" {
		return nil, fmt.Errorf("deliberation requires a case description")
	}

	req := CreateSessionRequest{
		ID:      uuid.New(),
		Kind:    models.SessionKindDeliberation,
		Phase:   models.SessionPhaseOpen,
		Payload: payload,
	}
	if initiator != nil {
		switch initiatorRole {
		case models.RoleA:
			req.ParticipantA = initiator
		case models.RoleB:
			req.ParticipantB = initiator
		default:
			return nil, fmt.Errorf("invalid initiator role: %s", initiatorRole)
		}
	}

	sess, err := a.repo.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create deliberation session: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("case_title", payload.CaseTitle).
		Msg("deliberation session created")
	return sess, nil
}

// GetSession retrieves a session by ID.
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ClaimRoleSlot conditionally writes the user into the given role slot. It
// reports whether this call won the slot. A false return with nil error means
// the slot was taken, or the user already holds the opposite slot.
func (a *App) ClaimRoleSlot(ctx context.Context, sessionID uuid.UUID, role models.Role, userID, userName string) (bool, error) {
	return a.repo.ClaimRoleSlot(ctx, sessionID, role, userID, userName)
}

// TransitionPhase applies a compare-and-set phase change, reporting whether
// this call performed it.
func (a *App) TransitionPhase(ctx context.Context, sessionID uuid.UUID, t PhaseTransition) (bool, error) {
	return a.repo.TransitionPhase(ctx, sessionID, t)
}

// FetchNextVotingDeadline returns the soonest voting deadline across all
// sessions still in the voting phase, or nil when none are pending.
func (a *App) FetchNextVotingDeadline(ctx context.Context) (*NextDeadline, error) {
	return a.repo.FetchNextVotingDeadline(ctx)
}

// FetchSessionsDueForResolution returns voting sessions whose window has
// closed as of now.
func (a *App) FetchSessionsDueForResolution(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	return a.repo.FetchSessionsDueForResolution(ctx, now, limit)
}

func validateDuelPayload(payload models.Payload) error {
	if payload.Rules == nil {
		return fmt.Errorf("rules are required")
	}
	if payload.Rules.QuestionCount <= 0 {
		return fmt.Errorf("question_count must be greater than 0")
	}
	if payload.Rules.TimeLimitSec <= 0 {
		return fmt.Errorf("time_limit_sec must be greater than 0")
	}
	if len(payload.Questions) != payload.Rules.QuestionCount {
		return fmt.Errorf("question battery has %d questions, rules expect %d",
			len(payload.Questions), payload.Rules.QuestionCount)
	}
	for i, q := range payload.Questions {
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			return fmt.Errorf("question %d: answer_index out of range", i)
		}
	}
	return nil
}
