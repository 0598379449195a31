package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/faceoff/go/internal/models"
)

// SessionReader reads session records.
type SessionReader interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// ProgressReader reads duel progress.
type ProgressReader interface {
	GetProgress(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Progress, error)
}

// DeliberationReader reads deliberation artifacts and performs the lazy
// deadline check on the way.
type DeliberationReader interface {
	ResolveIfDue(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	GetArguments(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Argument, error)
	Tally(ctx context.Context, sessionID uuid.UUID) (models.Tally, error)
}

// SessionStateProvider implements StateProvider over the coordinator apps.
type SessionStateProvider struct {
	sessions      SessionReader
	duels         ProgressReader
	deliberations DeliberationReader
}

// NewSessionStateProvider creates a new session state provider
func NewSessionStateProvider(sessions SessionReader, duels ProgressReader, deliberations DeliberationReader) *SessionStateProvider {
	return &SessionStateProvider{
		sessions:      sessions,
		duels:         duels,
		deliberations: deliberations,
	}
}

// GetSessionState builds the full snapshot for one session. Reading a
// deliberation whose voting window has passed resolves it first, so no
// client ever sees a stale voting phase.
func (p *SessionStateProvider) GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionStateResponse, error) {
	sess, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.Kind == models.SessionKindDeliberation {
		sess, err = p.deliberations.ResolveIfDue(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session: %w", err)
		}
	}

	state := &SessionStateResponse{
		SessionID:    sess.ID.String(),
		Kind:         sess.Kind,
		Phase:        sess.Phase,
		ParticipantA: sess.ParticipantA,
		ParticipantB: sess.ParticipantB,
		CaseTitle:    sess.Payload.CaseTitle,
		CaseText:     sess.Payload.CaseText,
		Outcome:      sess.Outcome,
		VotingEndsAt: sess.VotingEndsAt,
	}

	switch sess.Kind {
	case models.SessionKindDuel:
		state.Rules = sess.Payload.Rules
		state.Questions = publicQuestions(sess.Payload.Questions)

		progress, err := p.duels.GetProgress(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get progress: %w", err)
		}
		state.ProgressA = progress[models.RoleA]
		state.ProgressB = progress[models.RoleB]

	case models.SessionKindDeliberation:
		args, err := p.deliberations.GetArguments(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get arguments: %w", err)
		}
		state.Arguments = args

		if sess.Phase == models.SessionPhaseVoting || sess.Phase == models.SessionPhaseFinished {
			tally, err := p.deliberations.Tally(ctx, sessionID)
			if err != nil {
				return nil, fmt.Errorf("failed to tally votes: %w", err)
			}
			state.Tally = &tally
		}
	}

	return state, nil
}

// GetSessionTally returns the current vote counts for a deliberation.
func (p *SessionStateProvider) GetSessionTally(ctx context.Context, sessionID uuid.UUID) (*TallyResponse, error) {
	tally, err := p.deliberations.Tally(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	return &TallyResponse{
		SessionID: sessionID.String(),
		VotesA:    tally.VotesA,
		VotesB:    tally.VotesB,
		Total:     tally.Total(),
	}, nil
}

func publicQuestions(questions []models.QuizQuestion) []PublicQuestion {
	out := make([]PublicQuestion, len(questions))
	for i, q := range questions {
		out[i] = PublicQuestion{Prompt: q.Prompt, Options: q.Options}
	}
	return out
}
