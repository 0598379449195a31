package deliberation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/faceoff/go/internal/events"
	"github.com/mcdev12/faceoff/go/internal/models"
	"github.com/mcdev12/faceoff/go/internal/scoring"
	"github.com/mcdev12/faceoff/go/internal/session"
	"github.com/mcdev12/faceoff/go/internal/voteledger"
)

// VotingWindow is how long the community vote stays open after both
// arguments are in.
const VotingWindow = 48 * time.Hour

// ArgumentRepository defines what the deliberation app needs from the
// argument repository.
type ArgumentRepository interface {
	InsertArgument(ctx context.Context, arg models.Argument) (*models.Argument, error)
	GetArguments(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Argument, error)
}

// SessionApp defines what the deliberation app needs from the session app.
type SessionApp interface {
	CreateDeliberation(ctx context.Context, initiator *models.Participant, initiatorRole models.Role, payload models.Payload) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ClaimRoleSlot(ctx context.Context, sessionID uuid.UUID, role models.Role, userID, userName string) (bool, error)
	TransitionPhase(ctx context.Context, sessionID uuid.UUID, t session.PhaseTransition) (bool, error)
}

// VoteLedger defines the append-only vote store the coordinator tallies
// from. Uniqueness per (session, voter) lives in the ledger, not here.
type VoteLedger interface {
	InsertVote(ctx context.Context, sessionID uuid.UUID, voterID string, choice models.Role) (*models.Vote, error)
	CountVotes(ctx context.Context, sessionID uuid.UUID) (models.Tally, error)
}

// OutboxApp defines the outbox events the deliberation coordinator emits.
type OutboxApp interface {
	InsertRoleClaimedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertArgumentSubmittedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertVotingOpenedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertVoteCastEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertSessionFinishedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App drives the deliberation state machine: role recruiting, argument
// drafting, the community vote and resolution. All transitions are
// compare-and-set so two clients detecting the same condition cannot apply
// it twice.
type App struct {
	repo       ArgumentRepository
	sessionApp SessionApp
	ledger     VoteLedger
	outbox     OutboxApp
	clock      clockwork.Clock
}

// NewApp creates a new deliberation App.
func NewApp(repo ArgumentRepository, sessionApp SessionApp, ledger VoteLedger, outbox OutboxApp, clock clockwork.Clock) *App {
	return &App{
		repo:       repo,
		sessionApp: sessionApp,
		ledger:     ledger,
		outbox:     outbox,
		clock:      clock,
	}
}

// CreateDeliberation opens a new deliberation session in the recruiting
// phase.
func (a *App) CreateDeliberation(ctx context.Context, req CreateDeliberationRequest) (*models.Session, error) {
	return a.sessionApp.CreateDeliberation(ctx, req.Initiator, req.InitiatorRole, req.Payload)
}

// ClaimRole takes one side of an open deliberation. The slot write is
// conditional, so under a race exactly one claimant wins and the loser gets
// ErrRoleAlreadyTaken. A user re-claiming their own slot is a no-op success.
// When the second slot fills, the session moves to drafting.
func (a *App) ClaimRole(ctx context.Context, req ClaimRoleRequest) (*models.Session, error) {
	if req.Role != models.RoleA && req.Role != models.RoleB {
		return nil, fmt.Errorf("invalid role: %s", req.Role)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	sess, err := a.sessionApp.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Kind != models.SessionKindDeliberation {
		return nil, fmt.Errorf("session %s is not a deliberation", req.SessionID)
	}

	if held, ok := sess.RoleOf(req.UserID); ok {
		if held == req.Role {
			return sess, nil
		}
		return nil, ErrAlreadyParticipant
	}
	if sess.Phase != models.SessionPhaseOpen {
		return nil, ErrRoleAlreadyTaken
	}

	won, err := a.sessionApp.ClaimRoleSlot(ctx, req.SessionID, req.Role, req.UserID, req.UserName)
	if err != nil {
		return nil, fmt.Errorf("failed to claim role: %w", err)
	}

	// Re-read regardless of the result; a lost race may still mean this
	// user holds the slot via an earlier retried request.
	sess, err = a.sessionApp.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !won {
		if held, ok := sess.RoleOf(req.UserID); ok && held == req.Role {
			return sess, nil
		}
		return nil, ErrRoleAlreadyTaken
	}

	bothTaken := sess.ParticipantA != nil && sess.ParticipantB != nil
	if bothTaken {
		if _, err := a.sessionApp.TransitionPhase(ctx, req.SessionID, session.PhaseTransition{
			From: models.SessionPhaseOpen,
			To:   models.SessionPhaseDrafting,
		}); err != nil {
			return nil, fmt.Errorf("failed to start drafting: %w", err)
		}
		sess.Phase = models.SessionPhaseDrafting
	}

	a.emitRoleClaimed(ctx, req, bothTaken)

	log.Info().
		Str("session_id", req.SessionID.String()).
		Str("role", string(req.Role)).
		Str("user_id", req.UserID).
		Bool("both_taken", bothTaken).
		Msg("role claimed")
	return sess, nil
}

// SubmitArgument records a participant's single written position. The first
// insert per role wins; any later attempt returns ErrAlreadySubmitted. Once
// both arguments exist the voting window opens.
func (a *App) SubmitArgument(ctx context.Context, req SubmitArgumentRequest) (*models.Argument, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("argument text is required")
	}
	if len(text) > models.MaxArgumentLength {
		return nil, fmt.Errorf("argument exceeds %d characters", models.MaxArgumentLength)
	}

	sess, err := a.sessionApp.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Kind != models.SessionKindDeliberation {
		return nil, fmt.Errorf("session %s is not a deliberation", req.SessionID)
	}

	role, ok := sess.RoleOf(req.UserID)
	if !ok {
		return nil, ErrNotParticipant
	}

	switch sess.Phase {
	case models.SessionPhaseDrafting:
	case models.SessionPhaseOpen:
		return nil, fmt.Errorf("drafting has not started: the opposing role is still open")
	default:
		return nil, ErrAlreadySubmitted
	}

	arg, err := a.repo.InsertArgument(ctx, models.Argument{
		SessionID:   req.SessionID,
		Role:        role,
		Text:        text,
		SubmittedAt: a.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	a.emitArgumentSubmitted(ctx, req.SessionID, role, arg.SubmittedAt)

	if err := a.openVotingIfReady(ctx, req.SessionID); err != nil {
		// The argument is durable; the next submission or read retries
		// the transition.
		log.Warn().Err(err).
			Str("session_id", req.SessionID.String()).
			Msg("voting open pass failed")
	}

	log.Info().
		Str("session_id", req.SessionID.String()).
		Str("role", string(role)).
		Msg("argument submitted")
	return arg, nil
}

// openVotingIfReady moves drafting to voting once both arguments exist,
// stamping the 48-hour deadline. Compare-and-set keeps it idempotent under
// concurrent detection by both participants.
func (a *App) openVotingIfReady(ctx context.Context, sessionID uuid.UUID) error {
	args, err := a.repo.GetArguments(ctx, sessionID)
	if err != nil {
		return err
	}
	if args[models.RoleA] == nil || args[models.RoleB] == nil {
		return nil
	}

	votingEndsAt := a.clock.Now().Add(VotingWindow)
	applied, err := a.sessionApp.TransitionPhase(ctx, sessionID, session.PhaseTransition{
		From:         models.SessionPhaseDrafting,
		To:           models.SessionPhaseVoting,
		VotingEndsAt: &votingEndsAt,
	})
	if err != nil {
		return fmt.Errorf("failed to open voting: %w", err)
	}
	if !applied {
		return nil
	}

	a.emitVotingOpened(ctx, sessionID, votingEndsAt)

	log.Info().
		Str("session_id", sessionID.String()).
		Time("voting_ends_at", votingEndsAt).
		Msg("voting opened")
	return nil
}

// CastVote appends one community member's choice to the ledger. The ledger's
// uniqueness constraint rejects a second vote by the same voter with
// ErrAlreadyVoted. Votes landing after the deadline resolve the session and
// return ErrVotingClosed.
func (a *App) CastVote(ctx context.Context, req CastVoteRequest) (*models.Vote, error) {
	if req.Choice != models.RoleA && req.Choice != models.RoleB {
		return nil, fmt.Errorf("invalid choice: %s", req.Choice)
	}
	if req.VoterID == "" {
		return nil, fmt.Errorf("voter_id is required")
	}

	sess, err := a.sessionApp.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Kind != models.SessionKindDeliberation {
		return nil, fmt.Errorf("session %s is not a deliberation", req.SessionID)
	}
	if sess.Phase != models.SessionPhaseVoting {
		return nil, ErrVotingClosed
	}
	if sess.VotingEndsAt != nil && !a.clock.Now().Before(*sess.VotingEndsAt) {
		if _, err := a.resolve(ctx, sess); err != nil {
			log.Warn().Err(err).
				Str("session_id", req.SessionID.String()).
				Msg("lazy resolution on vote failed")
		}
		return nil, ErrVotingClosed
	}

	vote, err := a.ledger.InsertVote(ctx, req.SessionID, req.VoterID, req.Choice)
	if err != nil {
		if errors.Is(err, voteledger.ErrAlreadyVoted) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}

	a.emitVoteCast(ctx, req.SessionID, req.VoterID, vote.CreatedAt)

	log.Info().
		Str("session_id", req.SessionID.String()).
		Str("voter_id", req.VoterID).
		Msg("vote cast")
	return vote, nil
}

// Tally returns the current vote counts, derived by counting ledger rows.
func (a *App) Tally(ctx context.Context, sessionID uuid.UUID) (models.Tally, error) {
	return a.ledger.CountVotes(ctx, sessionID)
}

// GetArguments returns the arguments submitted so far, keyed by role.
func (a *App) GetArguments(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Argument, error) {
	return a.repo.GetArguments(ctx, sessionID)
}

// ResolveIfDue finishes a voting session whose window has closed. Reads call
// it lazily so resolution never depends on any client staying connected; the
// sweeper calls it on a timer for sessions nobody is reading. It is a no-op
// before the deadline and after resolution.
func (a *App) ResolveIfDue(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	sess, err := a.sessionApp.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Phase != models.SessionPhaseVoting || sess.VotingEndsAt == nil {
		return sess, nil
	}
	if a.clock.Now().Before(*sess.VotingEndsAt) {
		return sess, nil
	}
	return a.resolve(ctx, sess)
}

// resolve tallies the ledger and applies the voting to finished transition.
// Exactly one caller wins the compare-and-set and emits SessionFinished.
func (a *App) resolve(ctx context.Context, sess *models.Session) (*models.Session, error) {
	tally, err := a.ledger.CountVotes(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	outcome := scoring.DeliberationOutcome(tally, a.clock.Now())
	applied, err := a.sessionApp.TransitionPhase(ctx, sess.ID, session.PhaseTransition{
		From:    models.SessionPhaseVoting,
		To:      models.SessionPhaseFinished,
		Outcome: &outcome,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deliberation %s: %w", sess.ID, err)
	}

	if applied {
		a.emitSessionFinished(ctx, sess.ID, outcome)
		log.Info().
			Str("session_id", sess.ID.String()).
			Int("votes_a", tally.VotesA).
			Int("votes_b", tally.VotesB).
			Msg("deliberation resolved")
	}

	return a.sessionApp.GetSession(ctx, sess.ID)
}

func (a *App) emitRoleClaimed(ctx context.Context, req ClaimRoleRequest, bothTaken bool) {
	payload, err := json.Marshal(events.RoleClaimedPayload{
		SessionID: req.SessionID.String(),
		Role:      req.Role,
		UserID:    req.UserID,
		UserName:  req.UserName,
		ClaimedAt: a.clock.Now(),
		BothTaken: bothTaken,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal RoleClaimed payload")
		return
	}
	if err := a.outbox.InsertRoleClaimedEvent(ctx, req.SessionID, payload); err != nil {
		log.Error().Err(err).
			Str("session_id", req.SessionID.String()).
			Msg("failed to insert RoleClaimed outbox event")
	}
}

func (a *App) emitArgumentSubmitted(ctx context.Context, sessionID uuid.UUID, role models.Role, submittedAt time.Time) {
	payload, err := json.Marshal(events.ArgumentSubmittedPayload{
		SessionID:   sessionID.String(),
		Role:        role,
		SubmittedAt: submittedAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal ArgumentSubmitted payload")
		return
	}
	if err := a.outbox.InsertArgumentSubmittedEvent(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Msg("failed to insert ArgumentSubmitted outbox event")
	}
}

func (a *App) emitVotingOpened(ctx context.Context, sessionID uuid.UUID, votingEndsAt time.Time) {
	payload, err := json.Marshal(events.VotingOpenedPayload{
		SessionID:    sessionID.String(),
		OpenedAt:     a.clock.Now(),
		VotingEndsAt: votingEndsAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal VotingOpened payload")
		return
	}
	if err := a.outbox.InsertVotingOpenedEvent(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Msg("failed to insert VotingOpened outbox event")
	}
}

func (a *App) emitVoteCast(ctx context.Context, sessionID uuid.UUID, voterID string, castAt time.Time) {
	payload, err := json.Marshal(events.VoteCastPayload{
		SessionID: sessionID.String(),
		VoterID:   voterID,
		CastAt:    castAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal VoteCast payload")
		return
	}
	if err := a.outbox.InsertVoteCastEvent(ctx, sessionID, payload); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Msg("failed to insert VoteCast outbox event")
	}
}

func (a *App) emitSessionFinished(ctx context.Context, sessionID uuid.UUID, outcome models.Outcome) {
	payload, err := json.Marshal(events.SessionFinishedPayload{
		SessionID:  sessionID.String(),
		Kind:       models.SessionKindDeliberation,
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
