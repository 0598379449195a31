package deliberation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/faceoff/go/internal/models"
	"github.com/mcdev12/faceoff/go/internal/session"
	"github.com/mcdev12/faceoff/go/internal/voteledger"
)

// fakeSessionApp holds one session in memory. ClaimRoleSlot and
// TransitionPhase mirror the conditional-write semantics of the SQL
// repository so races behave the same way under test.
type fakeSessionApp struct {
	mu   sync.Mutex
	sess *models.Session
}

func (f *fakeSessionApp) CreateDeliberation(ctx context.Context, initiator *models.Participant, initiatorRole models.Role, payload models.Payload) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = &models.Session{
		ID:      uuid.New(),
		Kind:    models.SessionKindDeliberation,
		Phase:   models.SessionPhaseOpen,
		Payload: payload,
	}
	if initiator != nil {
		switch initiatorRole {
		case models.RoleA:
			f.sess.ParticipantA = initiator
		case models.RoleB:
			f.sess.ParticipantB = initiator
		}
	}
	return f.snapshot(), nil
}

func (f *fakeSessionApp) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(), nil
}

func (f *fakeSessionApp) ClaimRoleSlot(ctx context.Context, sessionID uuid.UUID, role models.Role, userID, userName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot := &f.sess.ParticipantA
	other := f.sess.ParticipantB
	if role == models.RoleB {
		slot = &f.sess.ParticipantB
		other = f.sess.ParticipantA
	}
	if *slot != nil {
		return false, nil
	}
	if other != nil && other.UserID == userID {
		return false, nil
	}
	*slot = &models.Participant{UserID: userID, Name: userName}
	return true, nil
}

func (f *fakeSessionApp) TransitionPhase(ctx context.Context, sessionID uuid.UUID, t session.PhaseTransition) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess.Phase != t.From {
		return false, nil
	}
	f.sess.Phase = t.To
	if t.Outcome != nil {
		f.sess.Outcome = t.Outcome
	}
	if t.VotingEndsAt != nil {
		f.sess.VotingEndsAt = t.VotingEndsAt
	}
	return true, nil
}

func (f *fakeSessionApp) snapshot() *models.Session {
	copied := *f.sess
	return &copied
}

// fakeArgRepo is an in-memory ArgumentRepository where the first insert per
// role wins, like the primary key in the SQL schema.
type fakeArgRepo struct {
	mu   sync.Mutex
	args map[models.Role]*models.Argument
}

func newFakeArgRepo() *fakeArgRepo {
	return &fakeArgRepo{args: make(map[models.Role]*models.Argument)}
}

func (f *fakeArgRepo) InsertArgument(ctx context.Context, arg models.Argument) (*models.Argument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.args[arg.Role]; ok {
		return nil, ErrAlreadySubmitted
	}
	f.args[arg.Role] = &arg
	return &arg, nil
}

func (f *fakeArgRepo) GetArguments(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Argument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[models.Role]*models.Argument, len(f.args))
	for role, arg := range f.args {
		out[role] = arg
	}
	return out, nil
}

// fakeLedger enforces one vote per voter, like the unique index on
// (session_id, voter_id).
type fakeLedger struct {
	mu    sync.Mutex
	votes map[string]models.Role
	clock clockwork.Clock
}

func newFakeLedger(clock clockwork.Clock) *fakeLedger {
	return &fakeLedger{votes: make(map[string]models.Role), clock: clock}
}

func (f *fakeLedger) InsertVote(ctx context.Context, sessionID uuid.UUID, voterID string, choice models.Role) (*models.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.votes[voterID]; ok {
		return nil, voteledger.ErrAlreadyVoted
	}
	f.votes[voterID] = choice
	return &models.Vote{
		ID:        uuid.New(),
		SessionID: sessionID,
		VoterID:   voterID,
		Choice:    choice,
		CreatedAt: f.clock.Now(),
	}, nil
}

func (f *fakeLedger) CountVotes(ctx context.Context, sessionID uuid.UUID) (models.Tally, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tally models.Tally
	for _, choice := range f.votes {
		if choice == models.RoleA {
			tally.VotesA++
		} else {
			tally.VotesB++
		}
	}
	return tally, nil
}

// fakeOutbox counts emitted events instead of persisting them.
type fakeOutbox struct {
	roleClaimed       atomic.Int64
	argumentSubmitted atomic.Int64
	votingOpened      atomic.Int64
	voteCast          atomic.Int64
	sessionFinished   atomic.Int64
}

func (f *fakeOutbox) InsertRoleClaimedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.roleClaimed.Add(1)
	return nil
}

func (f *fakeOutbox) InsertArgumentSubmittedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.argumentSubmitted.Add(1)
	return nil
}

func (f *fakeOutbox) InsertVotingOpenedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.votingOpened.Add(1)
	return nil
}

func (f *fakeOutbox) InsertVoteCastEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.voteCast.Add(1)
	return nil
}

func (f *fakeOutbox) InsertSessionFinishedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.sessionFinished.Add(1)
	return nil
}

func newTestApp(t *testing.T) (*App, *models.Session, *clockwork.FakeClock, *fakeOutbox) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	sessions := &fakeSessionApp{}
	outbox := &fakeOutbox{}
	app := NewApp(newFakeArgRepo(), sessions, newFakeLedger(clock), outbox, clock)

	sess, err := app.CreateDeliberation(context.Background(), CreateDeliberationRequest{
		Payload: models.Payload{CaseTitle: "tabs vs spaces", CaseText: "the eternal question"},
	})
	if err != nil {
		t.Fatalf("CreateDeliberation: %v", err)
	}
	return app, sess, clock, outbox
}

func claimBoth(t *testing.T, app *App, sessionID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	if _, err := app.ClaimRole(ctx, ClaimRoleRequest{SessionID: sessionID, Role: models.RoleA, UserID: "1", UserName: "One"}); err != nil {
		t.Fatalf("claim A: %v", err)
	}
	if _, err := app.ClaimRole(ctx, ClaimRoleRequest{SessionID: sessionID, Role: models.RoleB, UserID: "2", UserName: "Two"}); err != nil {
		t.Fatalf("claim B: %v", err)
	}
}

// TestFullDeliberation walks a session from recruiting through resolution:
// two claims, two arguments, five votes (3 for A, 2 for B), then the
// deadline passes and A wins.
func TestFullDeliberation(t *testing.T) {
	app, sess, clock, outbox := newTestApp(t)
	ctx := context.Background()

	claimBoth(t, app, sess.ID)

	if _, err := app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "1", Text: "tabs"}); err != nil {
		t.Fatalf("submit A: %v", err)
	}
	if _, err := app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "2", Text: "spaces"}); err != nil {
		t.Fatalf("submit B: %v", err)
	}

	state, _ := app.ResolveIfDue(ctx, sess.ID)
	if state.Phase != models.SessionPhaseVoting {
		t.Fatalf("phase = %s, want VOTING", state.Phase)
	}
	wantEnds := clock.Now().Add(VotingWindow)
	if state.VotingEndsAt == nil || !state.VotingEndsAt.Equal(wantEnds) {
		t.Fatalf("voting_ends_at = %v, want %v", state.VotingEndsAt, wantEnds)
	}

	for voter, choice := range map[string]models.Role{
		"v1": models.RoleA, "v2": models.RoleA, "v3": models.RoleA,
		"v4": models.RoleB, "v5": models.RoleB,
	} {
		if _, err := app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: voter, Choice: choice}); err != nil {
			t.Fatalf("vote %s: %v", voter, err)
		}
	}

	clock.Advance(VotingWindow + time.Minute)

	final, err := app.ResolveIfDue(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ResolveIfDue: %v", err)
	}
	if final.Phase != models.SessionPhaseFinished {
		t.Fatalf("phase = %s, want FINISHED", final.Phase)
	}
	if final.Outcome == nil || final.Outcome.Winner == nil || *final.Outcome.Winner != models.RoleA {
		t.Errorf("winner = %v, want A", final.Outcome)
	}
	if final.Outcome.VotesA != 3 || final.Outcome.VotesB != 2 {
		t.Errorf("tally = (%d,%d), want (3,2)", final.Outcome.VotesA, final.Outcome.VotesB)
	}
	if got := outbox.sessionFinished.Load(); got != 1 {
		t.Errorf("SessionFinished events = %d, want 1", got)
	}
	if got := outbox.votingOpened.Load(); got != 1 {
		t.Errorf("VotingOpened events = %d, want 1", got)
	}
}

// TestClaimRoleRace fires many concurrent claims for the same role and
// checks exactly one wins; the rest get ErrRoleAlreadyTaken.
func TestClaimRoleRace(t *testing.T) {
	app, sess, _, _ := newTestApp(t)
	ctx := context.Background()

	const claimants = 10
	var wins, losses atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := app.ClaimRole(ctx, ClaimRoleRequest{
				SessionID: sess.ID,
				Role:      models.RoleA,
				UserID:    uuid.NewString(),
				UserName:  "claimant",
			})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrRoleAlreadyTaken):
				losses.Add(1)
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want exactly 1", wins.Load())
	}
	if losses.Load() != claimants-1 {
		t.Errorf("losers = %d, want %d", losses.Load(), claimants-1)
	}
}

// TestClaimRoleIdempotent verifies re-claiming your own slot succeeds and
// claiming the opposite slot while holding one fails.
func TestClaimRoleIdempotent(t *testing.T) {
	app, sess, _, _ := newTestApp(t)
	ctx := context.Background()

	req := ClaimRoleRequest{SessionID: sess.ID, Role: models.RoleA, UserID: "1", UserName: "One"}
	if _, err := app.ClaimRole(ctx, req); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := app.ClaimRole(ctx, req); err != nil {
		t.Fatalf("repeat claim: %v", err)
	}

	_, err := app.ClaimRole(ctx, ClaimRoleRequest{SessionID: sess.ID, Role: models.RoleB, UserID: "1", UserName: "One"})
	if !errors.Is(err, ErrAlreadyParticipant) {
		t.Errorf("err = %v, want ErrAlreadyParticipant", err)
	}
}

// TestSubmitArgumentOnce verifies the second argument for a role is
// rejected with ErrAlreadySubmitted and the first text stands.
func TestSubmitArgumentOnce(t *testing.T) {
	app, sess, _, _ := newTestApp(t)
	ctx := context.Background()

	claimBoth(t, app, sess.ID)

	if _, err := app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "1", Text: "first"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "1", Text: "second"})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
	}

	args, _ := app.GetArguments(ctx, sess.ID)
	if args[models.RoleA].Text != "first" {
		t.Errorf("text = %q, want %q", args[models.RoleA].Text, "first")
	}
}

// TestCastVoteTwice verifies the second vote by the same voter returns
// ErrAlreadyVoted and leaves the tally unchanged.
func TestCastVoteTwice(t *testing.T) {
	app, sess, _, _ := newTestApp(t)
	ctx := context.Background()

	claimBoth(t, app, sess.ID)
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "1", Text: "tabs"})
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "2", Text: "spaces"})

	if _, err := app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "3", Choice: models.RoleA}); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	_, err := app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "3", Choice: models.RoleB})
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("err = %v, want ErrAlreadyVoted", err)
	}

	tally, _ := app.Tally(ctx, sess.ID)
	if tally.VotesA != 1 || tally.VotesB != 0 {
		t.Errorf("tally = (%d,%d), want (1,0)", tally.VotesA, tally.VotesB)
	}
}

// TestVotingClosed verifies votes before voting opens and after the
// deadline both return ErrVotingClosed, and a late vote triggers lazy
// resolution.
func TestVotingClosed(t *testing.T) {
	app, sess, clock, _ := newTestApp(t)
	ctx := context.Background()

	if _, err := app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "3", Choice: models.RoleA}); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("vote before voting: err = %v, want ErrVotingClosed", err)
	}

	claimBoth(t, app, sess.ID)
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "1", Text: "tabs"})
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "2", Text: "spaces"})
	app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "3", Choice: models.RoleA})

	clock.Advance(VotingWindow + time.Second)

	if _, err := app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "4", Choice: models.RoleB}); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("late vote: err = %v, want ErrVotingClosed", err)
	}

	// The rejected late vote resolved the session.
	final, _ := app.ResolveIfDue(ctx, sess.ID)
	if final.Phase != models.SessionPhaseFinished {
		t.Errorf("phase = %s, want FINISHED", final.Phase)
	}
	if final.Outcome == nil || final.Outcome.Winner == nil || *final.Outcome.Winner != models.RoleA {
		t.Errorf("winner = %v, want A", final.Outcome)
	}
}

// TestResolveTie verifies an even split yields no winner.
func TestResolveTie(t *testing.T) {
	app, sess, clock, _ := newTestApp(t)
	ctx := context.Background()

	claimBoth(t, app, sess.ID)
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "1", Text: "tabs"})
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "2", Text: "spaces"})
	app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "3", Choice: models.RoleA})
	app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "4", Choice: models.RoleB})

	clock.Advance(VotingWindow + time.Second)

	final, err := app.ResolveIfDue(ctx, sess.ID)
	if err != nil {
		t.Fatalf("ResolveIfDue: %v", err)
	}
	if final.Outcome == nil {
		t.Fatal("outcome not recorded")
	}
	if final.Outcome.Winner != nil {
		t.Errorf("winner = %v, want tie", *final.Outcome.Winner)
	}
}

// TestResolveIdempotent verifies resolving an already finished session is a
// no-op that returns the same outcome.
func TestResolveIdempotent(t *testing.T) {
	app, sess, clock, outbox := newTestApp(t)
	ctx := context.Background()

	claimBoth(t, app, sess.ID)
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "1", Text: "tabs"})
	app.SubmitArgument(ctx, SubmitArgumentRequest{SessionID: sess.ID, UserID: "2", Text: "spaces"})
	app.CastVote(ctx, CastVoteRequest{SessionID: sess.ID, VoterID: "3", Choice: models.RoleA})

	clock.Advance(VotingWindow + time.Second)

	first, err := app.ResolveIfDue(ctx, sess.ID)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := app.ResolveIfDue(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if *first.Outcome.Winner != *second.Outcome.Winner {
		t.Errorf("outcome changed across resolves")
	}
	if got := outbox.sessionFinished.Load(); got != 1 {
		t.Errorf("SessionFinished events = %d, want 1", got)
	}
}
