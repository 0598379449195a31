package duel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/faceoff/go/internal/models"
	"github.com/mcdev12/faceoff/go/internal/session"
)

// fakeDuelRepo is an in-memory DuelRepository with the same conditional
// write semantics as the SQL implementation.
type fakeDuelRepo struct {
	mu   sync.Mutex
	rows map[models.Role]models.Progress
}

func newFakeDuelRepo() *fakeDuelRepo {
	return &fakeDuelRepo{rows: make(map[models.Role]models.Progress)}
}

func (f *fakeDuelRepo) InitProgress(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, role := range []models.Role{models.RoleA, models.RoleB} {
		if _, ok := f.rows[role]; !ok {
			f.rows[role] = models.Progress{}
		}
	}
	return nil
}

func (f *fakeDuelRepo) GetProgress(ctx context.Context, sessionID uuid.UUID, role models.Role) (*models.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.rows[role]
	copied := p
	copied.Answers = append([]models.AnswerResult{}, p.Answers...)
	return &copied, nil
}

func (f *fakeDuelRepo) GetBothProgress(ctx context.Context, sessionID uuid.UUID) (map[models.Role]*models.Progress, error) {
	out := make(map[models.Role]*models.Progress, 2)
	for _, role := range []models.Role{models.RoleA, models.RoleB} {
		p, _ := f.GetProgress(ctx, sessionID, role)
		out[role] = p
	}
	return out, nil
}

func (f *fakeDuelRepo) UpdateProgressConditional(ctx context.Context, sessionID uuid.UUID, role models.Role, priorCount int, p models.Progress) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[role].AnsweredCount != priorCount {
		return false, nil
	}
	f.rows[role] = p
	return true, nil
}

// fakeSessionApp holds one session in memory and applies phase transitions
// atomically, mirroring the compare-and-set in the session repository.
type fakeSessionApp struct {
	mu   sync.Mutex
	sess *models.Session
}

func (f *fakeSessionApp) CreateDuel(ctx context.Context, a, b models.Participant, payload models.Payload) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = &models.Session{
		ID:           uuid.New(),
		Kind:         models.SessionKindDuel,
		Phase:        models.SessionPhaseActive,
		ParticipantA: &a,
		ParticipantB: &b,
		Payload:      payload,
	}
	return f.snapshot(), nil
}

func (f *fakeSessionApp) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(), nil
}

func (f *fakeSessionApp) TransitionPhase(ctx context.Context, sessionID uuid.UUID, t session.PhaseTransition) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess.Phase != t.From {
		return false, nil
	}
	f.sess.Phase = t.To
	f.sess.Outcome = t.Outcome
	return true, nil
}

func (f *fakeSessionApp) snapshot() *models.Session {
	copied := *f.sess
	return &copied
}

// fakeOutbox counts emitted events instead of persisting them.
type fakeOutbox struct {
	answerRecorded  atomic.Int64
	sessionFinished atomic.Int64
}

func (f *fakeOutbox) InsertAnswerRecordedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.answerRecorded.Add(1)
	return nil
}

func (f *fakeOutbox) InsertSessionFinishedEvent(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	f.sessionFinished.Add(1)
	return nil
}

func quizPayload(n int) models.Payload {
	rules := models.DefaultDuelRules(n)
	questions := make([]models.QuizQuestion, n)
	for i := range questions {
		questions[i] = models.QuizQuestion{
			Prompt:      "q",
			Options:     []string{"right", "wrong"},
			AnswerIndex: 0,
		}
	}
	return models.Payload{Rules: &rules, Questions: questions}
}

func newTestApp(t *testing.T, n int) (*App, *models.Session, *fakeDuelRepo, *fakeSessionApp, *fakeOutbox) {
	t.Helper()
	repo := newFakeDuelRepo()
	sessions := &fakeSessionApp{}
	outbox := &fakeOutbox{}
	app := NewApp(repo, sessions, outbox, clockwork.NewFakeClock())

	sess, err := app.CreateDuel(context.Background(), CreateDuelRequest{
		ParticipantA: models.Participant{UserID: "user-a", Name: "A"},
		ParticipantB: models.Participant{UserID: "user-b", Name: "B"},
		Payload:      quizPayload(n),
	})
	if err != nil {
		t.Fatalf("CreateDuel: %v", err)
	}
	return app, sess, repo, sessions, outbox
}

// TestSubmitAnswerScoring verifies a correct answer earns base points plus a
// time bonus and an incorrect one earns nothing.
func TestSubmitAnswerScoring(t *testing.T) {
	app, sess, _, _, _ := newTestApp(t, 5)
	ctx := context.Background()

	p, err := app.SubmitAnswer(ctx, SubmitAnswerRequest{
		SessionID:      sess.ID,
		UserID:         "user-a",
		QuestionIndex:  0,
		AnswerIndex:    0,
		ElapsedSeconds: 3,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	// base 100 + round((15-3)*3) = 136
	if p.Score != 136 {
		t.Errorf("score = %d, want 136", p.Score)
	}

	p, err = app.SubmitAnswer(ctx, SubmitAnswerRequest{
		SessionID:      sess.ID,
		UserID:         "user-a",
		QuestionIndex:  1,
		AnswerIndex:    1,
		ElapsedSeconds: 3,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if p.Score != 136 {
		t.Errorf("score after wrong answer = %d, want 136", p.Score)
	}
	if p.AnsweredCount != 2 {
		t.Errorf("answered_count = %d, want 2", p.AnsweredCount)
	}
}

// TestSubmitAnswerIdempotentReplay verifies resubmitting an answered
// question index returns the stored result without changing score or count.
func TestSubmitAnswerIdempotentReplay(t *testing.T) {
	app, sess, _, _, outbox := newTestApp(t, 5)
	ctx := context.Background()

	req := SubmitAnswerRequest{
		SessionID:      sess.ID,
		UserID:         "user-a",
		QuestionIndex:  0,
		AnswerIndex:    0,
		ElapsedSeconds: 3,
	}
	first, err := app.SubmitAnswer(ctx, req)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	// Replay with a different answer; the original result must stand.
	req.AnswerIndex = 1
	req.ElapsedSeconds = 14
	replayed, err := app.SubmitAnswer(ctx, req)
	if err != nil {
		t.Fatalf("replayed SubmitAnswer: %v", err)
	}
	if replayed.Score != first.Score || replayed.AnsweredCount != first.AnsweredCount {
		t.Errorf("replay changed progress: got (%d,%d), want (%d,%d)",
			replayed.Score, replayed.AnsweredCount, first.Score, first.AnsweredCount)
	}
	if got := outbox.answerRecorded.Load(); got != 1 {
		t.Errorf("AnswerRecorded events = %d, want 1", got)
	}
}

// TestSubmitAnswerAlreadyComplete verifies answers past the end of the
// battery are rejected with ErrAlreadyComplete.
func TestSubmitAnswerAlreadyComplete(t *testing.T) {
	app, sess, _, _, _ := newTestApp(t, 1)
	ctx := context.Background()

	if _, err := app.SubmitAnswer(ctx, SubmitAnswerRequest{
		SessionID: sess.ID, UserID: "user-a", QuestionIndex: 0, AnswerIndex: 0, ElapsedSeconds: 1,
	}); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	_, err := app.SubmitAnswer(ctx, SubmitAnswerRequest{
		SessionID: sess.ID, UserID: "user-a", QuestionIndex: 0, AnswerIndex: 0, ElapsedSeconds: 1,
	})
	// Same index replays fine even when complete.
	if err != nil {
		t.Fatalf("replay after complete: %v", err)
	}
}

// TestSubmitAnswerNotParticipant verifies spectators cannot submit answers.
func TestSubmitAnswerNotParticipant(t *testing.T) {
	app, sess, _, _, _ := newTestApp(t, 5)

	_, err := app.SubmitAnswer(context.Background(), SubmitAnswerRequest{
		SessionID: sess.ID, UserID: "spectator", QuestionIndex: 0, AnswerIndex: 0,
	})
	if err != ErrNotParticipant {
		t.Errorf("err = %v, want ErrNotParticipant", err)
	}
}

// TestPerfectDuel runs both participants through a full five-question duel
// with three-second answers and checks the final outcome is a draw at 680.
func TestPerfectDuel(t *testing.T) {
	app, sess, _, sessions, outbox := newTestApp(t, 5)
	ctx := context.Background()

	for _, userID := range []string{"user-a", "user-b"} {
		for i := 0; i < 5; i++ {
			if _, err := app.SubmitAnswer(ctx, SubmitAnswerRequest{
				SessionID:      sess.ID,
				UserID:         userID,
				QuestionIndex:  i,
				AnswerIndex:    0,
				ElapsedSeconds: 3,
			}); err != nil {
				t.Fatalf("SubmitAnswer %s q%d: %v", userID, i, err)
			}
		}
	}

	final, _ := sessions.GetSession(ctx, sess.ID)
	if final.Phase != models.SessionPhaseFinished {
		t.Fatalf("phase = %s, want FINISHED", final.Phase)
	}
	if final.Outcome == nil {
		t.Fatal("outcome not recorded")
	}
	if final.Outcome.ScoreA != 680 || final.Outcome.ScoreB != 680 {
		t.Errorf("scores = (%d,%d), want (680,680)", final.Outcome.ScoreA, final.Outcome.ScoreB)
	}
	if final.Outcome.Winner != nil {
		t.Errorf("winner = %v, want draw", *final.Outcome.Winner)
	}
	if got := outbox.sessionFinished.Load(); got != 1 {
		t.Errorf("SessionFinished events = %d, want 1", got)
	}
}

// TestConcurrentFinishRace runs both participants' last answers from many
// goroutines and checks the finish transition fires exactly once.
func TestConcurrentFinishRace(t *testing.T) {
	app, sess, _, sessions, outbox := newTestApp(t, 1)
	ctx := context.Background()

	const clients = 8
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		userID := "user-a"
		if i%2 == 1 {
			userID = "user-b"
		}
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, _ = app.SubmitAnswer(ctx, SubmitAnswerRequest{
				SessionID:      sess.ID,
				UserID:         userID,
				QuestionIndex:  0,
				AnswerIndex:    0,
				ElapsedSeconds: 2,
			})
		}(userID)
	}
	wg.Wait()

	final, _ := sessions.GetSession(ctx, sess.ID)
	if final.Phase != models.SessionPhaseFinished {
		t.Fatalf("phase = %s, want FINISHED", final.Phase)
	}
	if got := outbox.sessionFinished.Load(); got != 1 {
		t.Errorf("SessionFinished events = %d, want exactly 1", got)
	}
	if got := outbox.answerRecorded.Load(); got != 2 {
		t.Errorf("AnswerRecorded events = %d, want 2", got)
	}
}
