package clientsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/faceoff/go/internal/models"
)

type fakeFetcher struct {
	mu   sync.Mutex
	sess *models.Session
}

func (f *fakeFetcher) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := *f.sess
	return &snapshot, nil
}

func (f *fakeFetcher) set(sess *models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = sess
}

func waitForSession(t *testing.T, ch <-chan *models.Session) *models.Session {
	t.Helper()
	select {
	case sess := <-ch:
		return sess
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a session delivery")
		return nil
	}
}

// TestSyncLoopDeliversInitialSnapshot verifies a new watch receives the
// current record straight away. A subscriber joining a quiet session must
// still get phase-determining state without waiting for the next event.
func TestSyncLoopDeliversInitialSnapshot(t *testing.T) {
	sessionID := uuid.New()
	fetcher := &fakeFetcher{sess: &models.Session{
		ID:    sessionID,
		Kind:  models.SessionKindDeliberation,
		Phase: models.SessionPhaseOpen,
	}}
	c := &Client{fetcher: fetcher, config: DefaultConfig()}

	// Seeded wake, exactly as Subscribe arms it.
	wake := make(chan struct{}, 1)
	wake <- struct{}{}

	got := make(chan *models.Session, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.syncLoop(ctx, sessionID, wake, func(s *models.Session) { got <- s })

	sess := waitForSession(t, got)
	if sess.ID != sessionID {
		t.Fatalf("delivered session %s, want %s", sess.ID, sessionID)
	}
	if sess.Phase != models.SessionPhaseOpen {
		t.Fatalf("initial snapshot phase = %s, want %s", sess.Phase, models.SessionPhaseOpen)
	}
}

// TestSyncLoopReplacesRecordOnNotification verifies each wake delivers the
// record as the store currently holds it, replacing the previous copy.
func TestSyncLoopReplacesRecordOnNotification(t *testing.T) {
	sessionID := uuid.New()
	fetcher := &fakeFetcher{sess: &models.Session{
		ID:    sessionID,
		Kind:  models.SessionKindDeliberation,
		Phase: models.SessionPhaseDrafting,
	}}
	c := &Client{fetcher: fetcher, config: DefaultConfig()}

	wake := make(chan struct{}, 1)
	wake <- struct{}{}

	got := make(chan *models.Session, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.syncLoop(ctx, sessionID, wake, func(s *models.Session) { got <- s })

	first := waitForSession(t, got)
	if first.Phase != models.SessionPhaseDrafting {
		t.Fatalf("initial phase = %s, want %s", first.Phase, models.SessionPhaseDrafting)
	}

	// The store moves on; a notification arrives.
	endsAt := time.Now().Add(48 * time.Hour)
	fetcher.set(&models.Session{
		ID:           sessionID,
		Kind:         models.SessionKindDeliberation,
		Phase:        models.SessionPhaseVoting,
		VotingEndsAt: &endsAt,
	})
	wake <- struct{}{}

	second := waitForSession(t, got)
	if second.Phase != models.SessionPhaseVoting {
		t.Fatalf("refetched phase = %s, want %s", second.Phase, models.SessionPhaseVoting)
	}
	if second.VotingEndsAt == nil {
		t.Fatal("refetched record lost its voting deadline")
	}
}
