// Package sweeper resolves voting deadlines for sessions nobody is
// reading. Reads already resolve lazily; the sweeper is the backstop that
// guarantees an abandoned deliberation still finishes once its window
// closes.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/faceoff/go/internal/models"
	"github.com/mcdev12/faceoff/go/internal/session"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// DeadlineSource exposes the voting deadlines the sweeper sleeps on.
type DeadlineSource interface {
	FetchNextVotingDeadline(ctx context.Context) (*session.NextDeadline, error)
	FetchSessionsDueForResolution(ctx context.Context, now time.Time, limit int32) ([]uuid.UUID, error)
}

// Resolver applies the voting to finished transition. Its compare-and-set
// makes concurrent resolution by the sweeper and a lazy read harmless.
type Resolver interface {
	ResolveIfDue(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
}

type Sweeper struct {
	deadlines  DeadlineSource
	resolver   Resolver
	batchSize  int32 // how many due sessions to claim at once
	clock      Clock
	wakeCh     chan struct{}
	instanceID string // unique ID for this sweeper instance

	// Worker pool configuration
	numWorkers int
	workCh     chan uuid.UUID

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// NewSweeper creates a new deadline sweeper with a worker pool
func NewSweeper(deadlines DeadlineSource, resolver Resolver, batchSize int32) *Sweeper {
	numWorkers := 4
	return &Sweeper{
		deadlines:  deadlines,
		resolver:   resolver,
		batchSize:  batchSize,
		clock:      clockwork.NewRealClock(),
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8], // short ID for logging

		numWorkers: numWorkers,
		workCh:     make(chan uuid.UUID, numWorkers*2), // Buffer to prevent blocking
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// WithClock swaps the clock, for tests.
func (s *Sweeper) WithClock(clock Clock) *Sweeper {
	s.clock = clock
	return s
}

// Wake nudges the scheduler to re-read the next deadline. Called when a new
// voting window opens with a sooner deadline than the one being slept on.
func (s *Sweeper) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run loops forever, sleeping until the next voting deadline and resolving
// due sessions through the worker pool.
func (s *Sweeper) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Int("workers", s.numWorkers).Msg("sweeper started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", s.instanceID).Msg("shutting down workers")
		cancelWorkers()
		close(s.workCh)
		wg.Wait()
		log.Info().Str("instance", s.instanceID).Msg("all workers shut down")
	}()

	timer := s.clock.NewTimer(0)
	defer timer.Stop()

	const idlePollDuration = 30 * time.Second
	retryCount := 0
	const maxRetries = 3

	for {
		select {
		case <-s.wakeCh:
			log.Debug().Str("instance", s.instanceID).Msg("drained wake channel")
		default:
		}

		nd, err := s.deadlines.FetchNextVotingDeadline(ctx)
		if err != nil {
			retryCount++
			if retryCount <= maxRetries {
				log.Error().
					Err(err).
					Int("retry", retryCount).
					Str("instance", s.instanceID).
					Msg("error fetching next deadline, retrying")
				timer.Reset(time.Second * time.Duration(retryCount))
				select {
				case <-timer.Chan():
					continue
				case <-ctx.Done():
					return nil
				}
			}
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching next deadline after retries")
			return err
		}
		retryCount = 0 // Reset on success

		if nd == nil || nd.Deadline == nil {
			// No voting sessions - idle with timer reuse
			log.Debug().Str("instance", s.instanceID).Msg("no voting sessions; polling again in 30s")
			timer.Reset(idlePollDuration)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during idle")
				return nil
			case <-s.wakeCh:
				log.Debug().Str("instance", s.instanceID).Msg("woken up from idle")
				continue
			}
		}

		wait := nd.Deadline.Sub(s.clock.Now())
		if wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
				log.Info().Str("instance", s.instanceID).Msg("timer fired, fetching due sessions")
			case <-ctx.Done():
				log.Info().Str("instance", s.instanceID).Msg("shutdown during wait")
				return nil
			case <-s.wakeCh:
				log.Debug().Str("instance", s.instanceID).Msg("woken up early, new sooner deadline")
				continue
			}
		}

		due, err := s.deadlines.FetchSessionsDueForResolution(ctx, s.clock.Now(), s.batchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("error fetching due sessions")
			// Don't exit on error - retry next iteration
			timer.Reset(time.Second)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if len(due) > 0 {
			log.Info().
				Int("count_due", len(due)).
				Int32("batch_size", s.batchSize).
				Str("instance", s.instanceID).
				Msg("processing due sessions")

			for _, sessionID := range due {
				s.inFlightMu.Lock()
				if s.inFlight[sessionID] {
					log.Debug().Str("session_id", sessionID.String()).Str("instance", s.instanceID).Msg("skipping session already in flight")
					s.inFlightMu.Unlock()
					continue
				}
				s.inFlight[sessionID] = true
				s.inFlightMu.Unlock()

				select {
				case <-ctx.Done():
					s.inFlightMu.Lock()
					delete(s.inFlight, sessionID)
					s.inFlightMu.Unlock()
					log.Info().Str("instance", s.instanceID).Msg("shutdown while queueing resolutions")
					return nil
				case s.workCh <- sessionID:
					log.Debug().Str("session_id", sessionID.String()).Str("instance", s.instanceID).Msg("queued resolution for worker")
				}
			}
		}
	}
}

// worker resolves due sessions from the work channel
func (s *Sweeper) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	log.Info().
		Str("instance", s.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("instance", s.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case sessionID, ok := <-s.workCh:
			if !ok {
				log.Info().
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("work channel closed, worker shutting down")
				return
			}

			if _, err := s.resolver.ResolveIfDue(ctx, sessionID); err != nil {
				log.Error().
					Err(err).
					Str("session_id", sessionID.String()).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("worker resolution failed")
			} else {
				log.Info().
					Str("session_id", sessionID.String()).
					Str("instance", s.instanceID).
					Int("worker_id", workerID).
					Msg("session resolution attempted")
			}

			// Clean up in-flight tracking regardless of success/failure
			s.inFlightMu.Lock()
			delete(s.inFlight, sessionID)
			s.inFlightMu.Unlock()
		}
	}
}
