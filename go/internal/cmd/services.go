package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/faceoff/go/internal/deliberation"
	"github.com/mcdev12/faceoff/go/internal/duel"
	"github.com/mcdev12/faceoff/go/internal/gateway"
	"github.com/mcdev12/faceoff/go/internal/outbox"
	"github.com/mcdev12/faceoff/go/internal/session"
	"github.com/mcdev12/faceoff/go/internal/sweeper"
	"github.com/mcdev12/faceoff/go/internal/voteledger"
)

type Services struct {
	Duel         *duel.Service
	Deliberation *deliberation.Service

	SessionApp      *session.App
	DuelApp         *duel.App
	DeliberationApp *deliberation.App
	OutboxApp       *outbox.App
	OutboxRepo      *outbox.Repository

	StateProvider *gateway.SessionStateProvider
	Sweeper       *sweeper.Sweeper
}

func setupServices(database *sql.DB, cfg *Config) *Services {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	// Outbox
	outboxRepo := outbox.NewRepository(database)
	outboxApp := outbox.NewApp(outboxRepo)

	// Sessions
	sessionRepo := session.NewRepository(database)
	sessionApp := session.NewApp(sessionRepo)

	// Vote ledger
	voteRepo := voteledger.NewRepository(database)

	// Duels
	duelRepo := duel.NewRepository(database)
	duelApp := duel.NewApp(duelRepo, sessionApp, outboxApp, clock)
	duelService := duel.NewService(duelApp)

	// Deliberations
	argRepo := deliberation.NewRepository(database)
	deliberationApp := deliberation.NewApp(argRepo, sessionApp, voteRepo, outboxApp, clock)
	deliberationService := deliberation.NewService(deliberationApp)

	// Read-side snapshot provider for the gateway
	stateProvider := gateway.NewSessionStateProvider(sessionApp, duelApp, deliberationApp)

	// Deadline sweeper for abandoned voting windows
	deadlineSweeper := sweeper.NewSweeper(sessionApp, deliberationApp, cfg.Sweeper.BatchSize)

	return &Services{
		Duel:         duelService,
		Deliberation: deliberationService,

		SessionApp:      sessionApp,
		DuelApp:         duelApp,
		DeliberationApp: deliberationApp,
		OutboxApp:       outboxApp,
		OutboxRepo:      outboxRepo,

		StateProvider: stateProvider,
		Sweeper:       deadlineSweeper,
	}
}
