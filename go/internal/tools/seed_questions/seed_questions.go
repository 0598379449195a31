package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/faceoff/go/internal/dbconfig"
	"github.com/mcdev12/faceoff/go/internal/models"
)

// Battery mirrors the JSON snapshot: one entry per demo duel.
type Battery struct {
	ParticipantA models.Participant    `json:"participant_a"`
	ParticipantB models.Participant    `json:"participant_b"`
	Questions    []models.QuizQuestion `json:"questions"`
}

func main() {
	// 1) Load the JSON snapshot
	path := "go/internal/assets/batteries.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var batteries []Battery
	if err := json.Unmarshal(data, &batteries); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert a ready-to-play duel per battery
	var (
		total    = len(batteries)
		inserted int
		errs     int
	)

	for i, b := range batteries {
		rules := models.DefaultDuelRules(len(b.Questions))
		payload, err := json.Marshal(models.Payload{
			Rules:     &rules,
			Questions: b.Questions,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error marshaling battery %d: %v\n", i, err)
			errs++
			continue
		}

		sessionID := uuid.New()
		_, err = pool.Exec(context.Background(), `
            INSERT INTO sessions (
              id, kind, phase,
              participant_a_id, participant_a_name,
              participant_b_id, participant_b_name,
              payload
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7,$8
            )
        `,
			sessionID, models.SessionKindDuel, models.SessionPhaseActive,
			b.ParticipantA.UserID, b.ParticipantA.Name,
			b.ParticipantB.UserID, b.ParticipantB.Name,
			payload,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting session for battery %d: %v\n", i, err)
			errs++
			continue
		}

		_, err = pool.Exec(context.Background(), `
            INSERT INTO duel_progress (session_id, role, answered_count, score, answers)
            VALUES ($1, $2, 0, 0, '[]'), ($1, $3, 0, 0, '[]')
            ON CONFLICT (session_id, role) DO NOTHING
        `, sessionID, models.RoleA, models.RoleB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting progress for battery %d: %v\n", i, err)
			errs++
			continue
		}

		fmt.Printf("seeded duel %s (%s vs %s, %d questions)\n",
			sessionID, b.ParticipantA.Name, b.ParticipantB.Name, len(b.Questions))
		inserted++
	}

	// 4) Print summary
	fmt.Printf(
		"Duel seed complete: %d total, %d inserted, %d errors\n",
		total, inserted, errs,
	)
}
