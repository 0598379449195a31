// Package scoring holds the pure score arithmetic shared by the duel and
// deliberation coordinators. No I/O, no state.
package scoring

import (
	"math"
	"time"

	"github.com/mcdev12/faceoff/go/internal/models"
)

// AnswerScore computes the points awarded for a single answer. A correct
// answer earns the base points plus a speed bonus; an incorrect or timed-out
// answer (elapsed >= limit) earns nothing.
func AnswerScore(correct bool, elapsedSeconds float64, rules models.DuelRules) int {
	if !correct || elapsedSeconds >= rules.TimeLimitSec {
		return 0
	}
	bonus := math.Round((rules.TimeLimitSec - elapsedSeconds) * rules.BonusRate)
	if bonus < 0 {
		bonus = 0
	}
	return rules.BasePoints + int(bonus)
}

// WinnerByScore compares final duel scores. Equal scores is a draw (nil).
func WinnerByScore(scoreA, scoreB int) *models.Role {
	return higher(scoreA, scoreB)
}

// WinnerByVotes compares deliberation vote counts. A tie yields nil.
func WinnerByVotes(votesA, votesB int) *models.Role {
	return higher(votesA, votesB)
}

func higher(a, b int) *models.Role {
	switch {
	case a > b:
		r := models.RoleA
		return &r
	case b > a:
		r := models.RoleB
		return &r
	default:
		return nil
	}
}

// DuelOutcome builds the authoritative outcome for a finished duel.
func DuelOutcome(scoreA, scoreB int, decidedAt time.Time) models.Outcome {
	return models.Outcome{
		Winner:    WinnerByScore(scoreA, scoreB),
		ScoreA:    scoreA,
		ScoreB:    scoreB,
		DecidedAt: decidedAt.UTC(),
	}
}

// DeliberationOutcome builds the authoritative outcome for a resolved
// deliberation.
func DeliberationOutcome(tally models.Tally, decidedAt time.Time) models.Outcome {
	return models.Outcome{
		Winner:    WinnerByVotes(tally.VotesA, tally.VotesB),
		VotesA:    tally.VotesA,
		VotesB:    tally.VotesB,
		DecidedAt: decidedAt.UTC(),
	}
}
