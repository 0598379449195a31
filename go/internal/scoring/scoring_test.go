package scoring

import (
	"testing"
	"time"

	"github.com/mcdev12/faceoff/go/internal/models"
)

func standardRules() models.DuelRules {
	return models.DuelRules{
		QuestionCount: 5,
		TimeLimitSec:  15,
		BasePoints:    100,
		BonusRate:     3,
	}
}

func TestAnswerScore(t *testing.T) {
	rules := standardRules()

	tests := []struct {
		name    string
		correct bool
		elapsed float64
		want    int
	}{
		{"correct fast answer earns base plus bonus", true, 3, 136},
		{"correct instant answer earns full bonus", true, 0, 145},
		{"correct at the wire earns base only", true, 14.9, 100},
		{"incorrect answer earns nothing", false, 3, 0},
		{"timed out answer earns nothing even if correct", true, 15, 0},
		{"elapsed past the limit earns nothing", true, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnswerScore(tt.correct, tt.elapsed, rules)
			if got != tt.want {
				t.Errorf("AnswerScore(%v, %v) = %d, want %d", tt.correct, tt.elapsed, got, tt.want)
			}
		})
	}
}

// TestPerfectDuelScore verifies the reference scenario: five correct answers
// at 3s each with a 15s limit and bonus rate 3 total 680 points.
func TestPerfectDuelScore(t *testing.T) {
	rules := standardRules()

	total := 0
	for i := 0; i < rules.QuestionCount; i++ {
		total += AnswerScore(true, 3, rules)
	}

	if total != 680 {
		t.Errorf("total score = %d, want 680", total)
	}
}

func TestWinnerByScore(t *testing.T) {
	if w := WinnerByScore(680, 0); w == nil || *w != models.RoleA {
		t.Errorf("WinnerByScore(680, 0) = %v, want A", w)
	}
	if w := WinnerByScore(100, 250); w == nil || *w != models.RoleB {
		t.Errorf("WinnerByScore(100, 250) = %v, want B", w)
	}
	if w := WinnerByScore(300, 300); w != nil {
		t.Errorf("WinnerByScore(300, 300) = %v, want draw (nil)", *w)
	}
}

func TestWinnerByVotes(t *testing.T) {
	if w := WinnerByVotes(3, 2); w == nil || *w != models.RoleA {
		t.Errorf("WinnerByVotes(3, 2) = %v, want A", w)
	}
	if w := WinnerByVotes(0, 0); w != nil {
		t.Errorf("WinnerByVotes(0, 0) = %v, want tie (nil)", *w)
	}
}

func TestDuelOutcome(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	outcome := DuelOutcome(680, 0, now)
	if outcome.Winner == nil || *outcome.Winner != models.RoleA {
		t.Fatalf("winner = %v, want A", outcome.Winner)
	}
	if outcome.ScoreA != 680 || outcome.ScoreB != 0 {
		t.Errorf("scores = %d/%d, want 680/0", outcome.ScoreA, outcome.ScoreB)
	}
	if !outcome.DecidedAt.Equal(now) {
		t.Errorf("decided_at = %v, want %v", outcome.DecidedAt, now)
	}
}

func TestDeliberationOutcome(t *testing.T) {
	now := time.Now()

	outcome := DeliberationOutcome(models.Tally{VotesA: 3, VotesB: 2}, now)
	if outcome.Winner == nil || *outcome.Winner != models.RoleA {
		t.Fatalf("winner = %v, want A", outcome.Winner)
	}
	if outcome.VotesA != 3 || outcome.VotesB != 2 {
		t.Errorf("votes = %d/%d, want 3/2", outcome.VotesA, outcome.VotesB)
	}

	tied := DeliberationOutcome(models.Tally{VotesA: 2, VotesB: 2}, now)
	if tied.Winner != nil {
		t.Errorf("tied outcome winner = %v, want nil", *tied.Winner)
	}
}
