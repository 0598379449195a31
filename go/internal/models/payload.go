package models

// DuelRules holds the scoring parameters of a quiz duel. They are attached to
// the session payload at creation and never change afterwards.
type DuelRules struct {
	QuestionCount int     `json:"question_count"`
	TimeLimitSec  float64 `json:"time_limit_sec"`
	BasePoints    int     `json:"base_points"`
	BonusRate     float64 `json:"bonus_rate"`
}

// DefaultDuelRules returns the standard scoring parameters.
func DefaultDuelRules(questionCount int) DuelRules {
	return DuelRules{
		QuestionCount: questionCount,
		TimeLimitSec:  15,
		BasePoints:    100,
		BonusRate:     3,
	}
}

// QuizQuestion is one entry of a duel's fixed question battery. AnswerIndex is
// the answer key and is only compared server-side.
type QuizQuestion struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

// Payload is the immutable content blob attached to a session at creation:
// the question battery for duels, the case description for deliberations.
type Payload struct {
	Rules     *DuelRules     `json:"rules,omitempty"`
	Questions []QuizQuestion `json:"questions,omitempty"`
	CaseTitle string         `json:"case_title,omitempty"`
	CaseText  string         `json:"case_text,omitempty"`
}
