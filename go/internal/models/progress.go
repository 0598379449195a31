package models

import "time"

// AnswerResult records the outcome of a single answered question.
type AnswerResult struct {
	QuestionIndex  int       `json:"question_index"`
	Correct        bool      `json:"correct"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Points         int       `json:"points"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// Progress is one duel participant's running tally. AnsweredCount never
// exceeds the session's question count and never decreases; Score is
// monotonically non-decreasing.
type Progress struct {
	AnsweredCount int            `json:"answered_count"`
	Score         int            `json:"score"`
	Answers       []AnswerResult `json:"answers"`
}

// ResultFor returns the recorded result for a question index, or nil if the
// question has not been answered yet.
func (p *Progress) ResultFor(questionIndex int) *AnswerResult {
	for i := range p.Answers {
		if p.Answers[i].QuestionIndex == questionIndex {
			return &p.Answers[i]
		}
	}
	return nil
}

// Complete reports whether the participant has answered all n questions.
func (p *Progress) Complete(n int) bool {
	return p.AnsweredCount >= n
}
