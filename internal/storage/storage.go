package storage

import (
	"context"
	"time"
)

// maxStoredCodeLen bounds how much of the submission is kept with a score.
const maxStoredCodeLen = 100

// Score is one graded submission for one student and question. Sub-scores
// are the advisory service's 0-10 axes; Overall is 0-100.
type Score struct {
	ID              string    `json:"id"`
	StudentName     string    `json:"student_name"`
	QuestionID      string    `json:"question_id"`
	QuestionTitle   string    `json:"question_title"`
	Overall         int       `json:"score"`
	TimeComplexity  int       `json:"time_complexity_score"`
	SpaceComplexity int       `json:"space_complexity_score"`
	Readability     int       `json:"readability_score"`
	Stability       int       `json:"stability_score"`
	Code            string    `json:"code,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ClampCode truncates the stored code to the retention bound.
func (s *Score) ClampCode() {
	if len(s.Code) > maxStoredCodeLen {
		s.Code = s.Code[:maxStoredCodeLen]
	}
}

// Store is the persistence interface for scores.
type Store interface {
	// SubmitScore records a score, keeping the highest overall score per
	// (student, question) pair. It reports whether the stored record
	// changed.
	SubmitScore(ctx context.Context, score *Score) (bool, error)

	// StudentScores returns all scores for one student, newest first.
	StudentScores(ctx context.Context, studentName string) ([]Score, error)

	// Close releases resources.
	Close() error
}
