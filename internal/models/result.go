package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// TestResult is created exactly once, at submission, and never mutated.
// TestTitle is denormalized so results survive deletion of the source test.
type TestResult struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	TestID    string `json:"test_id" gorm:"not null;index;size:36"`
	TestTitle string `json:"test_title" gorm:"not null;size:200"`

	TotalQuestions int `json:"total_questions" gorm:"not null"`
	CorrectAnswers int `json:"correct_answers" gorm:"not null"`

	// TimeTaken is elapsed seconds, capped at the planned duration.
	TimeTaken int `json:"time_taken" gorm:"not null"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`

	// Answers is the raw answer map: question id -> selected option index.
	Answers datatypes.JSON `json:"answers" gorm:"type:json"`

	Violations int `json:"violations" gorm:"not null;default:0"`
}

func (TestResult) TableName() string {
	return "test_results"
}

// AnswerMap decodes the raw answer column.
func (r *TestResult) AnswerMap() (map[string]int, error) {
	answers := make(map[string]int)
	if len(r.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(r.Answers, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode answer map: %w", err)
	}
	return answers, nil
}

// SetAnswers encodes the answer map into the Answers column.
func (r *TestResult) SetAnswers(answers map[string]int) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answer map: %w", err)
	}
	r.Answers = datatypes.JSON(raw)
	return nil
}
