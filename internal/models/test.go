package models

import (
	"time"
)

// TestSettings is the value object attached to every test. RequireFullscreen
// defaults to true and the UI never turns it off; it stays a field so a
// stored test is self-describing.
type TestSettings struct {
	Title             string  `json:"title" gorm:"column:title;not null;size:200" validate:"required,min=1,max=200"`
	Description       *string `json:"description,omitempty" gorm:"column:description;type:text" validate:"omitempty,max=1000"`
	DurationMinutes   int     `json:"duration" gorm:"column:duration_minutes;not null" validate:"required,min=1,max=480"`
	ShuffleQuestions  bool    `json:"shuffle_questions" gorm:"column:shuffle_questions;default:false"`
	FreeNavigation    bool    `json:"free_navigation" gorm:"column:free_navigation;default:true"`
	RequireFullscreen bool    `json:"require_fullscreen" gorm:"column:require_fullscreen;default:true"`
}

// Test is mutable while it is being authored. A session works on a snapshot
// taken at start, so edits after a session begins never leak into it.
type Test struct {
	ID        string       `json:"id" gorm:"primaryKey;size:36"`
	Settings  TestSettings `json:"settings" gorm:"embedded"`
	Questions []Question   `json:"questions" gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Test) TableName() string {
	return "tests"
}

// Duration returns the planned session length.
func (t *Test) Duration() time.Duration {
	return time.Duration(t.Settings.DurationMinutes) * time.Minute
}

// DefaultSettings mirrors the defaults a freshly created test gets before
// the author touches anything.
func DefaultSettings() TestSettings {
	return TestSettings{
		Title:             "New Test",
		DurationMinutes:   30,
		ShuffleQuestions:  false,
		FreeNavigation:    true,
		RequireFullscreen: true,
	}
}
