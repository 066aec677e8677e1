package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	FillInBlank    QuestionType = "FILL_IN_BLANK"
	Matching       QuestionType = "MATCHING"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "EASY"
	DifficultyMedium DifficultyLevel = "MEDIUM"
	DifficultyHard   DifficultyLevel = "HARD"
)

// Question is a tagged-variant record: Type selects which content struct the
// JSON Content column decodes to. Content is validated at construction via
// NewQuestion / ValidateContent, so a stored question always carries a
// well-formed payload for its type.
type Question struct {
	ID     string       `json:"id" gorm:"primaryKey;size:36"`
	TestID string       `json:"test_id" gorm:"index;size:36"`
	Type   QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`
	Text   string       `json:"text" gorm:"type:text;not null" validate:"required,min=1"`

	// Optional presentation fields
	Latex    *string `json:"latex,omitempty" gorm:"type:text"`
	ImageRef *string `json:"image_ref,omitempty" gorm:"type:text"`

	Difficulty DifficultyLevel `json:"difficulty" gorm:"size:10;default:MEDIUM" validate:"omitempty,difficulty_level"`
	Tags       datatypes.JSON  `json:"tags,omitempty" gorm:"type:json"` // []string

	// Variant-specific payload, keyed by Type
	Content datatypes.JSON `json:"content" gorm:"type:json;not null"`

	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

func (Question) TableName() string {
	return "questions"
}

// ===== VARIANT CONTENT =====

type QuestionOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Latex string `json:"latex,omitempty"`
}

type MultipleChoiceContent struct {
	Options            []QuestionOption `json:"options"`
	CorrectOptionIndex int              `json:"correct_option_index"`
}

type TrueFalseContent struct {
	CorrectAnswer bool `json:"correct_answer"`
}

type Blank struct {
	Answer       string   `json:"answer"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type FillBlankContent struct {
	Blanks []Blank `json:"blanks"`
}

type MatchPair struct {
	ID       string `json:"id"`
	Premise  string `json:"premise"`
	Response string `json:"response"`
}

type MatchingContent struct {
	Pairs []MatchPair `json:"pairs"`
}

// ShortAnswerContent is never auto-graded; keywords exist for human review.
type ShortAnswerContent struct {
	ModelAnswer string   `json:"model_answer"`
	Keywords    []string `json:"keywords,omitempty"`
}

// ===== CONSTRUCTION =====

// NewQuestion builds a question with a validated, marshaled content payload.
// The ID is left empty; the repository assigns identifiers on append.
func NewQuestion(qType QuestionType, text string, content interface{}) (*Question, error) {
	if text == "" {
		return nil, fmt.Errorf("question text is required")
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}

	if err := ValidateContent(qType, raw); err != nil {
		return nil, err
	}

	return &Question{
		Type:       qType,
		Text:       text,
		Difficulty: DifficultyMedium,
		Content:    datatypes.JSON(raw),
	}, nil
}

// ValidateContent checks the content payload against its declared type.
// Multiple choice accepts 2-4 options (the editing flow); the parser applies
// its stricter exactly-4 rule before construction.
func ValidateContent(qType QuestionType, raw []byte) error {
	switch qType {
	case MultipleChoice:
		var c MultipleChoiceContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("invalid multiple choice content: %w", err)
		}
		if len(c.Options) < 2 || len(c.Options) > 4 {
			return fmt.Errorf("multiple choice questions must have between 2 and 4 options, got %d", len(c.Options))
		}
		if c.CorrectOptionIndex < 0 || c.CorrectOptionIndex >= len(c.Options) {
			return fmt.Errorf("correct option index %d is out of range for %d options", c.CorrectOptionIndex, len(c.Options))
		}
		for i, opt := range c.Options {
			if opt.Text == "" && opt.Latex == "" {
				return fmt.Errorf("option %d has no text", i)
			}
		}
		return nil

	case TrueFalse:
		var c TrueFalseContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("invalid true/false content: %w", err)
		}
		return nil

	case FillInBlank:
		var c FillBlankContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("invalid fill-in-blank content: %w", err)
		}
		if len(c.Blanks) == 0 {
			return fmt.Errorf("fill-in-blank questions must have at least one blank")
		}
		for i, b := range c.Blanks {
			if b.Answer == "" {
				return fmt.Errorf("blank %d has no answer", i)
			}
		}
		return nil

	case Matching:
		var c MatchingContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("invalid matching content: %w", err)
		}
		if len(c.Pairs) == 0 {
			return fmt.Errorf("matching questions must have at least one pair")
		}
		for i, p := range c.Pairs {
			if p.Premise == "" || p.Response == "" {
				return fmt.Errorf("pair %d is incomplete", i)
			}
		}
		return nil

	case ShortAnswer:
		var c ShortAnswerContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("invalid short answer content: %w", err)
		}
		if c.ModelAnswer == "" {
			return fmt.Errorf("short answer questions must have a model answer")
		}
		return nil

	default:
		return fmt.Errorf("unsupported question type: %s", qType)
	}
}

// ===== DECODING =====

func (q *Question) MultipleChoice() (*MultipleChoiceContent, error) {
	if q.Type != MultipleChoice {
		return nil, fmt.Errorf("question %s is %s, not multiple choice", q.ID, q.Type)
	}
	var c MultipleChoiceContent
	if err := json.Unmarshal(q.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode multiple choice content: %w", err)
	}
	return &c, nil
}

func (q *Question) TrueFalse() (*TrueFalseContent, error) {
	if q.Type != TrueFalse {
		return nil, fmt.Errorf("question %s is %s, not true/false", q.ID, q.Type)
	}
	var c TrueFalseContent
	if err := json.Unmarshal(q.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode true/false content: %w", err)
	}
	return &c, nil
}

func (q *Question) FillBlank() (*FillBlankContent, error) {
	if q.Type != FillInBlank {
		return nil, fmt.Errorf("question %s is %s, not fill-in-blank", q.ID, q.Type)
	}
	var c FillBlankContent
	if err := json.Unmarshal(q.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode fill-in-blank content: %w", err)
	}
	return &c, nil
}

func (q *Question) Matching() (*MatchingContent, error) {
	if q.Type != Matching {
		return nil, fmt.Errorf("question %s is %s, not matching", q.ID, q.Type)
	}
	var c MatchingContent
	if err := json.Unmarshal(q.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode matching content: %w", err)
	}
	return &c, nil
}

func (q *Question) ShortAnswer() (*ShortAnswerContent, error) {
	if q.Type != ShortAnswer {
		return nil, fmt.Errorf("question %s is %s, not short answer", q.ID, q.Type)
	}
	var c ShortAnswerContent
	if err := json.Unmarshal(q.Content, &c); err != nil {
		return nil, fmt.Errorf("failed to decode short answer content: %w", err)
	}
	return &c, nil
}

// ===== GRADING SUPPORT =====

// CorrectOptionIndex reports the zero-based index a recorded answer must
// match for this question to count as correct. True/false maps true to 0 and
// false to 1, mirroring how the options are presented. The second return is
// false for types that are never auto-graded.
func (q *Question) CorrectOptionIndex() (int, bool) {
	switch q.Type {
	case MultipleChoice:
		c, err := q.MultipleChoice()
		if err != nil {
			return 0, false
		}
		return c.CorrectOptionIndex, true
	case TrueFalse:
		c, err := q.TrueFalse()
		if err != nil {
			return 0, false
		}
		if c.CorrectAnswer {
			return 0, true
		}
		return 1, true
	default:
		return 0, false
	}
}

// OptionCount reports how many selectable options the question offers.
// The second return is false for types with no index-selectable options.
func (q *Question) OptionCount() (int, bool) {
	switch q.Type {
	case MultipleChoice:
		c, err := q.MultipleChoice()
		if err != nil {
			return 0, false
		}
		return len(c.Options), true
	case TrueFalse:
		return 2, true
	default:
		return 0, false
	}
}

// TagList decodes the Tags column. Absent or malformed tags decode to nil.
func (q *Question) TagList() []string {
	if len(q.Tags) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(q.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

// SetTags encodes the tag list into the Tags column. An empty list clears it.
func (q *Question) SetTags(tags []string) error {
	if len(tags) == 0 {
		q.Tags = nil
		return nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	q.Tags = datatypes.JSON(raw)
	return nil
}
