package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/testcraft-app/testcraft-service/internal/models"
)

// Validator wraps struct-tag validation plus the domain checks that tags
// cannot express.
type Validator struct {
	structValidator *validator.Validate
}

func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags only.
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateQuestion checks a complete question record: text, declared type,
// and the typed content payload.
func (v *Validator) ValidateQuestion(question *models.Question) error {
	if question.Text == "" {
		return fmt.Errorf("question text is required")
	}
	if !validQuestionType(string(question.Type)) {
		return fmt.Errorf("unsupported question type: %s", question.Type)
	}
	return models.ValidateContent(question.Type, question.Content)
}

// ValidateTest checks a test is in a publishable state: valid settings and
// at least one question.
func (v *Validator) ValidateTest(test *models.Test) error {
	if err := v.structValidator.Struct(test.Settings); err != nil {
		return err
	}
	if len(test.Questions) == 0 {
		return fmt.Errorf("test must have at least one question")
	}
	for i := range test.Questions {
		if err := v.ValidateQuestion(&test.Questions[i]); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)

	// json names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validQuestionType(value string) bool {
	switch models.QuestionType(value) {
	case models.MultipleChoice, models.TrueFalse, models.FillInBlank, models.Matching, models.ShortAnswer:
		return true
	}
	return false
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return validQuestionType(fl.Field().String())
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	switch models.DifficultyLevel(fl.Field().String()) {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return true
	}
	return false
}
