package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
	"github.com/testcraft-app/testcraft-service/internal/validator"
)

// TestService handles test authoring: creating tests, editing settings, and
// managing the question list.
type TestService interface {
	Create(ctx context.Context) (*models.Test, error)
	GetByID(ctx context.Context, id string) (*models.Test, error)
	List(ctx context.Context) ([]*models.Test, error)
	UpdateSettings(ctx context.Context, id string, settings models.TestSettings) (*models.Test, error)
	Delete(ctx context.Context, id string) error

	// Save validates a test is complete enough to take.
	Save(ctx context.Context, id string) error

	AddQuestion(ctx context.Context, testID string, question *models.Question) (*models.Question, error)
	UpdateQuestion(ctx context.Context, testID string, question *models.Question) error
	RemoveQuestion(ctx context.Context, testID, questionID string) error
}

type testService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTestService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) TestService {
	return &testService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

// Create stores a fresh test with default settings and no questions.
func (s *testService) Create(ctx context.Context) (*models.Test, error) {
	test := &models.Test{
		Settings: models.DefaultSettings(),
	}

	if err := s.repo.Tests().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}

	s.logger.Info("Test created", "test_id", test.ID)
	return test, nil
}

func (s *testService) GetByID(ctx context.Context, id string) (*models.Test, error) {
	test, err := s.repo.Tests().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

func (s *testService) List(ctx context.Context) ([]*models.Test, error) {
	tests, err := s.repo.Tests().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

func (s *testService) UpdateSettings(ctx context.Context, id string, settings models.TestSettings) (*models.Test, error) {
	if err := s.validator.ValidateStruct(settings); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	if err := s.repo.Tests().UpdateSettings(ctx, id, settings); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to update test settings: %w", err)
	}

	s.logger.Info("Test settings updated", "test_id", id, "title", settings.Title)
	return s.GetByID(ctx, id)
}

func (s *testService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Tests().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTestNotFound
		}
		return fmt.Errorf("failed to delete test: %w", err)
	}

	s.logger.Info("Test deleted", "test_id", id)
	return nil
}

// Save checks the test is ready to be taken. Settings problems surface as
// validation errors; a test without questions is its own condition.
func (s *testService) Save(ctx context.Context, id string) error {
	test, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if len(test.Questions) == 0 {
		return ErrTestHasNoQuestions
	}
	if err := s.validator.ValidateTest(test); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}
	return nil
}

// ===== QUESTION MANAGEMENT =====

func (s *testService) AddQuestion(ctx context.Context, testID string, question *models.Question) (*models.Question, error) {
	if err := s.validator.ValidateQuestion(question); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	appended, err := s.repo.Tests().AppendQuestion(ctx, testID, question)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to add question: %w", err)
	}

	s.logger.Info("Question added",
		"test_id", testID,
		"question_id", appended.ID,
		"question_type", appended.Type)
	return appended, nil
}

func (s *testService) UpdateQuestion(ctx context.Context, testID string, question *models.Question) error {
	if err := s.validator.ValidateQuestion(question); err != nil {
		return fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	question.TestID = testID
	if err := s.repo.Tests().UpdateQuestion(ctx, question); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to update question: %w", err)
	}
	return nil
}

func (s *testService) RemoveQuestion(ctx context.Context, testID, questionID string) error {
	if err := s.repo.Tests().RemoveQuestion(ctx, testID, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to remove question: %w", err)
	}

	s.logger.Info("Question removed", "test_id", testID, "question_id", questionID)
	return nil
}
