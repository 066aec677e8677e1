package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
)

// ResultService reads the write-once result log.
type ResultService interface {
	GetByID(ctx context.Context, id string) (*models.TestResult, error)
	List(ctx context.Context) ([]*models.TestResult, error)
	GetByTest(ctx context.Context, testID string) ([]*models.TestResult, error)
	Delete(ctx context.Context, id string) error
}

type resultService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewResultService(repo repositories.Repository, logger *slog.Logger) ResultService {
	return &resultService{
		repo:   repo,
		logger: logger,
	}
}

func (s *resultService) GetByID(ctx context.Context, id string) (*models.TestResult, error) {
	result, err := s.repo.Results().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

func (s *resultService) List(ctx context.Context) ([]*models.TestResult, error) {
	results, err := s.repo.Results().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

func (s *resultService) GetByTest(ctx context.Context, testID string) ([]*models.TestResult, error) {
	results, err := s.repo.Results().GetByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for test: %w", err)
	}
	return results, nil
}

func (s *resultService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Results().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResultNotFound
		}
		return fmt.Errorf("failed to delete result: %w", err)
	}

	s.logger.Info("Result deleted", "result_id", id)
	return nil
}
