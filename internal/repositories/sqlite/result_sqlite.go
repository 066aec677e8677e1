package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
)

type ResultSQLite struct {
	db *gorm.DB
}

func NewResultSQLite(db *gorm.DB) repositories.ResultRepository {
	return &ResultSQLite{db: db}
}

// AppendResult stores a finished session's result. Results are write-once;
// there is no update path.
func (r *ResultSQLite) AppendResult(ctx context.Context, result *models.TestResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to append result: %w", err)
	}
	return nil
}

func (r *ResultSQLite) GetByID(ctx context.Context, id string) (*models.TestResult, error) {
	var result models.TestResult
	if err := r.db.WithContext(ctx).First(&result, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultSQLite) List(ctx context.Context) ([]*models.TestResult, error) {
	var results []*models.TestResult
	err := r.db.WithContext(ctx).
		Order("submitted_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

func (r *ResultSQLite) GetByTest(ctx context.Context, testID string) ([]*models.TestResult, error) {
	var results []*models.TestResult
	err := r.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("submitted_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list results for test: %w", err)
	}
	return results, nil
}

func (r *ResultSQLite) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.TestResult{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete result: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
