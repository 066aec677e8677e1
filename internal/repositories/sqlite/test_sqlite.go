package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
)

type TestSQLite struct {
	db *gorm.DB
}

func NewTestSQLite(db *gorm.DB) repositories.TestRepository {
	return &TestSQLite{db: db}
}

// Create stores a new test. Missing ids are assigned here; callers build
// id-less records and the repository is the only id assigner.
func (t *TestSQLite) Create(ctx context.Context, test *models.Test) error {
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	for i := range test.Questions {
		if test.Questions[i].ID == "" {
			test.Questions[i].ID = uuid.NewString()
		}
		test.Questions[i].TestID = test.ID
		test.Questions[i].Position = i
	}

	if err := t.db.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("failed to create test: %w", err)
	}
	return nil
}

// GetByID loads a test with its questions in position order.
func (t *TestSQLite) GetByID(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	err := t.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (t *TestSQLite) List(ctx context.Context) ([]*models.Test, error) {
	var tests []*models.Test
	err := t.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC").
		Find(&tests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	return tests, nil
}

func (t *TestSQLite) UpdateSettings(ctx context.Context, id string, settings models.TestSettings) error {
	result := t.db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":              settings.Title,
			"description":        settings.Description,
			"duration_minutes":   settings.DurationMinutes,
			"shuffle_questions":  settings.ShuffleQuestions,
			"free_navigation":    settings.FreeNavigation,
			"require_fullscreen": settings.RequireFullscreen,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update test settings: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (t *TestSQLite) Delete(ctx context.Context, id string) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("failed to delete test questions: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Test{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete test: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AppendQuestion assigns an id and the next position, then stores the
// question under the test.
func (t *TestSQLite) AppendQuestion(ctx context.Context, testID string, question *models.Question) (*models.Question, error) {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var test models.Test
		if err := tx.Select("id").First(&test, "id = ?", testID).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Question{}).Where("test_id = ?", testID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count questions: %w", err)
		}

		question.ID = uuid.NewString()
		question.TestID = testID
		question.Position = int(count)
		if err := tx.Create(question).Error; err != nil {
			return fmt.Errorf("failed to append question: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

func (t *TestSQLite) UpdateQuestion(ctx context.Context, question *models.Question) error {
	result := t.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ? AND test_id = ?", question.ID, question.TestID).
		Updates(map[string]interface{}{
			"type":       question.Type,
			"text":       question.Text,
			"latex":      question.Latex,
			"image_ref":  question.ImageRef,
			"difficulty": question.Difficulty,
			"tags":       question.Tags,
			"content":    question.Content,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update question: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveQuestion deletes a question and closes the position gap it leaves.
func (t *TestSQLite) RemoveQuestion(ctx context.Context, testID, questionID string) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question models.Question
		if err := tx.First(&question, "id = ? AND test_id = ?", questionID, testID).Error; err != nil {
			return err
		}

		if err := tx.Delete(&question).Error; err != nil {
			return fmt.Errorf("failed to remove question: %w", err)
		}

		err := tx.Model(&models.Question{}).
			Where("test_id = ? AND position > ?", testID, question.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
		if err != nil {
			return fmt.Errorf("failed to reorder questions: %w", err)
		}
		return nil
	})
}
