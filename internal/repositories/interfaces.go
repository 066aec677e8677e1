package repositories

import (
	"context"

	"github.com/testcraft-app/testcraft-service/internal/models"
)

// TestRepository interface for test authoring and lookup operations
type TestRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, test *models.Test) error
	GetByID(ctx context.Context, id string) (*models.Test, error) // Includes questions in position order
	List(ctx context.Context) ([]*models.Test, error)
	UpdateSettings(ctx context.Context, id string, settings models.TestSettings) error
	Delete(ctx context.Context, id string) error

	// Question management; the repository assigns question ids on append
	AppendQuestion(ctx context.Context, testID string, question *models.Question) (*models.Question, error)
	UpdateQuestion(ctx context.Context, question *models.Question) error
	RemoveQuestion(ctx context.Context, testID, questionID string) error
}

// ResultRepository interface for the write-once result log
type ResultRepository interface {
	AppendResult(ctx context.Context, result *models.TestResult) error
	GetByID(ctx context.Context, id string) (*models.TestResult, error)
	List(ctx context.Context) ([]*models.TestResult, error)
	GetByTest(ctx context.Context, testID string) ([]*models.TestResult, error)
	Delete(ctx context.Context, id string) error
}

// Repository aggregates the per-collection repositories behind one handle.
type Repository interface {
	Tests() TestRepository
	Results() ResultRepository
}
