package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockTestRepository is a mock implementation of repositories.TestRepository
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(ctx context.Context, test *models.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(ctx context.Context, id string) (*models.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockTestRepository) List(ctx context.Context) ([]*models.Test, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Test), args.Error(1)
}

func (m *MockTestRepository) UpdateSettings(ctx context.Context, id string, settings models.TestSettings) error {
	args := m.Called(ctx, id, settings)
	return args.Error(0)
}

func (m *MockTestRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTestRepository) AppendQuestion(ctx context.Context, testID string, question *models.Question) (*models.Question, error) {
	args := m.Called(ctx, testID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// allow tests to echo the appended question back with an assigned id
	if fn, ok := args.Get(0).(func(*models.Question) *models.Question); ok {
		return fn(question), args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockTestRepository) UpdateQuestion(ctx context.Context, question *models.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockTestRepository) RemoveQuestion(ctx context.Context, testID, questionID string) error {
	args := m.Called(ctx, testID, questionID)
	return args.Error(0)
}

// MockResultRepository is a mock implementation of repositories.ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) AppendResult(ctx context.Context, result *models.TestResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) GetByID(ctx context.Context, id string) (*models.TestResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestResult), args.Error(1)
}

func (m *MockResultRepository) List(ctx context.Context) ([]*models.TestResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TestResult), args.Error(1)
}

func (m *MockResultRepository) GetByTest(ctx context.Context, testID string) ([]*models.TestResult, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TestResult), args.Error(1)
}

func (m *MockResultRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// mockRepository bundles the mocks behind the aggregate interface.
type mockRepository struct {
	tests   *MockTestRepository
	results *MockResultRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		tests:   &MockTestRepository{},
		results: &MockResultRepository{},
	}
}

func (m *mockRepository) Tests() repositories.TestRepository {
	return m.tests
}

func (m *mockRepository) Results() repositories.ResultRepository {
	return m.results
}
