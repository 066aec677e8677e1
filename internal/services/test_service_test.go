package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/validator"
)

func newTestService(repo *mockRepository) TestService {
	return NewTestService(repo, testLogger(), validator.New())
}

func validQuestion(t *testing.T) *models.Question {
	t.Helper()
	q, err := models.NewQuestion(models.TrueFalse, "Sky is blue.", models.TrueFalseContent{CorrectAnswer: true})
	require.NoError(t, err)
	return q
}

func TestTestService_Create(t *testing.T) {
	repo := newMockRepository()
	repo.tests.On("Create", mock.Anything, mock.MatchedBy(func(test *models.Test) bool {
		return test.Settings == models.DefaultSettings()
	})).Return(nil)

	test, err := newTestService(repo).Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "New Test", test.Settings.Title)
	assert.Equal(t, 30, test.Settings.DurationMinutes)
	assert.True(t, test.Settings.FreeNavigation)
	assert.True(t, test.Settings.RequireFullscreen)
	assert.False(t, test.Settings.ShuffleQuestions)
	repo.tests.AssertExpectations(t)
}

func TestTestService_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo := newMockRepository()
		stored := &models.Test{ID: "t1", Settings: models.DefaultSettings()}
		repo.tests.On("GetByID", mock.Anything, "t1").Return(stored, nil)

		test, err := newTestService(repo).GetByID(context.Background(), "t1")
		require.NoError(t, err)
		assert.Equal(t, stored, test)
	})

	t.Run("not found maps to sentinel", func(t *testing.T) {
		repo := newMockRepository()
		repo.tests.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

		_, err := newTestService(repo).GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrTestNotFound)
		assert.True(t, IsNotFound(err))
	})
}

func TestTestService_UpdateSettings(t *testing.T) {
	t.Run("valid settings", func(t *testing.T) {
		repo := newMockRepository()
		settings := models.DefaultSettings()
		settings.Title = "Renamed"
		repo.tests.On("UpdateSettings", mock.Anything, "t1", settings).Return(nil)
		repo.tests.On("GetByID", mock.Anything, "t1").
			Return(&models.Test{ID: "t1", Settings: settings}, nil)

		test, err := newTestService(repo).UpdateSettings(context.Background(), "t1", settings)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", test.Settings.Title)
	})

	t.Run("invalid duration rejected before hitting storage", func(t *testing.T) {
		repo := newMockRepository()
		settings := models.DefaultSettings()
		settings.DurationMinutes = 0

		_, err := newTestService(repo).UpdateSettings(context.Background(), "t1", settings)
		assert.ErrorIs(t, err, ErrValidationFailed)
		repo.tests.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing title rejected", func(t *testing.T) {
		repo := newMockRepository()
		settings := models.DefaultSettings()
		settings.Title = ""

		_, err := newTestService(repo).UpdateSettings(context.Background(), "t1", settings)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestTestService_Save(t *testing.T) {
	t.Run("complete test passes", func(t *testing.T) {
		repo := newMockRepository()
		test := &models.Test{
			ID:        "t1",
			Settings:  models.DefaultSettings(),
			Questions: []models.Question{*validQuestion(t)},
		}
		repo.tests.On("GetByID", mock.Anything, "t1").Return(test, nil)

		assert.NoError(t, newTestService(repo).Save(context.Background(), "t1"))
	})

	t.Run("no questions is its own condition", func(t *testing.T) {
		repo := newMockRepository()
		repo.tests.On("GetByID", mock.Anything, "t1").
			Return(&models.Test{ID: "t1", Settings: models.DefaultSettings()}, nil)

		err := newTestService(repo).Save(context.Background(), "t1")
		assert.ErrorIs(t, err, ErrTestHasNoQuestions)
		assert.True(t, IsValidation(err))
	})
}

func TestTestService_AddQuestion(t *testing.T) {
	t.Run("valid question appended", func(t *testing.T) {
		repo := newMockRepository()
		question := validQuestion(t)
		appended := *question
		appended.ID = "q1"
		repo.tests.On("AppendQuestion", mock.Anything, "t1", question).Return(&appended, nil)

		got, err := newTestService(repo).AddQuestion(context.Background(), "t1", question)
		require.NoError(t, err)
		assert.Equal(t, "q1", got.ID)
	})

	t.Run("invalid content rejected", func(t *testing.T) {
		repo := newMockRepository()
		question := &models.Question{Type: models.MultipleChoice, Text: "broken", Content: datatypes.JSON(`{}`)}

		_, err := newTestService(repo).AddQuestion(context.Background(), "t1", question)
		assert.ErrorIs(t, err, ErrValidationFailed)
		repo.tests.AssertNotCalled(t, "AppendQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown test maps to sentinel", func(t *testing.T) {
		repo := newMockRepository()
		question := validQuestion(t)
		repo.tests.On("AppendQuestion", mock.Anything, "missing", question).
			Return(nil, gorm.ErrRecordNotFound)

		_, err := newTestService(repo).AddQuestion(context.Background(), "missing", question)
		assert.ErrorIs(t, err, ErrTestNotFound)
	})
}

func TestTestService_RemoveQuestion(t *testing.T) {
	repo := newMockRepository()
	repo.tests.On("RemoveQuestion", mock.Anything, "t1", "q1").Return(nil)

	assert.NoError(t, newTestService(repo).RemoveQuestion(context.Background(), "t1", "q1"))
	repo.tests.AssertExpectations(t)
}
