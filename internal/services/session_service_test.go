package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/session"
)

func sessionTest(t *testing.T) *models.Test {
	t.Helper()

	mc, err := models.NewQuestion(models.MultipleChoice, "2+2=?", models.MultipleChoiceContent{
		Options: []models.QuestionOption{
			{ID: "a", Text: "3"}, {ID: "b", Text: "4"}, {ID: "c", Text: "5"}, {ID: "d", Text: "6"},
		},
		CorrectOptionIndex: 1,
	})
	require.NoError(t, err)
	mc.ID = "q1"

	tf, err := models.NewQuestion(models.TrueFalse, "Sky is blue.", models.TrueFalseContent{CorrectAnswer: true})
	require.NoError(t, err)
	tf.ID = "q2"

	settings := models.DefaultSettings()
	settings.RequireFullscreen = false

	return &models.Test{
		ID:        "t1",
		Settings:  settings,
		Questions: []models.Question{*mc, *tf},
	}
}

func newSessionFixture(t *testing.T) (SessionService, *mockRepository, *events.Bus) {
	t.Helper()
	repo := newMockRepository()
	bus := events.NewBus(testLogger())
	t.Cleanup(func() { bus.Close() })

	svc := NewSessionService(repo, bus, testLogger(), time.Hour)
	return svc, repo, bus
}

func TestSessionService_Start(t *testing.T) {
	t.Run("returns a sanitized view", func(t *testing.T) {
		svc, repo, _ := newSessionFixture(t)
		repo.tests.On("GetByID", mock.Anything, "t1").Return(sessionTest(t), nil)

		view, err := svc.Start(context.Background(), "t1", true)
		require.NoError(t, err)

		assert.Equal(t, session.StateRunning, view.State)
		assert.Equal(t, "t1", view.TestID)
		assert.NotEmpty(t, view.SessionID)
		require.Len(t, view.Questions, 2)

		mc := view.Questions[0]
		assert.Equal(t, []string{"3", "4", "5", "6"}, mc.Options)

		tf := view.Questions[1]
		assert.Equal(t, []string{"True", "False"}, tf.Options)
	})

	t.Run("second session rejected while one runs", func(t *testing.T) {
		svc, repo, _ := newSessionFixture(t)
		repo.tests.On("GetByID", mock.Anything, "t1").Return(sessionTest(t), nil)

		_, err := svc.Start(context.Background(), "t1", true)
		require.NoError(t, err)

		_, err = svc.Start(context.Background(), "t1", true)
		assert.ErrorIs(t, err, ErrSessionActive)
		assert.True(t, IsConflict(err))
	})

	t.Run("unknown test", func(t *testing.T) {
		svc, repo, _ := newSessionFixture(t)
		repo.tests.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

		_, err := svc.Start(context.Background(), "missing", true)
		assert.ErrorIs(t, err, ErrTestNotFound)
	})

	t.Run("test without questions", func(t *testing.T) {
		svc, repo, _ := newSessionFixture(t)
		repo.tests.On("GetByID", mock.Anything, "empty").
			Return(&models.Test{ID: "empty", Settings: models.DefaultSettings()}, nil)

		_, err := svc.Start(context.Background(), "empty", true)
		assert.ErrorIs(t, err, ErrTestHasNoQuestions)
	})

	t.Run("fullscreen requirement enforced", func(t *testing.T) {
		svc, repo, _ := newSessionFixture(t)
		test := sessionTest(t)
		test.Settings.RequireFullscreen = true
		repo.tests.On("GetByID", mock.Anything, "t1").Return(test, nil)

		_, err := svc.Start(context.Background(), "t1", false)
		assert.ErrorIs(t, err, session.ErrFullscreenRequired)
	})
}

func TestSessionService_AnswerAndSubmit(t *testing.T) {
	svc, repo, _ := newSessionFixture(t)
	repo.tests.On("GetByID", mock.Anything, "t1").Return(sessionTest(t), nil)
	repo.results.On("AppendResult", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Start(context.Background(), "t1", true)
	require.NoError(t, err)

	require.NoError(t, svc.Answer(context.Background(), "q1", 1))
	require.NoError(t, svc.Answer(context.Background(), "q2", 0))
	require.NoError(t, svc.Next(context.Background()))

	result, err := svc.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 2, result.TotalQuestions)

	// the slot is free again
	_, err = svc.State(context.Background())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Start(context.Background(), "t1", true)
	assert.NoError(t, err)
}

func TestSessionService_SubmitWithoutSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	result, err := svc.Submit(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestSessionService_Abandon(t *testing.T) {
	svc, repo, _ := newSessionFixture(t)
	repo.tests.On("GetByID", mock.Anything, "t1").Return(sessionTest(t), nil)

	_, err := svc.Start(context.Background(), "t1", true)
	require.NoError(t, err)

	require.NoError(t, svc.Abandon(context.Background()))
	repo.results.AssertNotCalled(t, "AppendResult", mock.Anything, mock.Anything)

	assert.ErrorIs(t, svc.Abandon(context.Background()), ErrSessionNotFound)
}

func TestSessionService_ViolationsFromBus(t *testing.T) {
	svc, repo, bus := newSessionFixture(t)
	repo.tests.On("GetByID", mock.Anything, "t1").Return(sessionTest(t), nil)
	repo.results.On("AppendResult", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Start(context.Background(), "t1", true)
	require.NoError(t, err)

	// first violation warns but keeps the session alive
	require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalVisibilityHidden}))
	assert.Eventually(t, func() bool {
		view, err := svc.State(context.Background())
		return err == nil && view.ViolationCount == 1
	}, time.Second, 10*time.Millisecond)

	// second violation forces the submit
	require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalPaste}))
	assert.Eventually(t, func() bool {
		view, err := svc.State(context.Background())
		return err == nil && view.State == session.StateTerminated
	}, time.Second, 10*time.Millisecond)

	repo.results.AssertNumberOfCalls(t, "AppendResult", 1)
}

func TestSessionService_SessionEventsPublished(t *testing.T) {
	svc, repo, bus := newSessionFixture(t)
	repo.tests.On("GetByID", mock.Anything, "t1").Return(sessionTest(t), nil)
	repo.results.On("AppendResult", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessionEvents, err := bus.SubscribeSessionEvents(ctx)
	require.NoError(t, err)

	collected := make(map[events.SessionEventType]bool)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sessionEvents {
			collected[event.Type] = true
			if event.Type == events.SessionSubmitted {
				return
			}
		}
	}()

	_, err = svc.Start(context.Background(), "t1", true)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background())
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session events")
	}

	assert.True(t, collected[events.SessionStarted])
	assert.True(t, collected[events.SessionSubmitted])
}
