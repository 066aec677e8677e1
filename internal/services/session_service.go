package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/monitor"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
	"github.com/testcraft-app/testcraft-service/internal/session"
)

// SessionService owns the single active test-taking session. One session at
// a time: the tool is single-user and single-tab, and the engine's ownership
// rules depend on that.
type SessionService interface {
	Start(ctx context.Context, testID string, fullscreenActive bool) (*SessionView, error)
	State(ctx context.Context) (*SessionView, error)
	Answer(ctx context.Context, questionID string, optionIndex int) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	JumpTo(ctx context.Context, index int) error
	Submit(ctx context.Context) (*models.TestResult, error)
	Abandon(ctx context.Context) error
}

// SessionView is what the client sees: progress plus sanitized questions.
// Correct answers never leave the server while a session runs.
type SessionView struct {
	SessionID      string         `json:"session_id"`
	TestID         string         `json:"test_id"`
	Title          string         `json:"title"`
	State          session.State  `json:"state"`
	CurrentIndex   int            `json:"current_index"`
	RemainingMs    int64          `json:"remaining_ms"`
	AnsweredCount  int            `json:"answered_count"`
	ViolationCount int            `json:"violation_count"`
	FreeNavigation bool           `json:"free_navigation"`
	Questions      []QuestionView `json:"questions"`
}

// QuestionView strips grading keys from a question. Options keep their text
// and order; blanks collapse to a count; matching responses stay aligned
// with their premise so the client shuffles for display.
type QuestionView struct {
	ID         string              `json:"id"`
	Type       models.QuestionType `json:"type"`
	Text       string              `json:"text"`
	Latex      *string             `json:"latex,omitempty"`
	ImageRef   *string             `json:"image_ref,omitempty"`
	Options    []string            `json:"options,omitempty"`
	BlankCount int                 `json:"blank_count,omitempty"`
	Premises   []string            `json:"premises,omitempty"`
	Responses  []string            `json:"responses,omitempty"`
}

type sessionService struct {
	repo   repositories.Repository
	bus    *events.Bus
	logger *slog.Logger
	tick   time.Duration

	mu        sync.Mutex
	engine    *session.Engine
	sessionID string
	test      *models.Test
}

func NewSessionService(repo repositories.Repository, bus *events.Bus, logger *slog.Logger, tick time.Duration) SessionService {
	return &sessionService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		tick:   tick,
	}
}

// ===== LIFECYCLE =====

func (s *sessionService) Start(ctx context.Context, testID string, fullscreenActive bool) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil && s.engine.State() != session.StateTerminated {
		return nil, ErrSessionActive
	}

	test, err := s.repo.Tests().GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test: %w", err)
	}
	if len(test.Questions) == 0 {
		return nil, ErrTestHasNoQuestions
	}

	sessionID := uuid.NewString()

	engine, err := session.New(session.Config{
		Test:    test,
		Results: s.repo.Results(),
		Logger:  s.logger,
		Tick:    s.tick,
		OnWarning: func(violation models.ViolationType) {
			s.publish(events.SessionWarning, sessionID, map[string]string{
				"violation_type": string(violation),
			})
		},
		OnTick: func(remaining time.Duration) {
			s.publish(events.SessionTick, sessionID, map[string]string{
				"remaining_ms": strconv.FormatInt(remaining.Milliseconds(), 10),
			})
		},
		OnFinished: func(result *models.TestResult) {
			s.publish(events.SessionSubmitted, sessionID, map[string]string{
				"result_id":       result.ID,
				"correct_answers": strconv.Itoa(result.CorrectAnswers),
				"total_questions": strconv.Itoa(result.TotalQuestions),
			})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build session: %w", err)
	}

	// Violations reach the engine through the monitor; the bus carries a
	// copy out to the client.
	mon := monitor.New(monitor.AllChecks(func(violation models.ViolationType) {
		s.publish(events.SessionViolation, sessionID, map[string]string{
			"violation_type": string(violation),
		})
		engine.HandleViolation(violation)
	}), s.logger)

	detach, err := mon.Attach(context.Background(), s.bus)
	if err != nil {
		return nil, fmt.Errorf("failed to attach violation monitor: %w", err)
	}
	engine.RegisterCleanup(detach)
	engine.RegisterCleanup(func() {
		// best effort; the client may already be gone
		s.publish(events.SessionTerminated, sessionID, map[string]string{
			"release_fullscreen": "true",
		})
	})

	if err := engine.Start(fullscreenActive); err != nil {
		detach()
		return nil, err
	}

	s.engine = engine
	s.sessionID = sessionID
	s.test = test

	s.publish(events.SessionStarted, sessionID, map[string]string{
		"test_id": testID,
	})
	return s.viewLocked(), nil
}

func (s *sessionService) State(ctx context.Context) (*SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		return nil, ErrSessionNotFound
	}
	return s.viewLocked(), nil
}

// ===== RUNNING OPERATIONS =====

func (s *sessionService) Answer(ctx context.Context, questionID string, optionIndex int) error {
	engine, err := s.activeEngine()
	if err != nil {
		return err
	}
	return engine.Answer(questionID, optionIndex)
}

func (s *sessionService) Next(ctx context.Context) error {
	engine, err := s.activeEngine()
	if err != nil {
		return err
	}
	return engine.Next()
}

func (s *sessionService) Previous(ctx context.Context) error {
	engine, err := s.activeEngine()
	if err != nil {
		return err
	}
	return engine.Previous()
}

func (s *sessionService) JumpTo(ctx context.Context, index int) error {
	engine, err := s.activeEngine()
	if err != nil {
		return err
	}
	return engine.JumpTo(index)
}

// Submit ends the active session. Submitting when nothing runs is a no-op
// with no result, mirroring the engine.
func (s *sessionService) Submit(ctx context.Context) (*models.TestResult, error) {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return nil, nil
	}

	result, err := engine.Submit()
	if err != nil {
		return nil, err
	}

	s.clearTerminated()
	return result, nil
}

func (s *sessionService) Abandon(ctx context.Context) error {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return ErrSessionNotFound
	}

	engine.Abandon()
	s.clearTerminated()
	return nil
}

// ===== HELPERS =====

func (s *sessionService) activeEngine() (*session.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		return nil, ErrSessionNotFound
	}
	return s.engine, nil
}

func (s *sessionService) clearTerminated() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine != nil && s.engine.State() == session.StateTerminated {
		s.engine = nil
		s.sessionID = ""
		s.test = nil
	}
}

func (s *sessionService) publish(eventType events.SessionEventType, sessionID string, data map[string]string) {
	s.bus.PublishSessionEvent(context.Background(), &events.SessionEvent{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
	})
}

func (s *sessionService) viewLocked() *SessionView {
	snap := s.engine.Snapshot()

	byID := make(map[string]*models.Question, len(s.test.Questions))
	for i := range s.test.Questions {
		byID[s.test.Questions[i].ID] = &s.test.Questions[i]
	}

	view := &SessionView{
		SessionID:      s.sessionID,
		TestID:         s.test.ID,
		Title:          s.test.Settings.Title,
		State:          snap.State,
		CurrentIndex:   snap.CurrentIndex,
		RemainingMs:    snap.Remaining.Milliseconds(),
		AnsweredCount:  snap.AnsweredCount,
		ViolationCount: snap.ViolationCount,
		FreeNavigation: s.test.Settings.FreeNavigation,
	}
	for _, id := range snap.QuestionOrder {
		if q := byID[id]; q != nil {
			view.Questions = append(view.Questions, sanitizeQuestion(q))
		}
	}
	return view
}

// sanitizeQuestion drops everything a taker could grade themselves with.
func sanitizeQuestion(q *models.Question) QuestionView {
	view := QuestionView{
		ID:       q.ID,
		Type:     q.Type,
		Text:     q.Text,
		Latex:    q.Latex,
		ImageRef: q.ImageRef,
	}

	switch q.Type {
	case models.MultipleChoice:
		if content, err := q.MultipleChoice(); err == nil {
			for _, opt := range content.Options {
				view.Options = append(view.Options, opt.Text)
			}
		}
	case models.TrueFalse:
		view.Options = []string{"True", "False"}
	case models.FillInBlank:
		if content, err := q.FillBlank(); err == nil {
			view.BlankCount = len(content.Blanks)
		}
	case models.Matching:
		if content, err := q.Matching(); err == nil {
			for _, pair := range content.Pairs {
				view.Premises = append(view.Premises, pair.Premise)
				view.Responses = append(view.Responses, pair.Response)
			}
		}
	}
	return view
}
