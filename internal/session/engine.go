package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/testcraft-app/testcraft-service/internal/models"
)

// State is the lifecycle phase of a test-taking session.
type State string

const (
	StateIdle       State = "IDLE"
	StateRunning    State = "RUNNING"
	StateSubmitting State = "SUBMITTING"
	StateTerminated State = "TERMINATED"
)

var (
	ErrFullscreenRequired = errors.New("fullscreen must be active before the session can start")
	ErrAlreadyStarted     = errors.New("session has already been started")
	ErrNotRunning         = errors.New("session is not running")
	ErrNavigationLocked   = errors.New("free navigation is disabled for this test")
	ErrInvalidOption      = errors.New("option index is out of range for the question")
	ErrUnknownQuestion    = errors.New("question does not belong to this session")
)

// ResultStore is the slice of the repository the engine needs at submit time.
type ResultStore interface {
	AppendResult(ctx context.Context, result *models.TestResult) error
}

// Config wires an engine to its test and collaborators. OnWarning fires at
// most once per session, on the first violation. OnFinished fires exactly
// once if the session ends in a submit (manual, timeout, or forced); an
// abandoned session ends without it.
type Config struct {
	Test    *models.Test
	Results ResultStore
	Logger  *slog.Logger

	// Tick is the countdown resolution. Defaults to one second.
	Tick time.Duration

	OnWarning  func(models.ViolationType)
	OnTick     func(remaining time.Duration)
	OnFinished func(result *models.TestResult)
}

// Engine runs a single test-taking session through
// Idle -> Running -> Submitting -> Terminated. The terminal transition
// happens at most once regardless of how many triggers race for it; the
// submitting flag decides the winner and every loser is a no-op.
//
// The engine exclusively owns its runtime state. Callbacks are invoked
// outside the engine lock, so they may call back into the engine.
type Engine struct {
	cfg   Config
	tick  time.Duration
	order []string // working question order (ids), shuffled if the test asks

	mu         sync.Mutex
	state      State
	submitting bool
	startedAt  time.Time
	planned    time.Duration
	current    int
	answers    map[string]int
	violations int
	warned     bool
	cleanups   []func()
	stopTick   chan struct{}

	// now is swapped in tests to drive the clock.
	now func() time.Time
}

func New(cfg Config) (*Engine, error) {
	if cfg.Test == nil {
		return nil, fmt.Errorf("session requires a test")
	}
	if len(cfg.Test.Questions) == 0 {
		return nil, fmt.Errorf("session requires a test with at least one question")
	}
	if cfg.Results == nil {
		return nil, fmt.Errorf("session requires a result store")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tick := cfg.Tick
	if tick <= 0 {
		tick = time.Second
	}

	return &Engine{
		cfg:     cfg,
		tick:    tick,
		state:   StateIdle,
		answers: make(map[string]int),
		now:     time.Now,
	}, nil
}

// ===== LIFECYCLE =====

// Start moves Idle -> Running: fixes the working question order, records the
// monotonic start instant, and begins the countdown. When the test requires
// fullscreen and the client has not acquired it, starting fails outright; a
// session never runs in a degraded, unmonitored mode.
func (e *Engine) Start(fullscreenActive bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrAlreadyStarted
	}
	if e.cfg.Test.Settings.RequireFullscreen && !fullscreenActive {
		return ErrFullscreenRequired
	}

	e.order = make([]string, len(e.cfg.Test.Questions))
	for i, q := range e.cfg.Test.Questions {
		e.order[i] = q.ID
	}
	if e.cfg.Test.Settings.ShuffleQuestions {
		rand.Shuffle(len(e.order), func(i, j int) {
			e.order[i], e.order[j] = e.order[j], e.order[i]
		})
	}

	e.planned = e.cfg.Test.Duration()
	e.startedAt = e.now()
	e.current = 0
	e.state = StateRunning
	e.stopTick = make(chan struct{})

	go e.runTicker(e.stopTick)

	e.cfg.Logger.Info("Session started",
		"test_id", e.cfg.Test.ID,
		"question_count", len(e.order),
		"duration", e.planned,
		"shuffled", e.cfg.Test.Settings.ShuffleQuestions)
	return nil
}

func (e *Engine) runTicker(stop chan struct{}) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.handleTick()
		}
	}
}

// handleTick recomputes remaining time from the start instant. The countdown
// is monotonic: it never grows, and hitting zero submits.
func (e *Engine) handleTick() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	remaining := e.remainingLocked()
	e.mu.Unlock()

	if e.cfg.OnTick != nil {
		e.cfg.OnTick(remaining)
	}
	if remaining <= 0 {
		e.finalize("timeout", true)
	}
}

func (e *Engine) remainingLocked() time.Duration {
	remaining := e.planned - e.now().Sub(e.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RegisterCleanup adds a release hook run exactly once on every exit path
// (submit, timeout, forced submit, abandon). Hooks run in registration
// order. The monitor detach and the fullscreen release request live here.
func (e *Engine) RegisterCleanup(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanups = append(e.cleanups, fn)
}

// ===== RUNNING TRANSITIONS =====

// Answer records or overwrites the selected option index for a question.
// Only index-range validation happens at capture time; grading waits for
// submission.
func (e *Engine) Answer(questionID string, optionIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return ErrNotRunning
	}

	q := e.question(questionID)
	if q == nil {
		return ErrUnknownQuestion
	}
	if count, ok := q.OptionCount(); ok && (optionIndex < 0 || optionIndex >= count) {
		return ErrInvalidOption
	}
	if optionIndex < 0 {
		return ErrInvalidOption
	}

	e.answers[questionID] = optionIndex
	return nil
}

func (e *Engine) question(id string) *models.Question {
	for i := range e.cfg.Test.Questions {
		if e.cfg.Test.Questions[i].ID == id {
			return &e.cfg.Test.Questions[i]
		}
	}
	return nil
}

// Next moves the cursor one question forward, clamped at the last question.
func (e *Engine) Next() error {
	return e.step(1)
}

// Previous moves the cursor one question back, clamped at the first.
func (e *Engine) Previous() error {
	return e.step(-1)
}

func (e *Engine) step(delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return ErrNotRunning
	}
	e.current = clamp(e.current+delta, 0, len(e.order)-1)
	return nil
}

// JumpTo moves the cursor directly to an index. Only allowed when the test
// enables free navigation; single steps remain available either way.
func (e *Engine) JumpTo(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return ErrNotRunning
	}
	if !e.cfg.Test.Settings.FreeNavigation {
		return ErrNavigationLocked
	}
	e.current = clamp(index, 0, len(e.order)-1)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HandleViolation escalates: the first violation warns once, the second and
// every later one forces an immediate submit. Not configurable.
func (e *Engine) HandleViolation(violation models.ViolationType) {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	e.violations++
	count := e.violations
	warn := count == 1 && !e.warned
	if warn {
		e.warned = true
	}
	e.mu.Unlock()

	e.cfg.Logger.Warn("Session violation",
		"violation_type", violation,
		"violation_count", count)

	if warn {
		if e.cfg.OnWarning != nil {
			e.cfg.OnWarning(violation)
		}
		return
	}
	e.finalize("violations", true)
}

// ===== TERMINATION =====

// Submit ends the session and produces the graded result. Calling it when
// no session is running is a no-op returning no result and no error.
func (e *Engine) Submit() (*models.TestResult, error) {
	return e.finalize("manual", true), nil
}

// Abandon runs the same cleanup as a submit but produces no TestResult.
// Used when the taker navigates away without finishing.
func (e *Engine) Abandon() {
	e.finalize("abandoned", false)
}

// finalize is the only path into Submitting/Terminated. The submitting flag
// makes it at-most-once: a timer tick and a violation racing here resolve to
// first caller wins, the loser returns nil.
func (e *Engine) finalize(reason string, produceResult bool) *models.TestResult {
	e.mu.Lock()
	if e.state != StateRunning || e.submitting {
		e.mu.Unlock()
		return nil
	}
	e.submitting = true
	e.state = StateSubmitting
	close(e.stopTick)

	cleanups := e.cleanups
	e.cleanups = nil
	elapsed := e.now().Sub(e.startedAt)
	violations := e.violations
	answers := make(map[string]int, len(e.answers))
	for k, v := range e.answers {
		answers[k] = v
	}
	e.mu.Unlock()

	for _, cleanup := range cleanups {
		cleanup()
	}

	var result *models.TestResult
	if produceResult {
		result = e.grade(answers, elapsed, violations)
		if err := e.cfg.Results.AppendResult(context.Background(), result); err != nil {
			// A finished session is worth more than a clean write; keep the
			// result in memory and let the caller see it.
			e.cfg.Logger.Error("Failed to persist test result",
				"test_id", e.cfg.Test.ID,
				"error", err)
		}
	}

	e.mu.Lock()
	e.state = StateTerminated
	e.mu.Unlock()

	e.cfg.Logger.Info("Session terminated",
		"test_id", e.cfg.Test.ID,
		"reason", reason,
		"violations", violations,
		"graded", produceResult)

	if produceResult && e.cfg.OnFinished != nil {
		e.cfg.OnFinished(result)
	}
	return result
}

// grade compares each recorded option index against the question's correct
// index. A question with no recorded answer, or with no auto-gradable
// correct index, counts as incorrect rather than as an error.
func (e *Engine) grade(answers map[string]int, elapsed time.Duration, violations int) *models.TestResult {
	correct := 0
	for i := range e.cfg.Test.Questions {
		q := &e.cfg.Test.Questions[i]
		correctIdx, gradable := q.CorrectOptionIndex()
		if !gradable {
			continue
		}
		if picked, answered := answers[q.ID]; answered && picked == correctIdx {
			correct++
		}
	}

	if elapsed > e.planned {
		elapsed = e.planned
	}

	result := &models.TestResult{
		TestID:         e.cfg.Test.ID,
		TestTitle:      e.cfg.Test.Settings.Title,
		TotalQuestions: len(e.cfg.Test.Questions),
		CorrectAnswers: correct,
		TimeTaken:      int(elapsed / time.Second),
		SubmittedAt:    e.now(),
		Violations:     violations,
	}
	if err := result.SetAnswers(answers); err != nil {
		e.cfg.Logger.Error("Failed to encode answer map", "error", err)
	}
	return result
}

// ===== INTROSPECTION =====

// Snapshot is a point-in-time view of the session for the state endpoint.
type Snapshot struct {
	State          State         `json:"state"`
	QuestionOrder  []string      `json:"question_order"`
	CurrentIndex   int           `json:"current_index"`
	Remaining      time.Duration `json:"remaining"`
	AnsweredCount  int           `json:"answered_count"`
	ViolationCount int           `json:"violation_count"`
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		State:          e.state,
		CurrentIndex:   e.current,
		AnsweredCount:  len(e.answers),
		ViolationCount: e.violations,
	}
	snap.QuestionOrder = append(snap.QuestionOrder, e.order...)
	if e.state == StateRunning {
		snap.Remaining = e.remainingLocked()
	}
	return snap
}

// Answers returns a copy of the recorded answer map.
func (e *Engine) Answers() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]int, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}
