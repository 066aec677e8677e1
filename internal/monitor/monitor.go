package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/models"
)

// Config selects which checks run and where detections go. Each check
// toggles independently; a disabled check ignores its signals entirely.
type Config struct {
	DetectFullscreenExit bool
	DetectTabSwitch      bool
	DetectCopyPaste      bool

	// OnViolation receives every classified violation. Required.
	OnViolation func(models.ViolationType)
}

// AllChecks enables every check with the given callback.
func AllChecks(onViolation func(models.ViolationType)) Config {
	return Config{
		DetectFullscreenExit: true,
		DetectTabSwitch:      true,
		DetectCopyPaste:      true,
		OnViolation:          onViolation,
	}
}

// Monitor watches the environment-signal stream during an active session and
// classifies raw browser signals into violations. It only reports; deciding
// what a violation means (warning, forced submit) is the session engine's
// job, and cancelling default copy/paste actions is the client's.
type Monitor struct {
	config Config
	logger *slog.Logger
}

func New(config Config, logger *slog.Logger) *Monitor {
	return &Monitor{config: config, logger: logger}
}

// Attach subscribes the monitor to the signal stream and returns a detach
// function. Detach is idempotent and safe to call from any exit path,
// including from inside the violation callback itself: a forced submit runs
// its cleanups (this detach among them) on the goroutine that reported the
// violation. Once detach has been called no new violations are classified;
// a callback already in flight is allowed to finish.
func (m *Monitor) Attach(ctx context.Context, bus *events.Bus) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	signals, err := bus.SubscribeSignals(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	done := make(chan struct{})
	var reporting atomic.Bool
	go func() {
		defer close(done)
		for signal := range signals {
			violation, ok := m.Classify(signal)
			if !ok {
				continue
			}
			m.logger.Info("Violation detected",
				"violation_type", violation,
				"signal_kind", signal.Kind)
			reporting.Store(true)
			m.config.OnViolation(violation)
			reporting.Store(false)
		}
	}()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			cancel()
			if reporting.Load() {
				// We are on (or racing with) the reporting goroutine;
				// waiting for it here would block on our own return.
				return
			}
			<-done
		})
	}
	return detach, nil
}

// Classify maps a raw environment signal to a violation type. Visibility
// loss and window blur both count as TAB_SWITCH; when a browser fires both
// for one switch the over-count is accepted.
func (m *Monitor) Classify(signal models.EnvironmentSignal) (models.ViolationType, bool) {
	switch signal.Kind {
	case models.SignalFullscreenChange:
		if m.config.DetectFullscreenExit && !signal.Fullscreen {
			return models.ViolationExitFullscreen, true
		}
	case models.SignalVisibilityHidden, models.SignalWindowBlur:
		if m.config.DetectTabSwitch {
			return models.ViolationTabSwitch, true
		}
	case models.SignalCopy, models.SignalCut, models.SignalPaste:
		if m.config.DetectCopyPaste {
			return models.ViolationCopyPaste, true
		}
	default:
		m.logger.Debug("Ignoring unknown signal kind", "signal_kind", signal.Kind)
	}
	return "", false
}
