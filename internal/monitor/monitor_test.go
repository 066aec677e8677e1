package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMonitor_Classify(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		signal    models.EnvironmentSignal
		wantType  models.ViolationType
		wantMatch bool
	}{
		{
			name:      "fullscreen exit",
			config:    AllChecks(nil),
			signal:    models.EnvironmentSignal{Kind: models.SignalFullscreenChange, Fullscreen: false},
			wantType:  models.ViolationExitFullscreen,
			wantMatch: true,
		},
		{
			name:      "entering fullscreen is not a violation",
			config:    AllChecks(nil),
			signal:    models.EnvironmentSignal{Kind: models.SignalFullscreenChange, Fullscreen: true},
			wantMatch: false,
		},
		{
			name:      "visibility hidden",
			config:    AllChecks(nil),
			signal:    models.EnvironmentSignal{Kind: models.SignalVisibilityHidden},
			wantType:  models.ViolationTabSwitch,
			wantMatch: true,
		},
		{
			name:      "window blur",
			config:    AllChecks(nil),
			signal:    models.EnvironmentSignal{Kind: models.SignalWindowBlur},
			wantType:  models.ViolationTabSwitch,
			wantMatch: true,
		},
		{
			name:      "copy",
			config:    AllChecks(nil),
			signal:    models.EnvironmentSignal{Kind: models.SignalCopy},
			wantType:  models.ViolationCopyPaste,
			wantMatch: true,
		},
		{
			name:      "paste",
			config:    AllChecks(nil),
			signal:    models.EnvironmentSignal{Kind: models.SignalPaste},
			wantType:  models.ViolationCopyPaste,
			wantMatch: true,
		},
		{
			name:      "disabled tab switch check ignores blur",
			config:    Config{DetectFullscreenExit: true, DetectCopyPaste: true},
			signal:    models.EnvironmentSignal{Kind: models.SignalWindowBlur},
			wantMatch: false,
		},
		{
			name:      "disabled fullscreen check ignores exit",
			config:    Config{DetectTabSwitch: true, DetectCopyPaste: true},
			signal:    models.EnvironmentSignal{Kind: models.SignalFullscreenChange, Fullscreen: false},
			wantMatch: false,
		},
		{
			name:      "disabled copy paste check ignores cut",
			config:    Config{DetectFullscreenExit: true, DetectTabSwitch: true},
			signal:    models.EnvironmentSignal{Kind: models.SignalCut},
			wantMatch: false,
		},
		{
			name:      "unknown signal kind",
			config:    AllChecks(nil),
			signal:    models.EnvironmentSignal{Kind: "resize"},
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.config, testLogger())
			got, ok := m.Classify(tt.signal)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.Equal(t, tt.wantType, got)
			}
		})
	}
}

func TestMonitor_Attach(t *testing.T) {
	t.Run("reports violations from the signal stream", func(t *testing.T) {
		bus := events.NewBus(testLogger())
		defer bus.Close()

		var mu sync.Mutex
		var got []models.ViolationType
		m := New(AllChecks(func(v models.ViolationType) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		}), testLogger())

		detach, err := m.Attach(context.Background(), bus)
		require.NoError(t, err)
		defer detach()

		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalVisibilityHidden}))
		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalPaste}))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 2
		}, time.Second, 10*time.Millisecond)

		mu.Lock()
		assert.Equal(t, []models.ViolationType{models.ViolationTabSwitch, models.ViolationCopyPaste}, got)
		mu.Unlock()
	})

	t.Run("detach stops reporting and is idempotent", func(t *testing.T) {
		bus := events.NewBus(testLogger())
		defer bus.Close()

		var mu sync.Mutex
		count := 0
		m := New(AllChecks(func(models.ViolationType) {
			mu.Lock()
			count++
			mu.Unlock()
		}), testLogger())

		detach, err := m.Attach(context.Background(), bus)
		require.NoError(t, err)

		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalWindowBlur}))
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return count == 1
		}, time.Second, 10*time.Millisecond)

		detach()
		detach() // second call is a no-op

		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalWindowBlur}))
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		assert.Equal(t, 1, count)
		mu.Unlock()
	})

	t.Run("detach from inside the callback does not block", func(t *testing.T) {
		// A forced submit detaches the monitor from within the violation
		// callback; that call must return instead of waiting on the
		// reporting goroutine it is running on.
		bus := events.NewBus(testLogger())
		defer bus.Close()

		var detach func()
		var mu sync.Mutex
		count := 0
		returned := make(chan struct{})
		m := New(AllChecks(func(models.ViolationType) {
			mu.Lock()
			count++
			n := count
			mu.Unlock()
			if n == 2 {
				detach()
				close(returned)
			}
		}), testLogger())

		var err error
		detach, err = m.Attach(context.Background(), bus)
		require.NoError(t, err)

		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalVisibilityHidden}))
		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalWindowBlur}))

		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("detach called from the violation callback never returned")
		}

		mu.Lock()
		assert.Equal(t, 2, count)
		mu.Unlock()
	})

	t.Run("both visibility and blur signals over-count a single switch", func(t *testing.T) {
		bus := events.NewBus(testLogger())
		defer bus.Close()

		var mu sync.Mutex
		count := 0
		m := New(AllChecks(func(models.ViolationType) {
			mu.Lock()
			count++
			mu.Unlock()
		}), testLogger())

		detach, err := m.Attach(context.Background(), bus)
		require.NoError(t, err)
		defer detach()

		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalVisibilityHidden}))
		require.NoError(t, bus.PublishSignal(context.Background(), models.EnvironmentSignal{Kind: models.SignalWindowBlur}))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return count == 2
		}, time.Second, 10*time.Millisecond)
	})
}
