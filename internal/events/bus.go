package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/testcraft-app/testcraft-service/internal/models"
)

const (
	TopicEnvironmentSignals = "environment.signals"
	TopicSessionEvents      = "session.events"
)

// Bus is the in-process pub/sub connecting the transport layer to the
// session machinery. The browser's environment signals flow in on one topic
// and session events flow back out on another; neither side holds a direct
// reference to the other.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NewSlogLogger(logger)),
		logger: logger,
	}
}

// ===== ENVIRONMENT SIGNALS =====

// PublishSignal puts a browser environment signal on the bus.
func (b *Bus) PublishSignal(ctx context.Context, signal models.EnvironmentSignal) error {
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("failed to marshal environment signal: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("signal_kind", string(signal.Kind))

	if err := b.pubSub.Publish(TopicEnvironmentSignals, msg); err != nil {
		return fmt.Errorf("failed to publish environment signal: %w", err)
	}
	return nil
}

// SubscribeSignals returns a channel of decoded environment signals. The
// channel closes when ctx is cancelled or the bus is closed. Malformed
// messages are acked and dropped with a log line.
func (b *Bus) SubscribeSignals(ctx context.Context) (<-chan models.EnvironmentSignal, error) {
	messages, err := b.pubSub.Subscribe(ctx, TopicEnvironmentSignals)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to environment signals: %w", err)
	}

	out := make(chan models.EnvironmentSignal)
	go func() {
		defer close(out)
		for msg := range messages {
			var signal models.EnvironmentSignal
			if err := json.Unmarshal(msg.Payload, &signal); err != nil {
				b.logger.Warn("Dropping malformed environment signal", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- signal:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ===== SESSION EVENTS =====

// PublishSessionEvent pushes a session event onto the bus for the transport
// layer to forward. Publish failures are logged, not returned; a lost
// client-facing event must never stall the session engine.
func (b *Bus) PublishSessionEvent(ctx context.Context, event *SessionEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal session event", "event_type", event.Type, "error", err)
		return
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("session_id", event.SessionID)

	if err := b.pubSub.Publish(TopicSessionEvents, msg); err != nil {
		b.logger.Error("Failed to publish session event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
	}
}

// SubscribeSessionEvents returns a channel of decoded session events.
func (b *Bus) SubscribeSessionEvents(ctx context.Context) (<-chan SessionEvent, error) {
	messages, err := b.pubSub.Subscribe(ctx, TopicSessionEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	out := make(chan SessionEvent)
	go func() {
		defer close(out)
		for msg := range messages {
			var event SessionEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("Dropping malformed session event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the underlying pub/sub down; all subscriber channels close.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
