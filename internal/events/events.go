package events

import (
	"time"
)

// SessionEventType identifies what happened inside a running session.
type SessionEventType string

const (
	SessionStarted     SessionEventType = "session.started"
	SessionTick        SessionEventType = "session.tick"
	SessionWarning     SessionEventType = "session.warning"
	SessionSubmitted   SessionEventType = "session.submitted"
	SessionTerminated  SessionEventType = "session.terminated"
	SessionViolation   SessionEventType = "session.violation"
	SessionForceSubmit SessionEventType = "session.force_submit"
)

// SessionEvent is the payload pushed to the client while a session runs.
// Data carries type-specific fields (remaining milliseconds on a tick,
// violation type on a violation, result id on a submit).
type SessionEvent struct {
	ID        string            `json:"id"`
	Type      SessionEventType  `json:"type"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}
