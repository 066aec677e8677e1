package models

import "time"

// ViolationType classifies a detected security violation during an active
// session.
type ViolationType string

const (
	ViolationExitFullscreen ViolationType = "EXIT_FULLSCREEN"
	ViolationTabSwitch      ViolationType = "TAB_SWITCH"
	ViolationCopyPaste      ViolationType = "COPY_PASTE"
)

// SignalKind names a raw environment event reported by the client while a
// session is active. Signals are inputs to the violation monitor; they are
// not violations themselves until the monitor classifies them.
type SignalKind string

const (
	SignalFullscreenChange SignalKind = "fullscreen_change"
	SignalVisibilityHidden SignalKind = "visibility_hidden"
	SignalWindowBlur       SignalKind = "window_blur"
	SignalCopy             SignalKind = "copy"
	SignalCut              SignalKind = "cut"
	SignalPaste            SignalKind = "paste"
)

// EnvironmentSignal is the wire form of a client-reported environment event.
// Fullscreen is meaningful only for SignalFullscreenChange.
type EnvironmentSignal struct {
	Kind       SignalKind `json:"kind"`
	Fullscreen bool       `json:"fullscreen,omitempty"`
	At         time.Time  `json:"at,omitempty"`
}
