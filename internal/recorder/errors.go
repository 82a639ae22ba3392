package recorder

import "errors"

// Control-surface errors.
var (
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrInvalidTarget    = errors.New("invalid recording target")
	ErrDiscoveryFailed  = errors.New("course structure discovery failed")
	ErrBudgetExhausted  = errors.New("too many consecutive errors")
	ErrStorageWrite     = errors.New("transcript storage write failed")
)

// FailureKind classifies a unit that produced no transcript.
type FailureKind string

const (
	FailureNavigation FailureKind = "navigation_failed"
	FailureCapture    FailureKind = "capture_failed"
	FailureLiveness   FailureKind = "liveness_timeout"
	FailureReported   FailureKind = "reported"
)

const budgetExhaustedReason = "too many consecutive errors"
