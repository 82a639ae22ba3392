package ipc

import (
	"time"

	"lectern/internal/logging"
	"lectern/internal/recorder"
)

// Error codes returned in Code fields so callers need not parse messages.
const (
	CodeAlreadyRecording = "already_recording"
	CodeInvalidTarget    = "invalid_target"
	CodeDiscoveryFailed  = "discovery_failed"
	CodeNotRecording     = "not_recording"
	CodeBudgetExhausted  = "budget_exhausted"
	CodeStorageWrite     = "storage_write"
	CodeInternal         = "internal"
)

// StartRequest begins recording the course on Page.
type StartRequest struct {
	Page string `json:"page"`
}

// StartResponse indicates whether recording started.
type StartResponse struct {
	Started bool   `json:"started"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// StopRequest ends the active recording.
type StopRequest struct {
	Reason string `json:"reason"`
}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// RecordingStatus mirrors the recorder's status snapshot.
type RecordingStatus = recorder.Status

// AgentHealth describes the bridge's view of the browser extension.
type AgentHealth struct {
	Connected    bool      `json:"connected"`
	LastPoll     time.Time `json:"last_poll"`
	AgentVersion string    `json:"agent_version,omitempty"`
	Pages        []string  `json:"pages,omitempty"`
}

// StatusResponse represents combined daemon/recording status information.
type StatusResponse struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	AgentAddress string          `json:"agent_address"`
	DatabasePath string          `json:"database_path"`
	LockPath     string          `json:"lock_path"`
	Recording    RecordingStatus `json:"recording"`
	Agent        AgentHealth     `json:"agent"`
}

// ClearRequest wipes stored transcripts.
type ClearRequest struct{}

// ClearResponse reports the clear outcome.
type ClearResponse struct {
	Cleared bool   `json:"cleared"`
	Message string `json:"message"`
}

// ForceAdvanceRequest skips the pending lecture.
type ForceAdvanceRequest struct{}

// ForceAdvanceResponse reports whether the loop moved on.
type ForceAdvanceResponse struct {
	Advanced bool   `json:"advanced"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

// ExportRequest renders the collected transcripts.
type ExportRequest struct {
	Format string `json:"format"`
	Title  string `json:"title"`
}

// ExportResponse carries the rendered document.
type ExportResponse struct {
	Document string   `json:"document"`
	Title    string   `json:"title"`
	Sections int      `json:"sections"`
	Lectures int      `json:"lectures"`
	Failed   []string `json:"failed,omitempty"`
}

// HealthRequest fetches connectivity diagnostics.
type HealthRequest struct{}

// CheckResult is one preflight check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// HealthResponse reports agent connectivity, storage health and preflight checks.
type HealthResponse struct {
	Agent      AgentHealth   `json:"agent"`
	StoreOK    bool          `json:"store_ok"`
	StoreError string        `json:"store_error,omitempty"`
	Checks     []CheckResult `json:"checks"`
}

// LogTailRequest fetches log events after Since. Follow waits up to
// WaitMillis for new events.
type LogTailRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// LogTailResponse returns log events and the cursor for the next call.
type LogTailResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
