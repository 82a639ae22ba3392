package agent

import "encoding/json"

// Command types sent to the page agent.
const (
	CommandGetStructure = "get_structure"
	CommandNavigate     = "navigate"
	CommandPing         = "ping"
	CommandStop         = "stop"
	CommandProgress     = "progress"
	CommandComplete     = "complete"
)

// Event types the page agent reports without being asked.
const (
	EventCapture      = "capture"
	EventCaptureError = "capture_error"
)

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// SyncRequest is the POST body for /agent/sync.
type SyncRequest struct {
	PageID       string          `json:"page_id"`
	AgentVersion string          `json:"agent_version,omitempty"`
	Results      []CommandResult `json:"results,omitempty"`
	Events       []Event         `json:"events,omitempty"`
}

// CommandResult answers a previously delivered command.
type CommandResult struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Event is an unsolicited report from the page, typically a captured transcript.
type Event struct {
	Type    string   `json:"type"`
	Section string   `json:"section,omitempty"`
	Lecture string   `json:"lecture,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// SyncResponse is the response body for /agent/sync.
type SyncResponse struct {
	Ack        bool      `json:"ack"`
	Commands   []Command `json:"commands"`
	NextPollMs int       `json:"next_poll_ms"`
	ServerTime string    `json:"server_time"`
}

// Command is an instruction for the page agent.
type Command struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NavigateParams identifies the lecture the page should open.
type NavigateParams struct {
	Section      string `json:"section"`
	Lecture      string `json:"lecture"`
	LectureID    string `json:"lecture_id,omitempty"`
	SectionIndex int    `json:"section_index"`
	LectureIndex int    `json:"lecture_index"`
}

// ProgressParams drives the in-page progress panel.
type ProgressParams struct {
	Section string `json:"section"`
	Lecture string `json:"lecture"`
	Handled int    `json:"handled"`
	Total   int    `json:"total"`
}

// structureResult is the get_structure reply. Exactly one of CourseID or
// Outline is expected.
type structureResult struct {
	CourseID string          `json:"course_id,omitempty"`
	Title    string          `json:"title,omitempty"`
	Outline  json.RawMessage `json:"outline,omitempty"`
}
