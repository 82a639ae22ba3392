package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
)

const userAgent = "Lectern-Go/0.1.0"

// Service defines the notification surface exposed to the recorder and CLI.
type Service interface {
	NotifyRecordingStarted(ctx context.Context, course string, lectures int) error
	NotifyRecordingCompleted(ctx context.Context, course string, captured, failed int, duration time.Duration) error
	NotifyRecordingStopped(ctx context.Context, course, reason string, handled, total int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		stopped:   cfg.Notifications.Stopped,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	completed bool
	stopped   bool
	errors    bool
}

func courseLabel(course string) string {
	if course = strings.TrimSpace(course); course != "" {
		return course
	}
	return "course"
}

func (n *ntfyService) NotifyRecordingStarted(ctx context.Context, course string, lectures int) error {
	data := payload{
		title:    "Lectern - Recording Started",
		message:  fmt.Sprintf("Recording %s: %d lectures", courseLabel(course), lectures),
		tags:     []string{"lectern", "recording", "started"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingCompleted(ctx context.Context, course string, captured, failed int, duration time.Duration) error {
	if !n.completed {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	title := "Lectern - Recording Complete"
	message := fmt.Sprintf("✅ Transcripts ready: %s (%d lectures in %s)", courseLabel(course), captured, durationText)
	if failed > 0 {
		title = "Lectern - Recording Complete (with errors)"
		message = fmt.Sprintf("Transcripts ready: %s (%d captured, %d failed in %s)", courseLabel(course), captured, failed, durationText)
	}
	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"lectern", "recording", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingStopped(ctx context.Context, course, reason string, handled, total int) error {
	if !n.stopped {
		return nil
	}
	message := fmt.Sprintf("Recording stopped: %s at %d/%d", courseLabel(course), handled, total)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:   "Lectern - Recording Stopped",
		message: message,
		tags:    []string{"lectern", "recording", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Error())
	}
	data := payload{
		title:    "Lectern - Error",
		message:  builder.String(),
		tags:     []string{"lectern", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lectern - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"lectern", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRecordingStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyRecordingCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyRecordingStopped(context.Context, string, string, int, int) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
