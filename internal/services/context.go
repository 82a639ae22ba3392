package services

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	lectureKey   contextKey = "lecture"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithSessionID annotates context with the recording session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the recording session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithLecture annotates context with the "section::lecture" key being processed.
func WithLecture(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, lectureKey, key)
}

// LectureFromContext returns the lecture key if present.
func LectureFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(lectureKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the recorder phase name (discovery, capture, finish).
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
