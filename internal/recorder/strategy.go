package recorder

import (
	"context"

	"lectern/internal/outline"
)

// PageAgent is the browser-side component that can read the course page and
// drive its player.
type PageAgent interface {
	Structure(ctx context.Context, page string) (outline.Discovery, error)
	Navigate(ctx context.Context, page string, unit outline.Unit) error
	Ping(ctx context.Context, page string) error
	Stop(ctx context.Context, page string) error
	Progress(ctx context.Context, page, section, lecture string, handled, total int) error
	Complete(ctx context.Context, page string) error
}

// ContentSource fetches course structure and captions without the page.
type ContentSource interface {
	Curriculum(ctx context.Context, courseID string) (*outline.Outline, error)
	Transcript(ctx context.Context, courseID, lectureID string) ([]string, error)
}
