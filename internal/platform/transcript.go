package platform

import (
	"context"
	"net/url"
	"strings"

	"lectern/internal/captions"
	"lectern/internal/language"
	"lectern/internal/services"
	"lectern/internal/transcripts"
)

type lectureAsset struct {
	ID    int64 `json:"id"`
	Asset struct {
		AssetType string    `json:"asset_type"`
		Captions  []caption `json:"captions"`
	} `json:"asset"`
}

type caption struct {
	Locale string `json:"locale_id"`
	URL    string `json:"url"`
	Label  string `json:"video_label"`
}

// Transcript fetches the captions of one lecture and returns its spoken lines.
// A lecture without captions yields the "no transcript available" sentinel and
// an empty caption file yields the "no transcript text" sentinel; neither is an
// error.
func (c *Client) Transcript(ctx context.Context, courseID, lectureID string) ([]string, error) {
	endpoint := c.baseURL.JoinPath("users", "me", "subscribed-courses", courseID, "lectures", lectureID, "/")
	endpoint.RawQuery = url.Values{
		"fields[lecture]": {"asset"},
		"fields[asset]":   {"asset_type,captions"},
	}.Encode()

	var lecture lectureAsset
	if err := c.getJSON(ctx, "lecture", endpoint.String(), &lecture); err != nil {
		return nil, err
	}

	chosen, ok := chooseCaption(lecture.Asset.Captions, c.locales)
	if !ok {
		return []string{transcripts.NoTranscriptAvailable}, nil
	}

	target, err := c.baseURL.Parse(chosen.URL)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "platform", "captions", "invalid caption url", err)
	}
	raw, err := c.get(ctx, "captions", target.String())
	if err != nil {
		return nil, err
	}
	lines := captions.ExtractLines(string(raw))
	if len(lines) == 0 {
		return []string{transcripts.NoTranscriptText}, nil
	}
	return lines, nil
}

// chooseCaption picks the caption best matching the locale preference list,
// falling back to the first caption with a URL.
func chooseCaption(available []caption, preferred []string) (caption, bool) {
	usable := make([]caption, 0, len(available))
	locales := make([]string, 0, len(available))
	for _, c := range available {
		if strings.TrimSpace(c.URL) != "" {
			usable = append(usable, c)
			locales = append(locales, c.Locale)
		}
	}
	if len(usable) == 0 {
		return caption{}, false
	}
	if idx := language.Match(preferred, locales); idx >= 0 {
		return usable[idx], true
	}
	return usable[0], true
}
