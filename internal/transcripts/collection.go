// Package transcripts holds the captured transcript collection and persists it
// through the key-value store.
package transcripts

import (
	"sort"
	"strings"

	"lectern/internal/outline"
)

// Sentinel lines recorded when no real transcript text is available.
const (
	NoTranscriptAvailable = "[No transcript available for this lecture]"
	NoTranscriptText      = "[No transcript text found]"
)

var sentinelPrefixes = []string{"[Error", "[Could not", "[No transcript"}

// Collection maps section title to lecture title to transcript lines.
type Collection map[string]map[string][]string

// ErrorLine formats the sentinel recorded for a failed unit.
func ErrorLine(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = "unknown failure"
	}
	return "[Error: " + detail + "]"
}

// IsSentinel reports whether lines is a single placeholder line rather than
// captured text.
func IsSentinel(lines []string) bool {
	if len(lines) != 1 {
		return false
	}
	for _, prefix := range sentinelPrefixes {
		if strings.HasPrefix(lines[0], prefix) {
			return true
		}
	}
	return false
}

// Set records lines for a lecture, replacing any earlier entry.
func (c Collection) Set(section, lecture string, lines []string) {
	lectures, ok := c[section]
	if !ok {
		lectures = make(map[string][]string)
		c[section] = lectures
	}
	lectures[lecture] = append([]string{}, lines...)
}

// Lines returns the entry for a lecture.
func (c Collection) Lines(section, lecture string) ([]string, bool) {
	lectures, ok := c[section]
	if !ok {
		return nil, false
	}
	lines, ok := lectures[lecture]
	return lines, ok
}

// Has reports whether the lecture has an entry.
func (c Collection) Has(section, lecture string) bool {
	_, ok := c.Lines(section, lecture)
	return ok
}

// Clone returns a deep copy.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for section, lectures := range c {
		copied := make(map[string][]string, len(lectures))
		for lecture, lines := range lectures {
			copied[lecture] = append([]string{}, lines...)
		}
		out[section] = copied
	}
	return out
}

// Counts returns the number of sections and lectures held.
func (c Collection) Counts() (sections, lectures int) {
	for _, entries := range c {
		sections++
		lectures += len(entries)
	}
	return sections, lectures
}

// Failed lists "section::lecture" keys whose entry is a sentinel, sorted.
func (c Collection) Failed() []string {
	var out []string
	for section, lectures := range c {
		for lecture, lines := range lectures {
			if IsSentinel(lines) {
				out = append(out, outline.Key(section, lecture))
			}
		}
	}
	sort.Strings(out)
	return out
}
