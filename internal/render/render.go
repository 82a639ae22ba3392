// Package render turns a transcript collection into the downloadable document.
package render

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lectern/internal/transcripts"
)

const (
	defaultTitle   = "Course Transcript"
	emptyLecture   = "*No transcript available for this lecture.*"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Options controls document rendering.
type Options struct {
	// Title overrides every other title source.
	Title string
	// CourseTitle is the title discovered with the outline.
	CourseTitle string
	// CourseSlug is title-cased when no other title is known ("go-in-practice").
	CourseSlug string
	// Now stamps the markdown header. Zero means time.Now.
	Now time.Time
}

// Document renders collection in the named format.
func Document(collection transcripts.Collection, format string, opts Options) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatMarkdown:
		return Markdown(collection, opts), nil
	case FormatText:
		return Text(collection, opts), nil
	default:
		return "", fmt.Errorf("unsupported document format %q", format)
	}
}

// Title resolves the document title.
func Title(opts Options) string {
	if title := strings.TrimSpace(opts.Title); title != "" {
		return title
	}
	if title := strings.TrimSpace(opts.CourseTitle); title != "" {
		return title
	}
	if slug := strings.TrimSpace(opts.CourseSlug); slug != "" {
		words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
		if len(words) > 0 {
			return cases.Title(language.English).String(strings.Join(words, " "))
		}
	}
	return defaultTitle
}

// Markdown renders a titled document with a table of contents and one fenced
// block per lecture. Sentinel entries are italicized.
func Markdown(collection transcripts.Collection, opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title(opts))
	fmt.Fprintf(&b, "*Transcript extracted on %s at %s*\n\n", now.Format("2006-01-02"), now.Format("15:04:05"))

	sections := SortTitles(keys(collection))

	b.WriteString("## Table of Contents\n\n")
	for _, section := range sections {
		fmt.Fprintf(&b, "- [%s](#%s)\n", section, Anchor(section))
		for _, lecture := range SortTitles(keys(collection[section])) {
			fmt.Fprintf(&b, "  - [%s](#%s)\n", lecture, Anchor(lecture))
		}
	}
	b.WriteString("\n---\n\n")

	for _, section := range sections {
		fmt.Fprintf(&b, "## %s {#%s}\n\n", section, Anchor(section))
		for _, lecture := range SortTitles(keys(collection[section])) {
			fmt.Fprintf(&b, "### %s {#%s}\n\n", lecture, Anchor(lecture))
			lines := collection[section][lecture]
			switch {
			case len(lines) == 0:
				b.WriteString(emptyLecture + "\n\n")
			case transcripts.IsSentinel(lines):
				fmt.Fprintf(&b, "*%s*\n\n", lines[0])
			default:
				b.WriteString("```\n")
				for _, line := range lines {
					b.WriteString(line)
					b.WriteByte('\n')
				}
				b.WriteString("```\n\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Text renders the flat format: "=== section ===" blocks with "--- lecture ---"
// sub-blocks holding the lines verbatim.
func Text(collection transcripts.Collection, opts Options) string {
	var b strings.Builder
	b.WriteString(Title(opts))
	b.WriteString("\n")
	for _, section := range SortTitles(keys(collection)) {
		fmt.Fprintf(&b, "\n\n=== %s ===\n\n", section)
		for _, lecture := range SortTitles(keys(collection[section])) {
			fmt.Fprintf(&b, "\n--- %s ---\n\n", lecture)
			lines := collection[section][lecture]
			switch {
			case len(lines) == 0:
				b.WriteString("No transcript available for this lecture.\n")
			case transcripts.IsSentinel(lines):
				fmt.Fprintf(&b, "*%s*\n", lines[0])
			default:
				b.WriteString(strings.Join(lines, "\n"))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
