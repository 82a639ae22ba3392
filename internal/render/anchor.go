package render

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonWord       = regexp.MustCompile(`[^\w-]`)
	hyphenRun     = regexp.MustCompile(`--+`)
)

const maxAnchorLength = 50

// Anchor builds a heading anchor: lowercase, whitespace to hyphens, non-word
// characters removed, hyphen runs collapsed, truncated to 50 characters.
func Anchor(text string) string {
	anchor := strings.ToLower(text)
	anchor = whitespaceRun.ReplaceAllString(anchor, "-")
	anchor = nonWord.ReplaceAllString(anchor, "")
	anchor = hyphenRun.ReplaceAllString(anchor, "-")
	if len(anchor) > maxAnchorLength {
		anchor = anchor[:maxAnchorLength]
	}
	return anchor
}
