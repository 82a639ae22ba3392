// Package captions turns raw subtitle tracks (WebVTT or SRT) into the ordered
// spoken lines stored as a lecture transcript.
package captions

import (
	"html"
	"regexp"
	"strings"
)

var inlineTag = regexp.MustCompile(`<[^>]*>`)

var skippedBlockPrefixes = []string{"WEBVTT", "NOTE", "STYLE", "REGION"}

// ExtractLines returns the spoken text of a subtitle track in order.
//
// The format header and NOTE/STYLE/REGION blocks are dropped, as are cue
// timing lines, cue identifiers, numeric SRT indices and blank lines. Inline
// markup is stripped and entities decoded. A line equal to the line directly
// before it is dropped; repeats further apart are kept.
func ExtractLines(raw string) []string {
	normalized := strings.TrimPrefix(raw, "\ufeff")
	normalized = strings.ReplaceAll(normalized, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var out []string
	for _, block := range splitBlocks(normalized) {
		for _, line := range cueText(block) {
			cleaned := CleanLine(line)
			if cleaned == "" {
				continue
			}
			if len(out) > 0 && out[len(out)-1] == cleaned {
				continue
			}
			out = append(out, cleaned)
		}
	}
	return out
}

// CleanLine strips inline markup and entities and normalizes whitespace.
func CleanLine(line string) string {
	line = inlineTag.ReplaceAllString(line, "")
	line = html.UnescapeString(line)
	return strings.Join(strings.Fields(line), " ")
}

func splitBlocks(content string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// cueText returns the payload lines of one block, or nil for blocks that
// carry no spoken text. A block may hold several cues when the track omits
// the blank separator, and the WEBVTT header may run straight into the first
// cue.
func cueText(block []string) []string {
	first := strings.TrimSpace(block[0])
	header := false
	for _, prefix := range skippedBlockPrefixes {
		if first == prefix || strings.HasPrefix(first, prefix+" ") || strings.HasPrefix(first, prefix+"\t") {
			if prefix != "WEBVTT" {
				return nil
			}
			header = true
		}
	}

	start := -1
	for idx, line := range block {
		if isTimingLine(line) {
			start = idx
			break
		}
	}
	text := make([]string, 0, len(block))
	if start < 0 {
		if header {
			return nil
		}
		for _, line := range block {
			if isNumeric(strings.TrimSpace(line)) {
				continue
			}
			text = append(text, line)
		}
		return text
	}

	// Lines before the first timing line are the header or a cue id.
	for idx := start + 1; idx < len(block); idx++ {
		line := block[idx]
		if isTimingLine(line) {
			continue
		}
		if idx+1 < len(block) && isTimingLine(block[idx+1]) && isNumeric(strings.TrimSpace(line)) {
			continue
		}
		text = append(text, line)
	}
	return text
}

func isTimingLine(line string) bool {
	return strings.Contains(line, "-->")
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
