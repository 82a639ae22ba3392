package render

import (
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var numericPrefix = regexp.MustCompile(`^(\d+)[.\s:)-]+`)

// SortTitles orders titles by their numeric prefix. Numbered titles come
// before un-numbered ones; equal numbers and un-numbered titles fall back to an
// English collation.
func SortTitles(titles []string) []string {
	out := append([]string(nil), titles...)
	collator := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		return less(collator, out[i], out[j])
	})
	return out
}

func less(collator *collate.Collator, a, b string) bool {
	an, aok := prefixNumber(a)
	bn, bok := prefixNumber(b)
	switch {
	case aok && bok && an != bn:
		return an < bn
	case aok && !bok:
		return true
	case !aok && bok:
		return false
	}
	return collator.CompareString(a, b) < 0
}

func prefixNumber(title string) (int, bool) {
	match := numericPrefix.FindStringSubmatch(title)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
