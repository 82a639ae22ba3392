package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
	{"id", "ind", "", "Indonesian", []string{"indonesian"}},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// canonical lowercases a locale and uses "-" as the subtag separator.
func canonical(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}

// ToISO2 reduces a locale ("en_US", "pt-BR"), ISO 639 code or language word
// to its ISO 639-1 base. Unrecognized input returns "".
func ToISO2(code string) string {
	code = canonical(code)
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	iso := base.String()
	if len(iso) != 2 {
		return ""
	}
	return iso
}

// DisplayName returns a human-readable language name for a locale or code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(ToISO2(code)); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// Match returns the index in available of the best entry for the preference
// list: an exact locale match for the earliest preference wins, then the
// earliest preference sharing a base language. It returns -1 when nothing matches.
func Match(preferred, available []string) int {
	for _, want := range preferred {
		want = canonical(want)
		if want == "" {
			continue
		}
		for i, have := range available {
			if canonical(have) == want {
				return i
			}
		}
	}
	for _, want := range preferred {
		base := ToISO2(want)
		if base == "" {
			continue
		}
		for i, have := range available {
			if ToISO2(have) == base {
				return i
			}
		}
	}
	return -1
}
