package language

import (
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// 2-letter codes pass through
		{"en", "en"},
		{"EN", "en"},
		// 3-letter codes convert
		{"eng", "en"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		// Locales
		{"en_US", "en"},
		{"en-GB", "en"},
		{"pt_BR", "pt"},
		{"es_419", "es"},
		// Word forms
		{"english", "en"},
		{"French", "fr"},
		// Unknown
		{"klingonese", ""},
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ToISO2(tt.input)
			if result != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en_US", "English"},
		{"deu", "German"},
		{"", "Unknown"},
		{"xx_YY", "XX_YY"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestMatch(t *testing.T) {
	available := []string{"es_ES", "en_GB", "en_US"}
	tests := []struct {
		name      string
		preferred []string
		expected  int
	}{
		{"exact wins", []string{"en_US"}, 2},
		{"separator and case ignored", []string{"EN-gb"}, 1},
		{"earlier exact beats later", []string{"fr_FR", "es_ES"}, 0},
		{"base language fallback", []string{"en_AU"}, 1},
		{"word form", []string{"spanish"}, 0},
		{"no match", []string{"ja_JP"}, -1},
		{"empty preferences", nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.preferred, available); got != tt.expected {
				t.Errorf("Match(%v) = %d, want %d", tt.preferred, got, tt.expected)
			}
		})
	}
}
