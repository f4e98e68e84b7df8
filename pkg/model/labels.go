package model

import (
	"regexp"
	"strings"
)

const (
	LocaleTurkish = "tr"
	LocaleEnglish = "en"

	DefaultLocale = LocaleTurkish
)

// Texts holds the fixed interface strings of a locale.
type Texts struct {
	Title     string `json:"title"`
	Submit    string `json:"submit"`
	Pending   string `json:"pending"`
	Failure   string `json:"failure"`
	Choose    string `json:"choose"`
	EditField string `json:"editField"`
	Again     string `json:"again"`
	Quit      string `json:"quit"`
	Invalid   string `json:"invalid"`

	// Placeholder is the empty choice of a select without a value.
	Placeholder string `json:"placeholder"`
	Update      string `json:"update"`
}

var localeTexts = map[string]Texts{
	LocaleTurkish: {
		Title:       "OtoTahmin",
		Submit:      "Tahmin Et",
		Pending:     "Tahmin ediliyor...",
		Failure:     "Tahmin yapılamadı.",
		Choose:      "Ne yapmak istersiniz?",
		EditField:   "Bir alanı düzenle",
		Again:       "Tekrar tahmin et",
		Quit:        "Çıkış",
		Invalid:     "Geçerli bir sayı girin",
		Placeholder: "Seçiniz",
		Update:      "Güncelle",
	},
	LocaleEnglish: {
		Title:       "OtoTahmin",
		Submit:      "Predict",
		Pending:     "Predicting...",
		Failure:     "Prediction failed.",
		Choose:      "What next?",
		EditField:   "Edit a field",
		Again:       "Predict again",
		Quit:        "Quit",
		Invalid:     "Enter a valid number",
		Placeholder: "Select",
		Update:      "Update",
	},
}

// Locales lists the supported locales, default first.
func Locales() []string {
	return []string{LocaleTurkish, LocaleEnglish}
}

// NormalizeLocale maps tags like "tr-TR" or "EN_us" onto a supported locale,
// falling back to DefaultLocale.
func NormalizeLocale(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	if _, ok := localeTexts[tag]; ok {
		return tag
	}
	return DefaultLocale
}

// TextsFor returns the interface strings of locale.
func TextsFor(locale string) Texts {
	return localeTexts[NormalizeLocale(locale)]
}

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler converts a field name into a human-friendly label. It splits
// on underscores/dashes and camelCase boundaries.
func DefaultLabeler(name string) string {
	if name == "" {
		return ""
	}

	words := splitWordsPattern.Split(name, -1)
	var segments []string
	for _, word := range words {
		if word == "" {
			continue
		}
		segments = append(segments, splitCamel(word))
	}
	return strings.TrimSpace(strings.Join(segments, " "))
}

func splitCamel(input string) string {
	var out strings.Builder
	for i, r := range input {
		if i > 0 && isBoundary(input, i, r) {
			out.WriteRune(' ')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func isBoundary(input string, index int, r rune) bool {
	prev := rune(input[index-1])
	return isLower(prev) && isUpper(r)
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
