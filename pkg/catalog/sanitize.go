package catalog

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy
)

// Sanitize returns a copy of ds with markup stripped from every brand, series
// and model name. Names that are empty after cleaning are dropped, which can
// collapse two entries into one when they only differed by markup.
func Sanitize(ds Dataset) Dataset {
	entries := ds.Entries()
	brands := make([]Brand, 0, len(entries))
	for _, brand := range entries {
		name := sanitizeLabel(brand.Name)
		if name == "" {
			continue
		}
		series := make([]Series, 0, len(brand.Series))
		for _, s := range brand.Series {
			sname := sanitizeLabel(s.Name)
			if sname == "" {
				continue
			}
			models := make([]string, 0, len(s.Models))
			for _, m := range s.Models {
				if clean := sanitizeLabel(m); clean != "" {
					models = append(models, clean)
				}
			}
			series = append(series, Series{Name: sname, Models: models})
		}
		brands = append(brands, Brand{Name: name, Series: series})
	}
	return NewDataset(brands...)
}

func sanitizeLabel(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := labelSanitizer().Sanitize(trimmed)
	// The strict policy escapes entities; labels are plain text.
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func labelSanitizer() *bluemonday.Policy {
	labelPolicyOnce.Do(func() {
		labelPolicy = bluemonday.StrictPolicy()
	})
	return labelPolicy
}
