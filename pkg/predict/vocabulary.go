package predict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-ototahmin/pkg/openapi"
)

const (
	VocabularyEnglish = "english"
	VocabularyTurkish = "turkish"

	turkishAlias = "tr"
)

// Vocabulary renames request keys and enumerated values for a backend. The
// zero value is the canonical English vocabulary.
type Vocabulary struct {
	name   string
	keys   map[string]string
	values map[string]map[string]string
}

// English returns the canonical vocabulary.
func English() Vocabulary {
	return Vocabulary{name: VocabularyEnglish}
}

// Turkish builds the vocabulary of the original backend from the contract
// aliases and Turkish option labels.
func Turkish(contract *openapi.Contract) (Vocabulary, error) {
	if contract == nil {
		return Vocabulary{}, errors.New("predict: turkish vocabulary requires a contract")
	}
	v := Vocabulary{
		name:   VocabularyTurkish,
		keys:   make(map[string]string),
		values: make(map[string]map[string]string),
	}
	for _, prop := range contract.Properties() {
		if alias := prop.Aliases[turkishAlias]; alias != "" {
			v.keys[prop.Name] = alias
		}
		labels := prop.EnumLabels[turkishAlias]
		if len(labels) == 0 {
			continue
		}
		mapped := make(map[string]string, len(prop.Enum))
		for i, value := range prop.Enum {
			mapped[value] = labels[i]
		}
		v.values[prop.Name] = mapped
	}
	return v, nil
}

// ParseVocabulary resolves a vocabulary by name. An empty name selects
// English.
func ParseVocabulary(name string, contract *openapi.Contract) (Vocabulary, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", VocabularyEnglish, "en":
		return English(), nil
	case VocabularyTurkish, "tr":
		return Turkish(contract)
	default:
		return Vocabulary{}, fmt.Errorf("predict: unknown vocabulary %q", name)
	}
}

// Name reports the vocabulary name.
func (v Vocabulary) Name() string {
	if v.name == "" {
		return VocabularyEnglish
	}
	return v.name
}

// Key returns the backend key for a canonical field name.
func (v Vocabulary) Key(field string) string {
	if key, ok := v.keys[field]; ok {
		return key
	}
	return field
}

// Value returns the backend spelling of value for field.
func (v Vocabulary) Value(field, value string) string {
	if mapped, ok := v.values[field][value]; ok {
		return mapped
	}
	return value
}

// Translate rewrites a canonical payload into the vocabulary.
func (v Vocabulary) Translate(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for field, value := range payload {
		if str, ok := value.(string); ok {
			value = v.Value(field, str)
		}
		out[v.Key(field)] = value
	}
	return out
}
