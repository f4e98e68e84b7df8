package model

import "github.com/goliatone/go-ototahmin/pkg/cascade"

// FieldType is the JSON type a field is submitted as.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
)

// Kind tells renderers which control to draw.
type Kind string

const (
	// KindSelect is a fixed list of options taken from the contract.
	KindSelect Kind = "select"
	// KindCascade is a list whose options come from the catalog and depend
	// on an upstream selection.
	KindCascade Kind = "cascade"
	// KindNumber is a free numeric input.
	KindNumber Kind = "number"
)

// Option is one selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field models an individual form input.
type Field struct {
	Name  cascade.Field `json:"name"`
	Type  FieldType     `json:"type"`
	Kind  Kind          `json:"kind"`
	Label string        `json:"label"`
	// Options is empty for number and cascade fields; cascade options are
	// read from the current snapshot.
	Options []Option `json:"options,omitempty"`
	// Dependent names the upstream field a cascade field is derived from.
	Dependent cascade.Field `json:"dependent,omitempty"`
	Default   string        `json:"default,omitempty"`
	Required  bool          `json:"required"`
}

// OptionLabel returns the label of value, or value itself when it is not one
// of the field's options.
func (f Field) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// FormModel is the top-level representation renderers consume.
type FormModel struct {
	OperationID string  `json:"operationId"`
	Endpoint    string  `json:"endpoint"`
	Method      string  `json:"method"`
	Locale      string  `json:"locale"`
	Texts       Texts   `json:"texts"`
	Fields      []Field `json:"fields"`
}

// Field returns the descriptor for name.
func (m FormModel) Field(name cascade.Field) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
