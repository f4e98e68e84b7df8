package model

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/openapi"
)

// Builder converts the service contract into a form model.
type Builder interface {
	Build(contract *openapi.Contract) (FormModel, error)
}

// BuilderOption configures the builder behaviour.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	locale     string
	labeler    func(string) string
	decorators []Decorator
}

// WithLocale selects the label locale. Unsupported tags fall back to
// DefaultLocale.
func WithLocale(locale string) BuilderOption {
	return func(opts *builderOptions) {
		opts.locale = NormalizeLocale(locale)
	}
}

// WithLabeler overrides the label generation used when the contract has no
// label for the selected locale.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(opts *builderOptions) {
		opts.labeler = labeler
	}
}

// WithDecorators appends decorators run after the model is built.
func WithDecorators(decorators ...Decorator) BuilderOption {
	return func(opts *builderOptions) {
		opts.decorators = append(opts.decorators, decorators...)
	}
}

// NewBuilder returns a Builder.
func NewBuilder(options ...BuilderOption) Builder {
	cfg := builderOptions{
		locale:  DefaultLocale,
		labeler: DefaultLabeler,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.labeler == nil {
		cfg.labeler = DefaultLabeler
	}
	return &builder{options: cfg}
}

type builder struct {
	options builderOptions
}

func (b *builder) Build(contract *openapi.Contract) (FormModel, error) {
	if contract == nil {
		return FormModel{}, errors.New("model builder: contract is nil")
	}

	form := FormModel{
		OperationID: openapi.OperationPredict,
		Locale:      b.options.locale,
		Texts:       TextsFor(b.options.locale),
	}
	if ep, ok := contract.Endpoint(openapi.OperationPredict); ok {
		form.Endpoint = ep.Path
		form.Method = ep.Method
	}

	defaults := cascade.DefaultFormState()
	for _, name := range cascade.Fields() {
		prop, ok := contract.Property(string(name))
		if !ok {
			return FormModel{}, fmt.Errorf("model builder: contract lacks property %q", name)
		}
		form.Fields = append(form.Fields, b.buildField(name, prop, defaults))
	}

	for _, decorator := range b.options.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(&form); err != nil {
			return FormModel{}, fmt.Errorf("model builder: decorate: %w", err)
		}
	}
	return form, nil
}

func (b *builder) buildField(name cascade.Field, prop openapi.Property, defaults cascade.FormState) Field {
	field := Field{
		Name:     name,
		Type:     FieldTypeString,
		Label:    prop.Labels[b.options.locale],
		Default:  defaults.Value(name),
		Required: prop.Required,
	}
	if field.Label == "" {
		field.Label = b.options.labeler(string(name))
	}
	if prop.Type == string(FieldTypeNumber) || name.Numeric() {
		field.Type = FieldTypeNumber
	}

	switch {
	case name.Cascading():
		field.Kind = KindCascade
		field.Dependent = upstream(name)
	case field.Type == FieldTypeNumber:
		field.Kind = KindNumber
	default:
		field.Kind = KindSelect
		labels := prop.EnumLabels[b.options.locale]
		for i, value := range prop.Enum {
			label := value
			if i < len(labels) && labels[i] != "" {
				label = labels[i]
			}
			field.Options = append(field.Options, Option{Value: value, Label: label})
		}
	}
	return field
}

func upstream(name cascade.Field) cascade.Field {
	switch name {
	case cascade.FieldSeries:
		return cascade.FieldBrand
	case cascade.FieldModel:
		return cascade.FieldSeries
	default:
		return ""
	}
}
