package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	// OperationReferenceData fetches the brand → series → model catalog.
	OperationReferenceData = "getReferenceData"
	// OperationPredict posts a vehicle description and returns a price.
	OperationPredict = "predictPrice"

	extensionLabels      = "x-ototahmin-labels"
	extensionAliases     = "x-ototahmin-aliases"
	extensionEnumLabels  = "x-ototahmin-enum-labels"
	extensionResultField = "x-ototahmin-result-field"

	defaultResultField = "tahmin"
)

// Endpoint locates an operation relative to the service root.
type Endpoint struct {
	Method string
	Path   string
}

// Property describes one field of the prediction request.
type Property struct {
	Name string
	// Type is the JSON schema type, "string" or "number".
	Type     string
	Required bool
	Enum     []string
	// Labels maps a locale to the label shown to users.
	Labels map[string]string
	// Aliases maps a vocabulary to the request key it expects.
	Aliases map[string]string
	// EnumLabels maps a locale to option labels aligned with Enum.
	EnumLabels map[string][]string
}

// Contract is a parsed and validated service description.
type Contract struct {
	endpoints   map[string]Endpoint
	request     *openapi3.Schema
	order       []string
	properties  map[string]Property
	resultField string
}

// Load parses the embedded contract.
func Load(ctx context.Context) (*Contract, error) {
	return LoadFromData(ctx, embeddedContract)
}

// LoadFromData parses and validates raw as the service contract.
func LoadFromData(ctx context.Context, raw []byte) (*Contract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi contract: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi contract: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi contract: validate document: %w", err)
	}

	c := &Contract{
		endpoints:   make(map[string]Endpoint),
		properties:  make(map[string]Property),
		resultField: defaultResultField,
	}

	var predict *openapi3.Operation
	if doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				if op == nil || op.OperationID == "" {
					continue
				}
				c.endpoints[op.OperationID] = Endpoint{Method: strings.ToUpper(method), Path: path}
				if op.OperationID == OperationPredict {
					predict = op
				}
			}
		}
	}
	if predict == nil {
		return nil, fmt.Errorf("openapi contract: operation %q not found", OperationPredict)
	}
	if _, ok := c.endpoints[OperationReferenceData]; !ok {
		return nil, fmt.Errorf("openapi contract: operation %q not found", OperationReferenceData)
	}

	c.request = requestSchema(predict)
	if c.request == nil {
		return nil, fmt.Errorf("openapi contract: %s has no JSON request schema", OperationPredict)
	}
	if err := c.collectProperties(); err != nil {
		return nil, err
	}

	if resp := responseSchema(predict); resp != nil {
		var field string
		if decodeExtension(resp.Extensions, extensionResultField, &field) && field != "" {
			c.resultField = field
		}
	}
	return c, nil
}

// Endpoint returns the method and path of operationID.
func (c *Contract) Endpoint(operationID string) (Endpoint, bool) {
	ep, ok := c.endpoints[operationID]
	return ep, ok
}

// Properties lists the request properties in the order of the schema's
// required list, followed by optional properties sorted by name.
func (c *Contract) Properties() []Property {
	out := make([]Property, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.properties[name].clone())
	}
	return out
}

// Property returns the named request property.
func (c *Contract) Property(name string) (Property, bool) {
	prop, ok := c.properties[name]
	if !ok {
		return Property{}, false
	}
	return prop.clone(), true
}

// Enum returns the allowed values of property in document order. Free-form
// properties return nil.
func (c *Contract) Enum(property string) []string {
	prop, ok := c.properties[property]
	if !ok || len(prop.Enum) == 0 {
		return nil
	}
	return append([]string(nil), prop.Enum...)
}

// Labels returns the per-locale labels of property.
func (c *Contract) Labels(property string) map[string]string {
	return cloneStrings(c.properties[property].Labels)
}

// EnumLabels returns the per-locale option labels of property, each aligned
// with Enum.
func (c *Contract) EnumLabels(property string) map[string][]string {
	src := c.properties[property].EnumLabels
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]string, len(src))
	for locale, labels := range src {
		out[locale] = append([]string(nil), labels...)
	}
	return out
}

// PredictionField names the response property holding the predicted price.
func (c *Contract) PredictionField() string {
	return c.resultField
}

// ValidateRequest checks a prediction payload keyed by canonical property
// names against the request schema. Numbers must be float64.
func (c *Contract) ValidateRequest(payload map[string]any) error {
	if payload == nil {
		return errors.New("openapi contract: request payload is nil")
	}
	if err := c.request.VisitJSON(payload, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("openapi contract: invalid request: %w", err)
	}
	return nil
}

func (c *Contract) collectProperties() error {
	seen := make(map[string]bool, len(c.request.Properties))
	for _, name := range c.request.Required {
		if seen[name] {
			continue
		}
		if _, ok := c.request.Properties[name]; !ok {
			return fmt.Errorf("openapi contract: required property %q is not defined", name)
		}
		seen[name] = true
		c.order = append(c.order, name)
	}
	var optional []string
	for name := range c.request.Properties {
		if !seen[name] {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	c.order = append(c.order, optional...)

	for _, name := range c.order {
		prop, err := convertProperty(name, c.request.Properties[name])
		if err != nil {
			return err
		}
		prop.Required = seen[name]
		c.properties[name] = prop
	}
	return nil
}

func convertProperty(name string, ref *openapi3.SchemaRef) (Property, error) {
	prop := Property{Name: name}
	if ref == nil || ref.Value == nil {
		return prop, fmt.Errorf("openapi contract: property %q has no schema", name)
	}
	src := ref.Value
	prop.Type = firstSchemaType(src.Type)

	for _, value := range src.Enum {
		str, ok := value.(string)
		if !ok {
			return prop, fmt.Errorf("openapi contract: property %q has non-string enum value %v", name, value)
		}
		prop.Enum = append(prop.Enum, str)
	}

	decodeExtension(src.Extensions, extensionLabels, &prop.Labels)
	decodeExtension(src.Extensions, extensionAliases, &prop.Aliases)
	if decodeExtension(src.Extensions, extensionEnumLabels, &prop.EnumLabels) {
		for locale, labels := range prop.EnumLabels {
			if len(labels) != len(prop.Enum) {
				return prop, fmt.Errorf("openapi contract: property %q has %d %s enum labels for %d values", name, len(labels), locale, len(prop.Enum))
			}
		}
	}
	return prop, nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

func responseSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.Responses == nil {
		return nil
	}
	ref := op.Responses.Map()[fmt.Sprint(http.StatusOK)]
	if ref == nil || ref.Value == nil {
		return nil
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	if values := types.Slice(); len(values) > 0 {
		return values[0]
	}
	return ""
}

// decodeExtension copies the extension value stored under key into target
// and reports whether it was present and well formed.
func decodeExtension(extensions map[string]any, key string, target any) bool {
	value, ok := extensions[key]
	if !ok || value == nil {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

func (p Property) clone() Property {
	out := p
	out.Enum = append([]string(nil), p.Enum...)
	out.Labels = cloneStrings(p.Labels)
	out.Aliases = cloneStrings(p.Aliases)
	if p.EnumLabels != nil {
		out.EnumLabels = make(map[string][]string, len(p.EnumLabels))
		for locale, labels := range p.EnumLabels {
			out.EnumLabels[locale] = append([]string(nil), labels...)
		}
	}
	return out
}

func cloneStrings(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
