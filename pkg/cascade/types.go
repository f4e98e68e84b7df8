package cascade

import (
	"strconv"

	"github.com/goliatone/go-ototahmin/pkg/catalog"
)

// Field names a form input. The string values double as the canonical
// request keys of the prediction API.
type Field string

const (
	FieldBrand        Field = "Brand"
	FieldSeries       Field = "Series"
	FieldModel        Field = "Model"
	FieldYear         Field = "Year"
	FieldMileage      Field = "Mileage"
	FieldEngineSize   Field = "EngineSize"
	FieldEnginePower  Field = "EnginePower"
	FieldTransmission Field = "TransmissionType"
	FieldFuel         Field = "FuelType"
	FieldBody         Field = "BodyType"
	FieldDrive        Field = "DriveType"
)

// Fields lists every form field in display order.
func Fields() []Field {
	return []Field{
		FieldBrand,
		FieldSeries,
		FieldModel,
		FieldYear,
		FieldMileage,
		FieldEngineSize,
		FieldEnginePower,
		FieldTransmission,
		FieldFuel,
		FieldBody,
		FieldDrive,
	}
}

// ParseField resolves a field name, reporting false for unknown names.
func ParseField(name string) (Field, bool) {
	for _, f := range Fields() {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Numeric reports whether the field holds a number.
func (f Field) Numeric() bool {
	switch f {
	case FieldYear, FieldMileage, FieldEngineSize, FieldEnginePower:
		return true
	default:
		return false
	}
}

// Cascading reports whether the field belongs to the brand → series → model
// chain.
func (f Field) Cascading() bool {
	switch f {
	case FieldBrand, FieldSeries, FieldModel:
		return true
	default:
		return false
	}
}

// FormState carries the values of every form input.
type FormState struct {
	Brand  string
	Series string
	Model  string

	Year        float64
	Mileage     float64
	EngineSize  float64
	EnginePower float64

	Transmission string
	Fuel         string
	Body         string
	Drive        string
}

// DefaultFormState returns the values a fresh form starts with.
func DefaultFormState() FormState {
	return FormState{
		Year:         2000,
		Transmission: "Manual",
		Fuel:         "Gasoline",
		Body:         "Sedan",
		Drive:        "Front-Wheel",
	}
}

// Value returns the textual value of field. Numbers use the shortest
// representation that round-trips.
func (s FormState) Value(field Field) string {
	switch field {
	case FieldBrand:
		return s.Brand
	case FieldSeries:
		return s.Series
	case FieldModel:
		return s.Model
	case FieldYear:
		return formatNumber(s.Year)
	case FieldMileage:
		return formatNumber(s.Mileage)
	case FieldEngineSize:
		return formatNumber(s.EngineSize)
	case FieldEnginePower:
		return formatNumber(s.EnginePower)
	case FieldTransmission:
		return s.Transmission
	case FieldFuel:
		return s.Fuel
	case FieldBody:
		return s.Body
	case FieldDrive:
		return s.Drive
	default:
		return ""
	}
}

// Number returns the numeric value of field, or false when field is not
// numeric.
func (s FormState) Number(field Field) (float64, bool) {
	switch field {
	case FieldYear:
		return s.Year, true
	case FieldMileage:
		return s.Mileage, true
	case FieldEngineSize:
		return s.EngineSize, true
	case FieldEnginePower:
		return s.EnginePower, true
	default:
		return 0, false
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Options are the selectable values derived from the dataset for the
// dependent fields.
type Options struct {
	Series []string
	Models []string
}

func (o Options) clone() Options {
	return Options{
		Series: append([]string{}, o.Series...),
		Models: append([]string{}, o.Models...),
	}
}

// Snapshot is an immutable view of the machine: the dataset in use, the form
// values and the options derived from them.
type Snapshot struct {
	Dataset catalog.Dataset
	Form    FormState
	Options Options
	// Generation identifies the load that produced Dataset; zero until the
	// first dataset is applied.
	Generation uint64
}

// NewSnapshot returns the starting snapshot for form with no dataset.
func NewSnapshot(form FormState) Snapshot {
	return Snapshot{
		Form:    form,
		Options: Options{Series: []string{}, Models: []string{}},
	}
}

// Clone returns a copy that shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Options = s.Options.clone()
	return out
}

// Brands lists the selectable brands of the current dataset.
func (s Snapshot) Brands() []string {
	return s.Dataset.Brands()
}

// ShowSeries reports whether a series selector has anything to offer.
func (s Snapshot) ShowSeries() bool {
	return len(s.Options.Series) > 0
}

// ShowModels reports whether a model selector has anything to offer.
func (s Snapshot) ShowModels() bool {
	return len(s.Options.Models) > 0
}
