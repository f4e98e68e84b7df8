package cascade

import (
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-ototahmin/pkg/catalog"
)

// EventKind distinguishes dataset loads from user input.
type EventKind int

const (
	EventDatasetLoaded EventKind = iota + 1
	EventFieldChanged
)

// ReloadPolicy decides what happens to existing selections when a dataset is
// applied.
type ReloadPolicy int

const (
	// ReloadKeep replaces the dataset and leaves form values and options as
	// they were.
	ReloadKeep ReloadPolicy = iota
	// ReloadRevalidate clears series/model selections that the new dataset
	// no longer offers and recomputes both option lists.
	ReloadRevalidate
)

// Event is an input to Apply.
type Event struct {
	Kind EventKind

	Field Field
	Value string

	Dataset    catalog.Dataset
	Generation uint64
	Policy     ReloadPolicy
}

// Loaded builds a dataset event using ReloadKeep.
func Loaded(ds catalog.Dataset) Event {
	return Event{Kind: EventDatasetLoaded, Dataset: ds}
}

// Changed builds a field change event.
func Changed(field Field, value string) Event {
	return Event{Kind: EventFieldChanged, Field: field, Value: value}
}

// Apply returns the snapshot that results from ev. It never mutates s and
// never fails: lookups that miss yield empty option lists and inputs that
// cannot be applied leave the snapshot unchanged.
func Apply(s Snapshot, ev Event) Snapshot {
	next := s.Clone()

	switch ev.Kind {
	case EventDatasetLoaded:
		next.Dataset = ev.Dataset
		next.Generation = ev.Generation
		if ev.Policy == ReloadRevalidate {
			revalidate(&next)
		}
	case EventFieldChanged:
		applyField(&next, ev.Field, ev.Value)
	}

	return next
}

func applyField(s *Snapshot, field Field, value string) {
	ds := s.Dataset
	form := &s.Form

	switch field {
	case FieldBrand:
		form.Brand = value
		form.Series = ""
		form.Model = ""
		s.Options.Series = ds.Series(value)
		s.Options.Models = []string{}
	case FieldSeries:
		form.Model = ""
		if ds.HasSeries(form.Brand, value) {
			form.Series = value
			s.Options.Models = ds.Models(form.Brand, value)
		} else {
			form.Series = ""
			s.Options.Models = []string{}
		}
	case FieldModel:
		if ds.HasModel(form.Brand, form.Series, value) {
			form.Model = value
		} else {
			form.Model = ""
		}
	case FieldYear, FieldMileage, FieldEngineSize, FieldEnginePower:
		n, ok := ParseNumber(value)
		if !ok {
			return
		}
		setNumber(form, field, n)
	case FieldTransmission:
		form.Transmission = value
	case FieldFuel:
		form.Fuel = value
	case FieldBody:
		form.Body = value
	case FieldDrive:
		form.Drive = value
	}
}

func setNumber(form *FormState, field Field, n float64) {
	switch field {
	case FieldYear:
		form.Year = n
	case FieldMileage:
		form.Mileage = n
	case FieldEngineSize:
		form.EngineSize = n
	case FieldEnginePower:
		form.EnginePower = n
	}
}

func revalidate(s *Snapshot) {
	ds := s.Dataset
	form := &s.Form

	if form.Series != "" && !ds.HasSeries(form.Brand, form.Series) {
		form.Series = ""
		form.Model = ""
	}
	if form.Model != "" && !ds.HasModel(form.Brand, form.Series, form.Model) {
		form.Model = ""
	}

	s.Options.Series = ds.Series(form.Brand)
	if form.Series == "" {
		s.Options.Models = []string{}
		return
	}
	s.Options.Models = ds.Models(form.Brand, form.Series)
}

// ParseNumber coerces numeric input text: surrounding space is ignored and an
// empty value counts as zero. Text that is not a finite number is rejected.
func ParseNumber(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, true
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
