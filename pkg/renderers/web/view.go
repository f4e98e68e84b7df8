package web

import (
	"strings"
	"time"
	"unicode"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/model"
	"github.com/goliatone/go-ototahmin/pkg/session"
)

type optionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type fieldView struct {
	Name    string       `json:"name"`
	Label   string       `json:"label"`
	Kind    string       `json:"kind"`
	Value   string       `json:"value"`
	Input   string       `json:"input,omitempty"`
	Hidden  bool         `json:"hidden"`
	Options []optionView `json:"options"`
}

type pageView struct {
	Locale  string      `json:"locale"`
	Theme   string      `json:"theme"`
	Variant string      `json:"variant"`
	Texts   model.Texts `json:"texts"`
	Fields  []fieldView `json:"fields"`
	Pending bool        `json:"pending"`
	Result  string      `json:"result"`
	Failed  bool        `json:"failed"`
}

func buildFields(form model.FormModel, snap cascade.Snapshot) []fieldView {
	out := make([]fieldView, 0, len(form.Fields))
	for _, field := range form.Fields {
		value := snap.Form.Value(field.Name)
		view := fieldView{
			Name:    string(field.Name),
			Label:   field.Label,
			Kind:    string(field.Kind),
			Value:   value,
			Options: []optionView{},
		}

		switch field.Kind {
		case model.KindNumber:
			view.Input = "number"
		case model.KindCascade:
			options := cascadeOptions(field.Name, snap)
			switch {
			case len(options) > 0:
				for _, opt := range options {
					view.Options = append(view.Options, optionView{Value: opt, Label: opt, Selected: opt == value})
				}
			case field.Name == cascade.FieldBrand:
				// Without a catalog the brand can still be typed.
				view.Input = "text"
			default:
				view.Hidden = true
			}
		default:
			for _, opt := range field.Options {
				view.Options = append(view.Options, optionView{Value: opt.Value, Label: opt.Label, Selected: opt.Value == value})
			}
		}
		out = append(out, view)
	}
	return out
}

func cascadeOptions(name cascade.Field, snap cascade.Snapshot) []string {
	switch name {
	case cascade.FieldBrand:
		return snap.Brands()
	case cascade.FieldSeries:
		return snap.Options.Series
	case cascade.FieldModel:
		return snap.Options.Models
	default:
		return nil
	}
}

type resultView struct {
	Display string  `json:"display"`
	Price   float64 `json:"price,omitempty"`
	Failed  bool    `json:"failed"`
	At      string  `json:"at,omitempty"`
}

func newResultView(out session.Outcome) *resultView {
	view := &resultView{
		Display: out.Display,
		Price:   out.Price,
		Failed:  out.Failed(),
	}
	if !out.At.IsZero() {
		view.At = out.At.UTC().Format(time.RFC3339)
	}
	return view
}

type stateView struct {
	Form    map[string]string `json:"form"`
	Brands  []string          `json:"brands"`
	Series  []string          `json:"series"`
	Models  []string          `json:"models"`
	Fields  []fieldView       `json:"fields"`
	Pending bool              `json:"pending"`
	Result  *resultView       `json:"result,omitempty"`
}

func buildState(form model.FormModel, ctrl Controller) stateView {
	snap := ctrl.Snapshot()
	values := make(map[string]string, len(cascade.Fields()))
	for _, field := range cascade.Fields() {
		values[string(field)] = snap.Form.Value(field)
	}

	state := stateView{
		Form:    values,
		Brands:  nonNil(snap.Brands()),
		Series:  nonNil(snap.Options.Series),
		Models:  nonNil(snap.Options.Models),
		Fields:  buildFields(form, snap),
		Pending: ctrl.InFlight(),
	}
	if out, ok := ctrl.Result(); ok {
		state.Result = newResultView(out)
	}
	return state
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// pageGlobals are the routes the page links to.
func pageGlobals() map[string]any {
	return map[string]any{
		"routes": map[string]string{
			"change":     "/change",
			"predict":    "/predict",
			"stylesheet": "/theme.css",
		},
	}
}

func pageFilters() map[string]pongo2.FilterFunction {
	return map[string]pongo2.FilterFunction{"ot_field_id": filterFieldID}
}

// filterFieldID turns a field name such as "EngineSize" into the element
// id "f-engine-size".
func filterFieldID(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	var b strings.Builder
	b.WriteString("f")
	prev := '-'
	for _, r := range strings.TrimSpace(in.String()) {
		switch {
		case unicode.IsUpper(r):
			if !unicode.IsUpper(prev) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if prev == '-' {
				b.WriteByte('-')
			}
			b.WriteRune(r)
		default:
			r = '-'
		}
		prev = r
	}
	return pongo2.AsValue(b.String()), nil
}
