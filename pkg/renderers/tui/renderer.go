package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/model"
	"github.com/goliatone/go-ototahmin/pkg/session"
)

const defaultPageSize = 12

// Controller is the part of a session the terminal flow drives.
type Controller interface {
	Snapshot() cascade.Snapshot
	Change(field cascade.Field, value string) cascade.Snapshot
	Submit(ctx context.Context) (session.Outcome, error)
}

// Renderer walks the form model with terminal prompts, submits the form and
// prints the result.
type Renderer struct {
	ctrl     Controller
	form     model.FormModel
	driver   PromptDriver
	out      io.Writer
	theme    Theme
	pageSize int
	logger   *slog.Logger
}

// New constructs a TUI renderer with defaults (survey driver on stdout).
func New(ctrl Controller, form model.FormModel, options ...Option) (*Renderer, error) {
	if ctrl == nil {
		return nil, errors.New("tui: controller is required")
	}
	if len(form.Fields) == 0 {
		return nil, errors.New("tui: form has no fields")
	}

	r := &Renderer{
		ctrl:     ctrl,
		form:     form,
		pageSize: defaultPageSize,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = newSurveyDriver(r.out)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// Run prompts every field once, submits, and then offers to edit a field,
// predict again or quit until the user quits. Ctrl+C yields ErrAborted.
func (r *Renderer) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("tui: context is required")
	}
	texts := r.form.Texts

	if err := r.info(ctx, r.theme.InfoPrefix+texts.Title); err != nil {
		return err
	}
	if err := r.Fill(ctx); err != nil {
		return err
	}
	if err := r.submit(ctx); err != nil {
		return err
	}

	menu := []string{texts.EditField, texts.Again, texts.Quit}
	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:  texts.Choose,
			Options:  menu,
			PageSize: r.pageSize,
		})
		if err != nil {
			return err
		}
		switch idx {
		case 0:
			if err := r.editField(ctx); err != nil {
				return err
			}
		case 1:
			if err := r.submit(ctx); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// Fill prompts every field once without submitting.
func (r *Renderer) Fill(ctx context.Context) error {
	for _, field := range r.form.Fields {
		if err := r.promptField(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) submit(ctx context.Context) error {
	if err := r.info(ctx, r.theme.InfoPrefix+r.form.Texts.Pending); err != nil {
		return err
	}
	out, err := r.ctrl.Submit(ctx)
	if err != nil {
		if errors.Is(err, session.ErrPredictionInFlight) {
			return r.info(ctx, r.theme.ErrorPrefix+r.form.Texts.Pending)
		}
		return err
	}
	if out.Err != nil {
		r.logger.Debug("prediction failed", "error", out.Err)
	}
	return r.info(ctx, r.theme.ResultPrefix+out.Display)
}

func (r *Renderer) editField(ctx context.Context) error {
	snap := r.ctrl.Snapshot()

	var (
		labels []string
		fields []model.Field
	)
	for _, field := range r.form.Fields {
		if !r.visible(field, snap) {
			continue
		}
		labels = append(labels, fmt.Sprintf("%s: %s", field.Label, r.displayValue(field, snap.Form)))
		fields = append(fields, field)
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:  r.form.Texts.EditField,
		Options:  labels,
		PageSize: r.pageSize,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(fields) {
		return nil
	}

	chosen := fields[idx]
	if err := r.promptField(ctx, chosen); err != nil {
		return err
	}
	// Upstream edits clear the dependent fields, ask for them again.
	for _, field := range r.dependents(chosen.Name) {
		if err := r.promptField(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) dependents(name cascade.Field) []model.Field {
	var out []model.Field
	parent := name
	for {
		next, ok := r.childOf(parent)
		if !ok {
			return out
		}
		out = append(out, next)
		parent = next.Name
	}
}

func (r *Renderer) childOf(name cascade.Field) (model.Field, bool) {
	for _, field := range r.form.Fields {
		if field.Kind == model.KindCascade && field.Dependent == name {
			return field, true
		}
	}
	return model.Field{}, false
}

func (r *Renderer) visible(field model.Field, snap cascade.Snapshot) bool {
	switch field.Name {
	case cascade.FieldSeries:
		return snap.ShowSeries()
	case cascade.FieldModel:
		return snap.ShowModels()
	default:
		return true
	}
}

func (r *Renderer) promptField(ctx context.Context, field model.Field) error {
	switch field.Kind {
	case model.KindCascade:
		return r.promptCascade(ctx, field)
	case model.KindNumber:
		return r.promptNumber(ctx, field)
	default:
		return r.promptSelect(ctx, field)
	}
}

func (r *Renderer) promptCascade(ctx context.Context, field model.Field) error {
	snap := r.ctrl.Snapshot()

	var options []string
	switch field.Name {
	case cascade.FieldBrand:
		options = snap.Brands()
	case cascade.FieldSeries:
		options = snap.Options.Series
	case cascade.FieldModel:
		options = snap.Options.Models
	}

	if len(options) == 0 {
		if field.Name != cascade.FieldBrand {
			return nil
		}
		// Without a catalog the brand can still be typed.
		input, err := r.driver.Input(ctx, InputConfig{
			Message: field.Label,
			Default: snap.Form.Brand,
		})
		if err != nil {
			return err
		}
		r.ctrl.Change(field.Name, input)
		return nil
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      field.Label,
		Options:      options,
		DefaultIndex: indexOf(options, snap.Form.Value(field.Name)),
		PageSize:     r.pageSize,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(options) {
		return nil
	}
	r.ctrl.Change(field.Name, options[idx])
	return nil
}

func (r *Renderer) promptSelect(ctx context.Context, field model.Field) error {
	if len(field.Options) == 0 {
		return nil
	}
	current := r.ctrl.Snapshot().Form.Value(field.Name)

	labels := make([]string, len(field.Options))
	defaultIdx := -1
	for i, opt := range field.Options {
		labels[i] = opt.Label
		if opt.Value == current {
			defaultIdx = i
		}
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      field.Label,
		Options:      labels,
		DefaultIndex: defaultIdx,
		PageSize:     r.pageSize,
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(field.Options) {
		return nil
	}
	r.ctrl.Change(field.Name, field.Options[idx].Value)
	return nil
}

func (r *Renderer) promptNumber(ctx context.Context, field model.Field) error {
	current := r.ctrl.Snapshot().Form.Value(field.Name)
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message: field.Label,
			Default: current,
		})
		if err != nil {
			return err
		}
		if _, ok := cascade.ParseNumber(input); !ok {
			if err := r.info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, field.Label, r.form.Texts.Invalid)); err != nil {
				return err
			}
			continue
		}
		r.ctrl.Change(field.Name, input)
		return nil
	}
}

func (r *Renderer) displayValue(field model.Field, form cascade.FormState) string {
	value := form.Value(field.Name)
	if field.Kind == model.KindSelect {
		return field.OptionLabel(value)
	}
	if value == "" {
		return "-"
	}
	return value
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, msg)
}
