package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	theme "github.com/goliatone/go-theme"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/mid"
	"github.com/goliatone/go-ototahmin/pkg/model"
	rendertemplate "github.com/goliatone/go-ototahmin/pkg/render/template"
	gotemplate "github.com/goliatone/go-ototahmin/pkg/render/template/gotemplate"
	"github.com/goliatone/go-ototahmin/pkg/session"
)

const (
	pageTemplate = "templates/page"
	maxBodyBytes = 64 << 10
)

// Controller is the part of a session the web handlers drive.
type Controller interface {
	Snapshot() cascade.Snapshot
	Change(field cascade.Field, value string) cascade.Snapshot
	Submit(ctx context.Context) (session.Outcome, error)
	InFlight() bool
	Result() (session.Outcome, bool)
}

// Renderer serves the form as a server-rendered page plus a small JSON API.
// All requests share one controller.
type Renderer struct {
	ctrl      Controller
	form      model.FormModel
	templates rendertemplate.TemplateRenderer
	theme     *theme.RendererConfig
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New constructs the web renderer applying any provided options.
func New(ctrl Controller, form model.FormModel, options ...Option) (*Renderer, error) {
	if ctrl == nil {
		return nil, errors.New("web renderer: controller is required")
	}
	if len(form.Fields) == 0 {
		return nil, errors.New("web renderer: form has no fields")
	}

	cfg := config{
		templateFS: TemplatesFS(),
		themeName:  DefaultThemeName,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	templates := cfg.templateRenderer
	if templates == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithFilters(pageFilters()),
		)
		if err != nil {
			return nil, fmt.Errorf("web renderer: configure template renderer: %w", err)
		}
		templates = engine
	}
	if err := templates.GlobalContext(pageGlobals()); err != nil {
		return nil, fmt.Errorf("web renderer: template globals: %w", err)
	}

	themeCfg, err := resolveTheme(cfg.selector, cfg.themeName, cfg.themeVariant, cfg.themeTokens)
	if err != nil {
		return nil, fmt.Errorf("web renderer: %w", err)
	}

	return &Renderer{
		ctrl:      ctrl,
		form:      form,
		templates: templates,
		theme:     themeCfg,
		limiter:   cfg.limiter,
		logger:    cfg.logger,
	}, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "web"
}

// ContentType is the media type of Render output.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the page for the current snapshot.
func (r *Renderer) Render(_ context.Context) ([]byte, error) {
	view := pageView{
		Locale:  r.form.Locale,
		Theme:   r.theme.Theme,
		Variant: r.theme.Variant,
		Texts:   r.form.Texts,
		Fields:  buildFields(r.form, r.ctrl.Snapshot()),
		Pending: r.ctrl.InFlight(),
	}
	if out, ok := r.ctrl.Result(); ok {
		view.Result = out.Display
		view.Failed = out.Failed()
	}

	var buf bytes.Buffer
	if _, err := r.templates.RenderTemplate(pageTemplate, view, &buf); err != nil {
		return nil, fmt.Errorf("web renderer: render template: %w", err)
	}
	return buf.Bytes(), nil
}

// Stylesheet returns the theme variables and base styles served at
// /theme.css.
func (r *Renderer) Stylesheet() string {
	return stylesheet(r.theme)
}

// Handler returns the routes of the web UI.
func (r *Renderer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", r.handlePage)
	mux.HandleFunc("POST /change", r.handleChangeForm)
	mux.HandleFunc("POST /predict", r.handlePredictForm)
	mux.HandleFunc("GET /api/state", r.handleState)
	mux.HandleFunc("POST /api/change", r.handleChange)
	mux.HandleFunc("POST /api/predict", r.handlePredict)
	mux.HandleFunc("GET /theme.css", r.handleTheme)
	mux.HandleFunc("GET /healthz", handleHealth)
	return mux
}

func (r *Renderer) handlePage(w http.ResponseWriter, req *http.Request) {
	page, err := r.Render(req.Context())
	if err != nil {
		r.logger.Error("render page failed", "error", err, "request_id", mid.RequestIDFrom(req.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", r.ContentType())
	w.Write(page)
}

func (r *Renderer) handleTheme(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write([]byte(r.Stylesheet()))
}

// handleChangeForm applies the posted fields and redirects back to the page.
func (r *Renderer) handleChangeForm(w http.ResponseWriter, req *http.Request) {
	if err := r.parseForm(w, req); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	r.applyValues(req.PostForm)
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

func (r *Renderer) handlePredictForm(w http.ResponseWriter, req *http.Request) {
	if err := r.parseForm(w, req); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	r.applyValues(req.PostForm)

	if !r.ctrl.InFlight() {
		if !r.allow() {
			http.Error(w, "too many predictions", http.StatusTooManyRequests)
			return
		}
		if _, err := r.ctrl.Submit(r.sessionContext(req)); err != nil && !errors.Is(err, session.ErrPredictionInFlight) {
			r.logger.Error("submit failed", "error", err)
		}
	}
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

func (r *Renderer) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildState(r.form, r.ctrl))
}

type changeRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func (r *Renderer) handleChange(w http.ResponseWriter, req *http.Request) {
	var body changeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	field, ok := cascade.ParseField(strings.TrimSpace(body.Field))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown field %q", body.Field))
		return
	}
	value, err := rawValue(body.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "value must be a string or a number")
		return
	}

	r.ctrl.Change(field, value)
	writeJSON(w, http.StatusOK, buildState(r.form, r.ctrl))
}

func (r *Renderer) handlePredict(w http.ResponseWriter, req *http.Request) {
	if r.ctrl.InFlight() {
		writeError(w, http.StatusConflict, session.ErrPredictionInFlight.Error())
		return
	}
	if !r.allow() {
		writeError(w, http.StatusTooManyRequests, "too many predictions")
		return
	}

	out, err := r.ctrl.Submit(r.sessionContext(req))
	switch {
	case errors.Is(err, session.ErrPredictionInFlight):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		r.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, newResultView(out))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Renderer) parseForm(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	return req.ParseForm()
}

// applyValues applies a posted form. The browser always posts every select,
// so a cascade field is applied only when it differs from the session, and
// once one changes the posted values of the fields below it are stale.
func (r *Renderer) applyValues(values url.Values) {
	current := r.ctrl.Snapshot().Form
	cascaded := false
	for _, field := range cascade.Fields() {
		if _, ok := values[string(field)]; !ok {
			continue
		}
		value := values.Get(string(field))
		if field.Cascading() {
			if cascaded || value == current.Value(field) {
				continue
			}
			cascaded = true
		}
		r.ctrl.Change(field, value)
	}
}

func (r *Renderer) allow() bool {
	return r.limiter == nil || r.limiter.Allow()
}

func (r *Renderer) sessionContext(req *http.Request) context.Context {
	return session.WithRequestID(req.Context(), mid.RequestIDFrom(req.Context()))
}

func rawValue(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
