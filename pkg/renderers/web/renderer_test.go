package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/model"
	"github.com/goliatone/go-ototahmin/pkg/predict"
	"github.com/goliatone/go-ototahmin/pkg/session"
	"github.com/goliatone/go-ototahmin/pkg/testsupport"
)

type stubPredictor struct {
	started chan struct{}
	release chan struct{}
	forms   []cascade.FormState
}

func (p *stubPredictor) Predict(ctx context.Context, form cascade.FormState) (predict.Result, error) {
	p.forms = append(p.forms, form)
	if p.started != nil {
		close(p.started)
	}
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return predict.Result{}, ctx.Err()
		}
	}
	return predict.Result{Price: 452000}, nil
}

func testForm(t *testing.T, locale string) model.FormModel {
	return testsupport.MustBuildForm(t, locale)
}

func testSession(t *testing.T, predictor predict.Predictor) *session.Session {
	t.Helper()
	return testSessionWith(t, testsupport.SampleDataset(), predictor)
}

func testSessionWith(t *testing.T, ds catalog.Dataset, predictor predict.Predictor) *session.Session {
	t.Helper()
	loader := testsupport.StaticLoader{Dataset: ds}
	s := session.New(nil, loader, testsupport.FixtureSource(), predictor)
	if err := s.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return s
}

func newRenderer(t *testing.T, ctrl Controller, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(ctrl, testForm(t, model.LocaleTurkish), opts...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func serve(h http.Handler, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateView {
	t.Helper()
	var state stateView
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestPage_RendersInitialForm(t *testing.T) {
	r := newRenderer(t, testSession(t, &stubPredictor{}))
	rec := serve(r.Handler(), http.MethodGet, "/", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<html lang="tr">`,
		"Marka",
		`<option value="Toyota">Toyota</option>`,
		`<option value="Manual" selected>Düz</option>`,
		`name="Year" value="2000"`,
		`<input id="f-engine-size" type="number" name="EngineSize"`,
		`<label class="ot-field" for="f-transmission-type">`,
		`<link rel="stylesheet" href="/theme.css">`,
		`action="/predict"`,
		`formaction="/change"`,
		"Tahmin Et",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page to contain %q\n%s", want, body)
		}
	}
	if strings.Contains(body, `name="Series"`) || strings.Contains(body, `name="Model"`) {
		t.Fatalf("series and model selectors must be hidden without options")
	}
}

func TestChangeForm_CascadesAndRedirects(t *testing.T) {
	sess := testSession(t, &stubPredictor{})
	r := newRenderer(t, sess)
	h := r.Handler()

	form := url.Values{"Brand": {"Toyota"}, "Series": {""}, "Year": {"2015"}}
	rec := serve(h, http.MethodPost, "/change", form.Encode(), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	snap := sess.Snapshot()
	if snap.Form.Brand != "Toyota" || snap.Form.Year != 2015 {
		t.Fatalf("unexpected form %+v", snap.Form)
	}
	if diff := cmp.Diff([]string{"Corolla"}, snap.Options.Series); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}

	page := serve(h, http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, `name="Series"`) || strings.Contains(page, `name="Model"`) {
		t.Fatalf("expected series selector only")
	}

	// A stale series posted with a new brand is dropped.
	form = url.Values{"Brand": {"Tofaş"}, "Series": {"Corolla"}}
	serve(h, http.MethodPost, "/change", form.Encode(), "application/x-www-form-urlencoded")
	if got := sess.Snapshot().Form; got.Brand != "Tofaş" || got.Series != "" {
		t.Fatalf("expected stale series to be cleared, got %+v", got)
	}
}

func TestChangeForm_PostedDependentsAreStaleAfterUpstreamChange(t *testing.T) {
	ds, err := catalog.Parse([]byte(`{
		"VW": {"Golf": ["1.6 TDI", "2.0 TSI"], "Passat": ["1.6 TDI", "2.0 TDI"]},
		"Seat": {"Golf": ["1.0 TSI"]}
	}`))
	if err != nil {
		t.Fatalf("parse dataset: %v", err)
	}
	predictor := &stubPredictor{}
	sess := testSessionWith(t, ds, predictor)
	h := newRenderer(t, sess).Handler()

	post := func(target string, values url.Values) {
		t.Helper()
		rec := serve(h, http.MethodPost, target, values.Encode(), "application/x-www-form-urlencoded")
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected 303, got %d", target, rec.Code)
		}
	}
	selectVWGolf := func() {
		sess.Change(cascade.FieldBrand, "VW")
		sess.Change(cascade.FieldSeries, "Golf")
		sess.Change(cascade.FieldModel, "1.6 TDI")
	}
	form := func() cascade.FormState {
		return sess.Snapshot().Form
	}

	// Passat also has a "1.6 TDI" but the posted model belongs to Golf.
	selectVWGolf()
	post("/change", url.Values{"Brand": {"VW"}, "Series": {"Passat"}, "Model": {"1.6 TDI"}})
	if got := form(); got.Series != "Passat" || got.Model != "" {
		t.Fatalf("series change must clear the model, got %+v", got)
	}

	// Unchanged upstream fields let the model through.
	post("/change", url.Values{"Brand": {"VW"}, "Series": {"Passat"}, "Model": {"2.0 TDI"}})
	if got := form(); got.Series != "Passat" || got.Model != "2.0 TDI" {
		t.Fatalf("expected model to apply, got %+v", got)
	}

	// Seat also has a "Golf" but the posted series belongs to VW.
	selectVWGolf()
	post("/change", url.Values{"Brand": {"Seat"}, "Series": {"Golf"}, "Model": {"1.6 TDI"}})
	got := form()
	if got.Brand != "Seat" || got.Series != "" || got.Model != "" {
		t.Fatalf("brand change must clear series and model, got %+v", got)
	}
	if diff := cmp.Diff([]string{"Golf"}, sess.Snapshot().Options.Series); diff != "" {
		t.Fatalf("series options mismatch (-want +got):\n%s", diff)
	}

	selectVWGolf()
	post("/predict", url.Values{"Brand": {"VW"}, "Series": {"Passat"}, "Model": {"1.6 TDI"}})
	if len(predictor.forms) != 1 {
		t.Fatalf("expected one prediction, got %d", len(predictor.forms))
	}
	if sent := predictor.forms[0]; sent.Series != "Passat" || sent.Model != "" {
		t.Fatalf("stale model was submitted: %+v", sent)
	}
}

func TestAPIChange(t *testing.T) {
	r := newRenderer(t, testSession(t, &stubPredictor{}))
	h := r.Handler()

	rec := serve(h, http.MethodPost, "/api/change", `{"field":"Brand","value":"Toyota"}`, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	state := decodeState(t, rec)
	if diff := cmp.Diff([]string{"Corolla"}, state.Series); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{}, state.Models); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}

	rec = serve(h, http.MethodPost, "/api/change", `{"field":"Series","value":"Corolla"}`, "application/json")
	state = decodeState(t, rec)
	if diff := cmp.Diff([]string{"1.6 CVT", "1.8 Hybrid"}, state.Models); diff != "" {
		t.Fatalf("models mismatch (-want +got):\n%s", diff)
	}

	rec = serve(h, http.MethodPost, "/api/change", `{"field":"Mileage","value":120000}`, "application/json")
	state = decodeState(t, rec)
	if state.Form["Mileage"] != "120000" {
		t.Fatalf("expected numeric value to be applied, got %q", state.Form["Mileage"])
	}
}

func TestAPIChange_Errors(t *testing.T) {
	r := newRenderer(t, testSession(t, &stubPredictor{}))
	h := r.Handler()

	cases := map[string]string{
		"unknown field": `{"field":"Color","value":"red"}`,
		"bad json":      `{"field":`,
		"bool value":    `{"field":"Year","value":true}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(h, http.MethodPost, "/api/change", body, "application/json")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var payload map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil || payload["error"] == "" {
				t.Fatalf("expected JSON error body, got %v %v", payload, err)
			}
		})
	}
}

func TestAPIPredict(t *testing.T) {
	predictor := &stubPredictor{}
	sess := testSession(t, predictor)
	r := newRenderer(t, sess)
	h := r.Handler()

	sess.Change(cascade.FieldBrand, "Toyota")
	rec := serve(h, http.MethodPost, "/api/predict", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res resultView
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Display != "452.000 TL" || res.Price != 452000 || res.Failed {
		t.Fatalf("unexpected result %+v", res)
	}
	if predictor.forms[0].Brand != "Toyota" {
		t.Fatalf("unexpected submitted form %+v", predictor.forms[0])
	}

	state := decodeState(t, serve(h, http.MethodGet, "/api/state", "", ""))
	if state.Result == nil || state.Result.Display != "452.000 TL" || state.Pending {
		t.Fatalf("unexpected state result %+v", state.Result)
	}

	page := serve(h, http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, `<output class="ot-result">452.000 TL</output>`) {
		t.Fatalf("expected result on page\n%s", page)
	}
}

func TestAPIPredict_ConflictWhileInFlight(t *testing.T) {
	predictor := &stubPredictor{started: make(chan struct{}), release: make(chan struct{})}
	sess := testSession(t, predictor)
	r := newRenderer(t, sess)
	h := r.Handler()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- serve(h, http.MethodPost, "/api/predict", "", "")
	}()

	select {
	case <-predictor.started:
	case <-time.After(2 * time.Second):
		t.Fatal("prediction did not start")
	}

	rec := serve(h, http.MethodPost, "/api/predict", "", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	page := serve(h, http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, `class="ot-submit" disabled`) || !strings.Contains(page, "Tahmin ediliyor...") {
		t.Fatalf("expected disabled submit button while pending\n%s", page)
	}

	close(predictor.release)
	select {
	case first := <-done:
		if first.Code != http.StatusOK {
			t.Fatalf("expected first prediction to succeed, got %d", first.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first prediction did not finish")
	}
	if len(predictor.forms) != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", len(predictor.forms))
	}
}

func TestAPIPredict_RateLimited(t *testing.T) {
	r := newRenderer(t, testSession(t, &stubPredictor{}), WithRateLimit(rate.Every(time.Hour), 1))
	h := r.Handler()

	if rec := serve(h, http.MethodPost, "/api/predict", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected first call to pass, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodPost, "/api/predict", "", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	form := url.Values{"Year": {"2010"}}
	if rec := serve(h, http.MethodPost, "/predict", form.Encode(), "application/x-www-form-urlencoded"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for page submit, got %d", rec.Code)
	}
}

func TestPredictForm(t *testing.T) {
	predictor := &stubPredictor{}
	sess := testSession(t, predictor)
	r := newRenderer(t, sess)
	sess.Change(cascade.FieldBrand, "Toyota")
	sess.Change(cascade.FieldSeries, "Corolla")

	form := url.Values{
		"Brand":    {"Toyota"},
		"Series":   {"Corolla"},
		"Model":    {"1.8 Hybrid"},
		"FuelType": {"Hybrid"},
	}
	rec := serve(r.Handler(), http.MethodPost, "/predict", form.Encode(), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if len(predictor.forms) != 1 {
		t.Fatalf("expected one prediction, got %d", len(predictor.forms))
	}
	got := predictor.forms[0]
	if got.Model != "1.8 Hybrid" || got.Fuel != "Hybrid" {
		t.Fatalf("unexpected submitted form %+v", got)
	}
	if out, ok := sess.Result(); !ok || out.Display != "452.000 TL" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestPage_BrandInputWithoutCatalog(t *testing.T) {
	sess := session.New(nil, nil, nil, &stubPredictor{})
	r := newRenderer(t, sess)
	page := serve(r.Handler(), http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, `type="text" name="Brand"`) {
		t.Fatalf("expected free text brand input\n%s", page)
	}
}

func TestThemeStylesheet(t *testing.T) {
	r := newRenderer(t, testSession(t, &stubPredictor{}),
		WithTheme(DefaultThemeName, "dark"),
		WithThemeTokens(map[string]string{"color-accent": "#0055aa; }"}),
	)
	rec := serve(r.Handler(), http.MethodGet, "/theme.css", "", "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("unexpected content type %q", ct)
	}
	css := rec.Body.String()
	for _, want := range []string{
		"--color-bg: #111418;",
		"--color-accent: #0055aa;",
		"--radius: 6px;",
		".ot-page",
	} {
		if !strings.Contains(css, want) {
			t.Fatalf("expected stylesheet to contain %q\n%s", want, css)
		}
	}

	page := serve(r.Handler(), http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, `data-variant="dark"`) {
		t.Fatalf("expected variant on body")
	}
}

type stubSelector struct {
	selection *theme.Selection
	err       error
	calls     []string
}

func (s *stubSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, name+"/"+variant)
	return s.selection, s.err
}

func TestThemeSelector(t *testing.T) {
	selector := &stubSelector{selection: &theme.Selection{
		Theme:   "acme",
		Variant: "",
		Manifest: &theme.Manifest{
			Name:    "acme",
			Version: "1.0.0",
			Tokens:  map[string]string{"brand": "#123456"},
		},
	}}
	r := newRenderer(t, testSession(t, &stubPredictor{}), WithThemeSelector(selector), WithTheme("acme", ""))
	if diff := cmp.Diff([]string{"acme/"}, selector.calls); diff != "" {
		t.Fatalf("selector calls mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(r.Stylesheet(), "--brand: #123456;") {
		t.Fatalf("css vars not derived from tokens:\n%s", r.Stylesheet())
	}

	failing := &stubSelector{err: errors.New("unknown theme")}
	if _, err := New(testSession(t, nil), testForm(t, ""), WithThemeSelector(failing)); err == nil {
		t.Fatal("expected selector error")
	}
}

type stubTemplates struct {
	globals   any
	globalErr error
	name      string
}

func (s *stubTemplates) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	s.name = name
	for _, w := range out {
		io.WriteString(w, "<p>stub</p>")
	}
	return "<p>stub</p>", nil
}

func (s *stubTemplates) GlobalContext(data any) error {
	s.globals = data
	return s.globalErr
}

func TestTemplateRenderer_Custom(t *testing.T) {
	stub := &stubTemplates{}
	r := newRenderer(t, testSession(t, &stubPredictor{}), WithTemplateRenderer(stub))
	if diff := cmp.Diff(pageGlobals(), stub.globals); diff != "" {
		t.Fatalf("globals mismatch (-want +got):\n%s", diff)
	}

	rec := serve(r.Handler(), http.MethodGet, "/", "", "")
	if rec.Body.String() != "<p>stub</p>" || stub.name != pageTemplate {
		t.Fatalf("unexpected render %q of %q", rec.Body.String(), stub.name)
	}

	failing := &stubTemplates{globalErr: errors.New("boom")}
	if _, err := New(testSession(t, &stubPredictor{}), testForm(t, model.LocaleTurkish), WithTemplateRenderer(failing)); err == nil {
		t.Fatalf("expected globals error")
	}
}

func TestFilterFieldID(t *testing.T) {
	cases := map[string]string{
		"Year":             "f-year",
		"EngineSize":       "f-engine-size",
		"TransmissionType": "f-transmission-type",
		" body type ":      "f-body-type",
		"ABS2":             "f-abs2",
	}
	for in, want := range cases {
		got, perr := filterFieldID(pongo2.AsValue(in), nil)
		if perr != nil {
			t.Fatalf("%q: %v", in, perr)
		}
		if got.String() != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got.String())
		}
	}
}

func TestHealthz(t *testing.T) {
	r := newRenderer(t, testSession(t, &stubPredictor{}))
	rec := serve(r.Handler(), http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, model.FormModel{}); err == nil {
		t.Fatal("expected controller error")
	}
	if _, err := New(testSession(t, nil), model.FormModel{}); err == nil {
		t.Fatal("expected empty form error")
	}
	r := newRenderer(t, testSession(t, nil))
	if r.Name() != "web" || r.ContentType() != "text/html; charset=utf-8" {
		t.Fatalf("unexpected renderer identity")
	}
}

func TestEnglishLocale(t *testing.T) {
	r, err := New(testSession(t, &stubPredictor{}), testForm(t, model.LocaleEnglish))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	page := serve(r.Handler(), http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, `<html lang="en">`) || !strings.Contains(page, ">Predict</button>") {
		t.Fatalf("expected english page\n%s", page)
	}
}
