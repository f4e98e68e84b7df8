package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/model"
	"github.com/goliatone/go-ototahmin/pkg/predict"
	"github.com/goliatone/go-ototahmin/pkg/session"
	"github.com/goliatone/go-ototahmin/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	selectErr    error
	infoMessages []string
	selectOpts   [][]string
	inputPos     int
	selectPos    int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectErr != nil {
		return -1, s.selectErr
	}
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	s.selectOpts = append(s.selectOpts, cfg.Options)
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type stubPredictor struct {
	forms []cascade.FormState
}

func (p *stubPredictor) Predict(_ context.Context, form cascade.FormState) (predict.Result, error) {
	p.forms = append(p.forms, form)
	return predict.Result{Price: 452000}, nil
}

func testForm(t *testing.T) model.FormModel {
	return testsupport.MustBuildForm(t, model.LocaleTurkish)
}

func testSession(t *testing.T, ds catalog.Dataset, predictor predict.Predictor) *session.Session {
	t.Helper()
	s := session.New(nil, testsupport.StaticLoader{Dataset: ds}, testsupport.FixtureSource(), predictor)
	if err := s.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return s
}

func TestRun_FullForm(t *testing.T) {
	predictor := &stubPredictor{}
	sess := testSession(t, testsupport.SampleDataset(), predictor)
	driver := &stubDriver{
		selectIdx: []int{0, 0, 1, 2, 1, 0, 0, 2},
		inputs:    []string{"2015", "abc", "120000", "1598", "132"},
	}
	r, err := New(sess, testForm(t), WithPromptDriver(driver), WithTheme(Theme{ResultPrefix: "=> "}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(predictor.forms) != 1 {
		t.Fatalf("expected one prediction, got %d", len(predictor.forms))
	}
	want := cascade.FormState{
		Brand:        "Toyota",
		Series:       "Corolla",
		Model:        "1.8 Hybrid",
		Year:         2015,
		Mileage:      120000,
		EngineSize:   1598,
		EnginePower:  132,
		Transmission: "Automatic",
		Fuel:         "Diesel",
		Body:         "Sedan",
		Drive:        "Front-Wheel",
	}
	if diff := cmp.Diff(want, predictor.forms[0]); diff != "" {
		t.Fatalf("submitted form mismatch (-want +got):\n%s", diff)
	}

	joined := strings.Join(driver.infoMessages, "\n")
	if !strings.Contains(joined, "=> 452.000 TL") {
		t.Fatalf("expected formatted result, got %q", joined)
	}
	if !strings.Contains(joined, "Kilometre: Geçerli bir sayı girin") {
		t.Fatalf("expected validation message, got %q", joined)
	}
	if diff := cmp.Diff([]string{"Düz", "Yarı Otomatik", "Otomatik"}, driver.selectOpts[3]); diff != "" {
		t.Fatalf("transmission options mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_SkipsEmptyDependentPrompts(t *testing.T) {
	predictor := &stubPredictor{}
	sess := testSession(t, testsupport.SampleDataset(), predictor)
	driver := &stubDriver{
		// brand, transmission, fuel, body, drive, quit
		selectIdx: []int{1, 0, 0, 0, 0, 2},
		inputs:    []string{"", "", "", ""},
	}
	r, err := New(sess, testForm(t), WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if driver.selectPos != 6 {
		t.Fatalf("expected series and model prompts to be skipped, %d selects consumed", driver.selectPos)
	}
	got := predictor.forms[0]
	if got.Brand != "Tofaş" || got.Series != "" || got.Model != "" || got.Year != 0 {
		t.Fatalf("unexpected submitted form %+v", got)
	}
}

func TestRun_EditBrandReasksDependents(t *testing.T) {
	predictor := &stubPredictor{}
	sess := testSession(t, testsupport.SampleDataset(), predictor)
	driver := &stubDriver{
		selectIdx: []int{
			0, 0, 0, 0, 0, 0, 0, // first pass
			0,       // menu: edit
			0,       // field: brand
			0, 0, 1, // brand, series, model
			1, // menu: predict again
			2, // menu: quit
		},
		inputs: []string{"2000", "0", "0", "0"},
	}
	r, err := New(sess, testForm(t), WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(predictor.forms) != 2 {
		t.Fatalf("expected two predictions, got %d", len(predictor.forms))
	}
	if predictor.forms[0].Model != "1.6 CVT" || predictor.forms[1].Model != "1.8 Hybrid" {
		t.Fatalf("unexpected models %q then %q", predictor.forms[0].Model, predictor.forms[1].Model)
	}

	editMenu := driver.selectOpts[8]
	if !strings.HasPrefix(editMenu[0], "Marka: Toyota") || !strings.HasPrefix(editMenu[len(editMenu)-1], "Çekiş: Önden Çekiş") {
		t.Fatalf("unexpected edit menu %v", editMenu)
	}
}

func TestRun_BrandInputWithoutCatalog(t *testing.T) {
	predictor := &stubPredictor{}
	sess := session.New(nil, nil, nil, predictor)
	driver := &stubDriver{
		selectIdx: []int{0, 0, 0, 0, 2},
		inputs:    []string{"Lada", "1990", "1", "1", "1"},
	}
	r, err := New(sess, testForm(t), WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if predictor.forms[0].Brand != "Lada" {
		t.Fatalf("expected typed brand, got %+v", predictor.forms[0])
	}
}

func TestRun_Aborted(t *testing.T) {
	sess := testSession(t, testsupport.SampleDataset(), &stubPredictor{})
	driver := &stubDriver{selectErr: ErrAborted}
	r, err := New(sess, testForm(t), WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if err := r.Run(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, model.FormModel{}); err == nil {
		t.Fatalf("expected error without controller")
	}
	sess := session.New(nil, nil, nil, nil)
	if _, err := New(sess, model.FormModel{}); err == nil {
		t.Fatalf("expected error without fields")
	}
	r, err := New(sess, testForm(t))
	if err != nil || r.Name() != "tui" {
		t.Fatalf("unexpected renderer %v, %v", r, err)
	}
}
