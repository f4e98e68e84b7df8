// Package ototahmin assembles a car price prediction session: the embedded
// API contract, the localized form model, the catalog loader, the prediction
// client and the session that ties them together.
package ototahmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-ototahmin/pkg/audit"
	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/model"
	"github.com/goliatone/go-ototahmin/pkg/openapi"
	"github.com/goliatone/go-ototahmin/pkg/predict"
	"github.com/goliatone/go-ototahmin/pkg/session"
)

// FormState aliases cascade.FormState for callers of the top-level package.
type FormState = cascade.FormState

// Snapshot aliases cascade.Snapshot.
type Snapshot = cascade.Snapshot

// Outcome aliases session.Outcome.
type Outcome = session.Outcome

// Option configures New.
type Option func(*options)

type options struct {
	contract       *openapi.Contract
	serviceURL     string
	catalogSource  catalog.Source
	catalogLoader  catalog.Loader
	predictURL     string
	predictor      predict.Predictor
	locale         string
	vocabulary     string
	reloadPolicy   cascade.ReloadPolicy
	requestTimeout time.Duration
	suffix         *string
	publisher      audit.Publisher
	httpClient     *http.Client
	decorators     []model.Decorator
	logger         *slog.Logger
}

// WithContract uses a pre-loaded contract instead of the embedded one.
func WithContract(contract *openapi.Contract) Option {
	return func(o *options) { o.contract = contract }
}

// WithServiceURL sets the backend root; the reference data and prediction
// paths are taken from the contract.
func WithServiceURL(raw string) Option {
	return func(o *options) { o.serviceURL = strings.TrimRight(strings.TrimSpace(raw), "/") }
}

// WithCatalogSource overrides where reference data is read from.
func WithCatalogSource(src catalog.Source) Option {
	return func(o *options) { o.catalogSource = src }
}

// WithCatalogLoader replaces the default catalog loader.
func WithCatalogLoader(loader catalog.Loader) Option {
	return func(o *options) { o.catalogLoader = loader }
}

// WithPredictURL overrides the prediction endpoint.
func WithPredictURL(raw string) Option {
	return func(o *options) { o.predictURL = strings.TrimSpace(raw) }
}

// WithPredictor replaces the HTTP prediction client.
func WithPredictor(p predict.Predictor) Option {
	return func(o *options) { o.predictor = p }
}

// WithLocale selects labels, texts and number formatting.
func WithLocale(locale string) Option {
	return func(o *options) { o.locale = locale }
}

// WithVocabulary selects the request vocabulary by name ("english" or
// "turkish").
func WithVocabulary(name string) Option {
	return func(o *options) { o.vocabulary = name }
}

// WithReloadPolicy chooses how selections survive a catalog reload.
func WithReloadPolicy(policy cascade.ReloadPolicy) Option {
	return func(o *options) { o.reloadPolicy = policy }
}

// WithRequestTimeout caps each catalog fetch and prediction call. Zero
// disables the timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *options) { o.requestTimeout = timeout }
}

// WithCurrencySuffix replaces the " TL" suffix of formatted prices.
func WithCurrencySuffix(suffix string) Option {
	return func(o *options) { o.suffix = &suffix }
}

// WithPublisher sends every outcome to p.
func WithPublisher(p audit.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithHTTPClient is used for both catalog and prediction requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithDecorators adjusts the form model after it is built.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *options) { o.decorators = append(o.decorators, decorators...) }
}

// WithLogger sets the logger handed to the session.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// App is an assembled session with the contract and form model it was built
// from.
type App struct {
	Contract *openapi.Contract
	Form     model.FormModel
	Session  *session.Session
}

// New builds an App. The catalog is not fetched; call Start.
func New(ctx context.Context, opts ...Option) (*App, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	contract := o.contract
	if contract == nil {
		loaded, err := openapi.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("ototahmin: %w", err)
		}
		contract = loaded
	}

	form, err := model.NewBuilder(
		model.WithLocale(o.locale),
		model.WithDecorators(o.decorators...),
	).Build(contract)
	if err != nil {
		return nil, fmt.Errorf("ototahmin: %w", err)
	}

	source, err := o.resolveCatalogSource(contract)
	if err != nil {
		return nil, err
	}
	loader := o.catalogLoader
	if loader == nil {
		loader = NewCatalogLoader(o.loaderOptions()...)
	}

	predictor, err := o.resolvePredictor(contract)
	if err != nil {
		return nil, err
	}

	var formatOpts []predict.FormatOption
	if o.suffix != nil {
		formatOpts = append(formatOpts, predict.WithSuffix(*o.suffix))
	}

	sessOpts := []session.Option{
		session.WithFormatter(predict.NewFormatter(form.Locale, formatOpts...)),
		session.WithLogger(o.logger),
	}
	if o.publisher != nil {
		sessOpts = append(sessOpts, session.WithPublisher(o.publisher))
	}

	machine := cascade.NewMachine(cascade.WithReloadPolicy(o.reloadPolicy))
	return &App{
		Contract: contract,
		Form:     form,
		Session:  session.New(machine, loader, source, predictor, sessOpts...),
	}, nil
}

// Start performs the one-shot catalog load. Failures are logged by the
// session and returned for information only; the form stays usable.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.Session == nil {
		return errors.New("ototahmin: app is not initialised")
	}
	return a.Session.LoadCatalog(ctx)
}

func (o options) resolveCatalogSource(contract *openapi.Contract) (catalog.Source, error) {
	if o.catalogSource != nil {
		return o.catalogSource, nil
	}
	if o.serviceURL == "" {
		// Without a source the session starts with an empty dataset.
		return nil, nil
	}
	ep, ok := contract.Endpoint(openapi.OperationReferenceData)
	if !ok {
		return nil, errors.New("ototahmin: contract has no reference data operation")
	}
	return catalog.ParseSource(o.serviceURL + ep.Path)
}

func (o options) resolvePredictor(contract *openapi.Contract) (predict.Predictor, error) {
	if o.predictor != nil {
		return o.predictor, nil
	}

	endpoint := o.predictURL
	if endpoint == "" && o.serviceURL != "" {
		ep, ok := contract.Endpoint(openapi.OperationPredict)
		if !ok {
			return nil, errors.New("ototahmin: contract has no prediction operation")
		}
		endpoint = o.serviceURL + ep.Path
	}
	if endpoint == "" {
		return nil, nil
	}

	vocab, err := predict.ParseVocabulary(o.vocabulary, contract)
	if err != nil {
		return nil, fmt.Errorf("ototahmin: %w", err)
	}
	clientOpts := []predict.Option{
		predict.WithContract(contract),
		predict.WithVocabulary(vocab),
		predict.WithRequestTimeout(o.requestTimeout),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, predict.WithHTTPClient(o.httpClient))
	}
	client, err := predict.NewClient(endpoint, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("ototahmin: %w", err)
	}
	return client, nil
}

func (o options) loaderOptions() []catalog.LoaderOption {
	if o.httpClient != nil {
		return []catalog.LoaderOption{
			catalog.WithHTTPClient(o.httpClient),
			catalog.WithRequestTimeout(o.requestTimeout),
		}
	}
	return []catalog.LoaderOption{catalog.WithHTTPFallback(o.requestTimeout)}
}
