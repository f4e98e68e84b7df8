package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/openapi"
)

var (
	// ErrNoPrediction reports a response without a numeric prediction.
	ErrNoPrediction = errors.New("predict: response has no prediction")
	// ErrInvalidRequest reports a form the contract does not accept.
	ErrInvalidRequest = errors.New("predict: invalid request")
)

// StatusError reports a non-2xx reply from the prediction service.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "predict: unexpected status " + e.Status
}

// Predictor returns a price estimate for a form.
type Predictor interface {
	Predict(ctx context.Context, form cascade.FormState) (Result, error)
}

// Options configures a Client.
type Options struct {
	HTTPClient     *http.Client
	Contract       *openapi.Contract
	Vocabulary     Vocabulary
	RequestTimeout time.Duration
	// Field overrides the response property read as the prediction. Empty
	// means the contract's field, or "tahmin" without a contract.
	Field string
}

// Option mutates Options prior to construction.
type Option func(*Options)

// WithHTTPClient injects the client used for prediction requests.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithContract validates outgoing requests against contract and reads the
// prediction field from it.
func WithContract(contract *openapi.Contract) Option {
	return func(opts *Options) {
		opts.Contract = contract
	}
}

// WithVocabulary selects the key and value spelling sent to the backend.
func WithVocabulary(v Vocabulary) Option {
	return func(opts *Options) {
		opts.Vocabulary = v
	}
}

// WithRequestTimeout caps each prediction request. Zero means no timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.RequestTimeout = timeout
	}
}

// WithResultField overrides the response property holding the prediction.
func WithResultField(field string) Option {
	return func(opts *Options) {
		opts.Field = field
	}
}

// Client posts forms to the prediction endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	contract *openapi.Contract
	vocab    Vocabulary
	timeout  time.Duration
	field    string
}

var _ Predictor = (*Client)(nil)

// NewClient returns a client posting to endpoint.
func NewClient(endpoint string, options ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("predict: endpoint is required")
	}
	cfg := Options{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	field := cfg.Field
	if field == "" && cfg.Contract != nil {
		field = cfg.Contract.PredictionField()
	}
	if field == "" {
		field = DefaultResultField
	}

	return &Client{
		endpoint: endpoint,
		http:     client,
		contract: cfg.Contract,
		vocab:    cfg.Vocabulary,
		timeout:  cfg.RequestTimeout,
		field:    field,
	}, nil
}

// Vocabulary returns the vocabulary requests are translated into.
func (c *Client) Vocabulary() Vocabulary {
	return c.vocab
}

// Predict sends form and decodes the predicted price. A reply without the
// prediction field yields ErrNoPrediction.
func (c *Client) Predict(ctx context.Context, form cascade.FormState) (Result, error) {
	payload := NewRequest(form).Payload()
	if c.contract != nil {
		if err := c.contract.ValidateRequest(payload); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	body, err := json.Marshal(c.vocab.Translate(payload))
	if err != nil {
		return Result{}, fmt.Errorf("predict: encode request: %w", err)
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("predict: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("predict: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("predict: read response: %w", err)
	}
	return DecodeResult(data, c.field)
}
