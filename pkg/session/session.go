// Package session is the side-effect boundary around the cascading form. A
// Session owns the state machine, performs the catalog load, guards the
// single outstanding prediction and reports outcomes to an audit sink.
// Renderers talk to a Session and never to the machine or the clients
// directly.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-ototahmin/pkg/audit"
	"github.com/goliatone/go-ototahmin/pkg/cascade"
	"github.com/goliatone/go-ototahmin/pkg/catalog"
	"github.com/goliatone/go-ototahmin/pkg/predict"
)

var (
	// ErrPredictionInFlight rejects a submit while another one is pending.
	ErrPredictionInFlight = errors.New("session: prediction already in flight")
	// ErrStaleCatalog reports a catalog load superseded by a newer one.
	ErrStaleCatalog = errors.New("session: catalog load superseded")
)

// Outcome is the result of one submit.
type Outcome struct {
	Display string
	Price   float64
	Err     error
	At      time.Time
}

// Failed reports whether the prediction produced no price.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

type requestIDKey struct{}

// WithRequestID tags ctx so audit events can be correlated with the request
// that triggered them.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Option configures a Session.
type Option func(*Session)

// WithFormatter sets how outcomes are rendered.
func WithFormatter(f predict.Formatter) Option {
	return func(s *Session) {
		s.formatter = f
	}
}

// WithPublisher sets the audit sink.
func WithPublisher(p audit.Publisher) Option {
	return func(s *Session) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp outcomes.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session coordinates one user's form. It is safe for concurrent use.
type Session struct {
	machine   *cascade.Machine
	loader    catalog.Loader
	source    catalog.Source
	predictor predict.Predictor
	formatter predict.Formatter
	publisher audit.Publisher
	logger    *slog.Logger
	now       func() time.Time

	inFlight atomic.Bool

	mu        sync.RWMutex
	last      Outcome
	hasResult bool
}

// New assembles a session. A nil machine is replaced by a default one.
func New(machine *cascade.Machine, loader catalog.Loader, source catalog.Source, predictor predict.Predictor, options ...Option) *Session {
	if machine == nil {
		machine = cascade.NewMachine()
	}
	s := &Session{
		machine:   machine,
		loader:    loader,
		source:    source,
		predictor: predictor,
		formatter: predict.NewFormatter(""),
		publisher: audit.Nop{},
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// LoadCatalog fetches the dataset once and hands it to the machine. Failures
// are logged and leave the current dataset in place; the returned error is
// informational only.
func (s *Session) LoadCatalog(ctx context.Context) error {
	if s.loader == nil || s.source == nil {
		err := errors.New("session: catalog loader is not configured")
		s.logger.Warn("catalog load skipped", "error", err)
		return err
	}

	generation := s.machine.BeginLoad()
	started := s.now()
	ds, err := s.loader.Load(ctx, s.source)
	if err != nil {
		s.logger.Error("catalog load failed",
			"source", s.source.Location(),
			"generation", generation,
			"error", err,
		)
		return err
	}

	if _, ok := s.machine.Load(generation, ds); !ok {
		s.logger.Info("stale catalog load discarded", "generation", generation)
		return ErrStaleCatalog
	}
	s.logger.Info("catalog loaded",
		"source", s.source.Location(),
		"brands", ds.Len(),
		"generation", generation,
		"duration", s.now().Sub(started),
	)
	return nil
}

// Change applies one field edit.
func (s *Session) Change(field cascade.Field, value string) cascade.Snapshot {
	return s.machine.Change(field, value)
}

// Snapshot returns the current form snapshot.
func (s *Session) Snapshot() cascade.Snapshot {
	return s.machine.Snapshot()
}

// Subscribe registers fn for every new snapshot.
func (s *Session) Subscribe(fn cascade.Observer) func() {
	return s.machine.Subscribe(fn)
}

// InFlight reports whether a prediction is pending.
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// Result returns the last outcome, if any.
func (s *Session) Result() (Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasResult
}

// Formatter returns the formatter used for outcomes.
func (s *Session) Formatter() predict.Formatter {
	return s.formatter
}

// Submit sends the current form for prediction. While a prediction is
// pending further calls fail with ErrPredictionInFlight and do not reach the
// predictor. Prediction failures are reported in Outcome.Err, never as the
// returned error.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrPredictionInFlight
	}
	defer s.inFlight.Store(false)

	form := s.machine.Snapshot().Form

	var (
		res predict.Result
		err error
	)
	if s.predictor == nil {
		err = errors.New("session: predictor is not configured")
	} else {
		res, err = s.predictor.Predict(ctx, form)
	}

	out := Outcome{
		Display: s.formatter.Display(res, err),
		Err:     err,
		At:      s.now(),
	}
	if err == nil {
		out.Price = res.Price
		s.logger.Info("prediction completed",
			"brand", form.Brand,
			"series", form.Series,
			"model", form.Model,
			"price", res.Price,
		)
	} else {
		s.logger.Warn("prediction failed", "error", err)
	}

	s.mu.Lock()
	s.last = out
	s.hasResult = true
	s.mu.Unlock()

	s.publish(ctx, form, out)
	return out, nil
}

func (s *Session) publish(ctx context.Context, form cascade.FormState, out Outcome) {
	ev := audit.Event{
		RequestID: RequestID(ctx),
		Form:      form,
		Price:     out.Price,
		Display:   out.Display,
		Failed:    out.Failed(),
		At:        out.At,
	}
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("audit publish failed", "error", err)
	}
}
