package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "ototahmin.predictions"

// MsgPublisher is the subset of *nats.Conn the publisher uses.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher publishes events as JSON on a subject.
type NATSPublisher struct {
	conn    MsgPublisher
	subject string
	close   func()
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn MsgPublisher, subject string) (*NATSPublisher, error) {
	if conn == nil {
		return nil, errors.New("audit: nats connection is nil")
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// ConnectNATS dials url and returns a publisher owning the connection.
func ConnectNATS(url, subject string, options ...nats.Option) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name("ototahmin")}, options...)...)
	if err != nil {
		return nil, fmt.Errorf("audit: connect nats: %w", err)
	}
	pub, err := NewNATSPublisher(nc, subject)
	if err != nil {
		nc.Close()
		return nil, err
	}
	pub.close = nc.Close
	return pub, nil
}

// Subject reports the subject events are published on.
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// Publish serializes ev as JSON. Trace context from ctx is injected into the
// message headers.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}
	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("audit: publish: %w", err)
	}
	return nil
}

// Close releases a connection opened by ConnectNATS.
func (p *NATSPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}

// headerCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
