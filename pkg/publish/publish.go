// Package publish moves sweep results over NATS: tick and zero-event
// streams for remote displays, and a queue-group service that computes
// partial zeta sums for evaluators on other machines.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"zetawatch/pkg/compression"
	"zetawatch/pkg/sweep"
)

// DefaultPrefix is the subject prefix for sweep streams.
const DefaultPrefix = "zeta.sweep"

// Format selects the zero-event payload encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatProto Format = "proto"
)

// ErrUnknownFormat is returned for a Format other than json or proto.
var ErrUnknownFormat = errors.New("publish: unknown format")

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// TickMessage is the JSON payload on the tick subject. It leaves the trail
// out; subscribers that draw keep their own.
type TickMessage struct {
	T         float64     `json:"t"`
	Re        float64     `json:"re"`
	Im        float64     `json:"im"`
	Magnitude float64     `json:"magnitude"`
	State     sweep.State `json:"state"`
	Screen    sweep.Point `json:"screen"`
	Info      string      `json:"info"`
}

// Publisher sends ticks to <prefix>.tick and zero events to <prefix>.zero.
type Publisher struct {
	conn   Conn
	prefix string
	format Format
	ticks  bool
	logger *logrus.Entry
}

// Option customises a Publisher.
type Option func(*Publisher)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(p string) Option { return func(pb *Publisher) { pb.prefix = p } }

// WithFormat sets the zero-event encoding. Default FormatJSON.
func WithFormat(f Format) Option { return func(pb *Publisher) { pb.format = f } }

// WithoutTicks publishes zero events only.
func WithoutTicks() Option { return func(pb *Publisher) { pb.ticks = false } }

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option { return func(pb *Publisher) { pb.logger = l } }

// NewPublisher returns a publisher on conn.
func NewPublisher(conn Conn, opts ...Option) (*Publisher, error) {
	p := &Publisher{conn: conn, prefix: DefaultPrefix, format: FormatJSON, ticks: true}
	for _, o := range opts {
		o(p)
	}
	if p.format != FormatJSON && p.format != FormatProto {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, p.format)
	}
	if p.logger == nil {
		p.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return p, nil
}

// TickSubject and ZeroSubject name the streams.
func (p *Publisher) TickSubject() string { return p.prefix + ".tick" }
func (p *Publisher) ZeroSubject() string { return p.prefix + ".zero" }

// Attach publishes every engine tick until the returned cancel is called.
// Publish failures are logged; they never stop the sweep.
func (p *Publisher) Attach(e *sweep.Engine) (cancel func()) {
	return e.OnTick(func(t sweep.Tick) {
		if err := p.PublishTick(t); err != nil {
			p.logger.WithError(err).WithField("t", t.Sample.Parameter).Warn("publish failed")
		}
	})
}

// PublishTick sends the tick and, if it confirmed a zero, the event.
func (p *Publisher) PublishTick(t sweep.Tick) error {
	if p.ticks {
		data, err := json.Marshal(TickMessage{
			T:         t.Sample.Parameter,
			Re:        real(t.Sample.Value),
			Im:        imag(t.Sample.Value),
			Magnitude: t.Sample.Magnitude,
			State:     t.State,
			Screen:    t.Sample.Screen,
			Info:      t.Info(),
		})
		if err != nil {
			return fmt.Errorf("publish: encode tick: %w", err)
		}
		if err := p.conn.Publish(p.TickSubject(), data); err != nil {
			return fmt.Errorf("publish: %s: %w", p.TickSubject(), err)
		}
	}
	if t.Event != nil {
		return p.PublishZero(*t.Event)
	}
	return nil
}

// PublishZero sends one zero event.
func (p *Publisher) PublishZero(ev sweep.ZeroEvent) error {
	data, err := EncodeZero(p.format, ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.ZeroSubject(), data); err != nil {
		return fmt.Errorf("publish: %s: %w", p.ZeroSubject(), err)
	}
	p.logger.WithFields(logrus.Fields{"seq": ev.Seq, "t": ev.Parameter}).Debug("zero published")
	return nil
}

// EncodeZero encodes ev in format f.
func EncodeZero(f Format, ev sweep.ZeroEvent) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("publish: encode zero: %w", err)
		}
		return data, nil
	case FormatProto:
		return compression.MarshalEvent(nil, ev), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// DecodeZero is the inverse of EncodeZero.
func DecodeZero(f Format, data []byte) (sweep.ZeroEvent, error) {
	switch f {
	case FormatJSON:
		var ev sweep.ZeroEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return ev, fmt.Errorf("publish: decode zero: %w", err)
		}
		return ev, nil
	case FormatProto:
		return compression.UnmarshalEvent(data)
	default:
		return sweep.ZeroEvent{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}
