package livereload

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
)

// DefaultSubject is used when no NATS subject is configured.
const DefaultSubject = "jellsite.generation"

// publisher is the part of *nats.Conn the relay needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSRelay republishes channel events on a NATS subject so tools outside
// the browser (editor plugins, remote previews) can follow rebuilds.
type NATSRelay struct {
	pub     publisher
	subject string
	conn    *nats.Conn
}

// ConnectNATS dials url and returns a relay publishing on subject.
func ConnectNATS(url, subject string) (*NATSRelay, error) {
	conn, err := nats.Connect(url, nats.Name("jellsite livereload"))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "connect to NATS").WithContext("url", url).Build()
	}
	r := newRelay(conn, subject)
	r.conn = conn
	slog.Info("Publishing live-reload events to NATS", slog.String("url", url), slog.String("subject", r.subject))
	return r, nil
}

func newRelay(pub publisher, subject string) *NATSRelay {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSRelay{pub: pub, subject: subject}
}

// Publish sends one event.
func (r *NATSRelay) Publish(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.pub.Publish(r.subject, data)
}

// Run relays events from c until ctx is done or c is closed.
func (r *NATSRelay) Run(ctx context.Context, c *Channel) {
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := r.Publish(ev); err != nil {
				slog.Warn("Failed to publish live-reload event", logfields.Generation(ev.Generation), logfields.Error(err))
			}
		}
	}
}

// Close drains the NATS connection, if the relay owns one.
func (r *NATSRelay) Close() {
	if r.conn == nil {
		return
	}
	if err := r.conn.Drain(); err != nil {
		r.conn.Close()
	}
}
