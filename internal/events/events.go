// Package events publishes session telemetry to NATS.
//
// One event type exists today: [SessionSummary], emitted when a listening
// session ends. The publisher is optional; a nil *Publisher silently drops
// events so callers do not need to guard every publish site.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject session summaries are published to when
// none is configured.
const DefaultSubject = "social-story.sessions"

// SessionSummary describes one completed listening session.
type SessionSummary struct {
	// SessionID is the session's unique identifier.
	SessionID string `json:"session_id"`

	// ReaderID identifies the reader, if known.
	ReaderID string `json:"reader_id,omitempty"`

	// StoryID and PageNumber locate what was being read.
	StoryID    string `json:"story_id,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`

	// DurationMS is how long the session ran, in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Accuracy is the final reading accuracy for the session, 0 to 100.
	// Absent when the session ended before any attempt was scored.
	Accuracy float64 `json:"accuracy,omitempty"`

	// Restarts counts how many times the recognition engine was restarted
	// during the session.
	Restarts int `json:"restarts"`

	// EndedAt is when the session ended.
	EndedAt time.Time `json:"ended_at"`
}

// Publisher publishes session events to NATS. A nil *Publisher is valid and
// drops all events, so telemetry can be disabled by simply not constructing
// one.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// config holds optional configuration for Connect.
type config struct {
	subject string
	name    string
}

// Option is a functional option for [Connect].
type Option func(*config)

// WithSubject overrides [DefaultSubject].
func WithSubject(subject string) Option {
	return func(c *config) {
		c.subject = subject
	}
}

// WithClientName sets the NATS client connection name.
func WithClientName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// Connect establishes a NATS connection for publishing. The connection
// reconnects indefinitely; transient broker outages surface as log lines, not
// errors.
func Connect(url string, opts ...Option) (*Publisher, error) {
	cfg := &config{subject: DefaultSubject, name: "social-story"}
	for _, o := range opts {
		o(cfg)
	}

	conn, err := nats.Connect(url,
		nats.Name(cfg.name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect to nats at %q: %w", url, err)
	}

	return &Publisher{conn: conn, subject: cfg.subject}, nil
}

// PublishSummary publishes a session summary. Publishing on a nil *Publisher
// is a no-op.
func (p *Publisher) PublishSummary(ctx context.Context, summary SessionSummary) error {
	if p == nil {
		return nil
	}
	if summary.EndedAt.IsZero() {
		summary.EndedAt = time.Now()
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("events: encode summary: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("events: publish to %s: %w", p.subject, err)
	}

	slog.Debug("session summary published",
		"subject", p.subject,
		"session_id", summary.SessionID,
		"accuracy", summary.Accuracy)
	return nil
}

// Check reports whether the NATS connection is currently usable. Suitable as
// a readiness check. A nil *Publisher is always healthy since it has nothing
// to lose events to.
func (p *Publisher) Check(context.Context) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if status := p.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("events: nats connection is %s", status)
	}
	return nil
}

// Close drains and closes the NATS connection. Safe on a nil *Publisher.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		slog.Warn("nats drain failed", "error", err)
		p.conn.Close()
	}
}
