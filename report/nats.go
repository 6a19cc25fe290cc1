package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/hexguard/engine"
)

// DefaultSubject is the subject prefix reports are published under.
const DefaultSubject = "hexguard.report"

// Report status suffixes appended to the subject.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusFrozen = "frozen"
)

// HeaderRunID carries the run ID of a published report.
const HeaderRunID = "Hexguard-Run-Id"

const flushTimeout = 5 * time.Second

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// NATSPublisher publishes JSON reports to <subject>.<status>.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
	close   func()
}

// ConnectNATS dials url and returns a publisher over the new connection.
func ConnectNATS(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("hexguard"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p := NewNATSPublisher(nc, subject, logger)
	p.close = nc.Close
	return p, nil
}

// NewNATSPublisher wraps an existing connection. An empty subject uses
// DefaultSubject.
func NewNATSPublisher(c conn, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: c, subject: subject, logger: logger}
}

// Status classifies a report for the subject suffix.
func Status(r *engine.Report) string {
	switch {
	case r.Frozen:
		return StatusFrozen
	case r.Failed():
		return StatusFailed
	}
	return StatusPassed
}

// Publish sends the report and waits for the server to acknowledge the
// flush.
func (p *NATSPublisher) Publish(ctx context.Context, r *engine.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	msg := nats.NewMsg(p.subject + "." + Status(r))
	msg.Header.Set(HeaderRunID, r.RunID)
	msg.Data = data

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	// FlushWithContext rejects contexts without a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	p.logger.Debug("Report published", "subject", msg.Subject, "run_id", r.RunID, "bytes", len(data))
	return nil
}

// Close closes a connection opened by ConnectNATS.
func (p *NATSPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}
