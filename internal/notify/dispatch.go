// Package notify pushes new-task alerts to recipients.
//
// Delivery is best effort and at most once: a Dispatcher fans a message out
// to every recipient through one Transport, logs failures and reports how
// many sends succeeded. Nothing is queued or retried.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/telemetry"
)

// Message is the task summary pushed to each recipient.
type Message struct {
	TaskID        string    `json:"task_id"`
	SenderUserID  string    `json:"sender_user_id"`
	SenderName    string    `json:"sender_name"`
	Type          string    `json:"type"`
	Body          string    `json:"body"`
	ExecutionDate time.Time `json:"execution_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// Subject is a one-line summary of the message.
func (m Message) Subject() string {
	from := m.SenderName
	if from == "" {
		from = m.SenderUserID
	}
	if m.Type != "" {
		return fmt.Sprintf("New %s task from %s", m.Type, from)
	}
	return "New task from " + from
}

// Text renders the message for plain-text channels.
func (m Message) Text() string {
	return fmt.Sprintf("%s\n\nDue: %s\n\n%s\n",
		m.Subject(), m.ExecutionDate.Format("2006-01-02"), m.Body)
}

// Transport delivers a message to a single recipient.
type Transport interface {
	Name() string
	Send(ctx context.Context, recipientID string, msg Message) error
}

// BatchTransport is implemented by transports that deliver to every
// recipient in one operation. The batch either fully succeeds or fails.
type BatchTransport interface {
	Transport
	SendBatch(ctx context.Context, recipientIDs []string, msg Message) error
}

// Dispatcher fans a message out through a Transport with bounded
// concurrency and a per-send timeout.
type Dispatcher struct {
	transport   Transport
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *telemetry.Instruments
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency bounds the number of sends in flight.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithTimeout bounds each individual send.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithLogger sets the logger used for failed sends.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithInstruments records delivered and failed counts.
func WithInstruments(in *telemetry.Instruments) Option {
	return func(d *Dispatcher) { d.metrics = in }
}

// NewDispatcher creates a Dispatcher for transport.
func NewDispatcher(transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport:   transport,
		concurrency: 8,
		timeout:     10 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends msg to every recipient and returns the number of
// successful deliveries. It never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientIDs []string, msg Message) int {
	if len(recipientIDs) == 0 || d.transport == nil {
		return 0
	}

	var delivered int
	if bt, ok := d.transport.(BatchTransport); ok {
		delivered = d.dispatchBatch(ctx, bt, recipientIDs, msg)
	} else {
		delivered = d.dispatchEach(ctx, recipientIDs, msg)
	}

	d.record(ctx, delivered, len(recipientIDs)-delivered)
	return delivered
}

func (d *Dispatcher) dispatchBatch(ctx context.Context, bt BatchTransport, recipientIDs []string, msg Message) int {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := bt.SendBatch(sendCtx, recipientIDs, msg); err != nil {
		failure := apperr.ErrPushFailed.Wrap(err)
		d.logger.WarnContext(ctx, "push batch failed",
			slog.String("event", "dependency."+failure.Reason),
			slog.String("transport", bt.Name()),
			slog.String("task_id", msg.TaskID),
			slog.Int("recipients", len(recipientIDs)),
			slog.Any("error", failure),
		)
		return 0
	}
	return len(recipientIDs)
}

func (d *Dispatcher) dispatchEach(ctx context.Context, recipientIDs []string, msg Message) int {
	var delivered atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, id := range recipientIDs {
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := d.transport.Send(sendCtx, id, msg); err != nil {
				failure := apperr.ErrPushFailed.Wrap(err)
				d.logger.WarnContext(ctx, "push failed",
					slog.String("event", "dependency."+failure.Reason),
					slog.String("transport", d.transport.Name()),
					slog.String("task_id", msg.TaskID),
					slog.String("recipient_id", id),
					slog.Any("error", failure),
				)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(delivered.Load())
}

func (d *Dispatcher) record(ctx context.Context, delivered, failed int) {
	if d.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("transport", d.transport.Name()))
	d.metrics.PushDelivered.Add(ctx, int64(delivered), attrs)
	d.metrics.PushFailed.Add(ctx, int64(failed), attrs)
}
