package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const broadcastScopeName = instrumentationScope + "/broadcast"

// Instruments holds the counters and spans of the broadcast operations.
// The zero value is not usable; create one with NewInstruments.
type Instruments struct {
	tracer trace.Tracer

	ops  metric.Int64Counter
	dur  metric.Float64Histogram
	errs metric.Int64Counter

	TasksCreated       metric.Int64Counter
	RecipientsResolved metric.Int64Counter
	PushDelivered      metric.Int64Counter
	PushFailed         metric.Int64Counter
	Archived           metric.Int64Counter
	Deletions          metric.Int64Counter
}

// NewInstruments creates the instruments from the current global providers.
// Call it after Init.
func NewInstruments() *Instruments {
	m := Meter(broadcastScopeName)
	counter := func(name, desc string) metric.Int64Counter {
		c, _ := m.Int64Counter(name, metric.WithDescription(desc))
		return c
	}
	dur, _ := m.Float64Histogram("taskcast.operation.duration",
		metric.WithDescription("Broadcast operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return &Instruments{
		tracer:             Tracer(broadcastScopeName),
		ops:                counter("taskcast.operations", "Total broadcast operations executed"),
		dur:                dur,
		errs:               counter("taskcast.errors", "Total broadcast operations that failed"),
		TasksCreated:       counter("taskcast.tasks.created", "Tasks created"),
		RecipientsResolved: counter("taskcast.recipients.resolved", "Recipients resolved for new tasks"),
		PushDelivered:      counter("taskcast.push.delivered", "Push notifications delivered"),
		PushFailed:         counter("taskcast.push.failed", "Push notifications that failed"),
		Archived:           counter("taskcast.assignments.archived", "Assignments archived by the sweeper"),
		Deletions:          counter("taskcast.tasks.deleted", "Tasks deleted by their sender"),
	}
}

// Start opens a span for the named operation and counts it.
// The returned function ends the span and records duration and err.
func (in *Instruments) Start(
	ctx context.Context,
	name string,
	attrs ...attribute.KeyValue,
) (context.Context, func(err error)) {
	all := append([]attribute.KeyValue{attribute.String("taskcast.operation", name)}, attrs...)
	ctx, span := in.tracer.Start(ctx, "broadcast."+name, trace.WithAttributes(all...))
	in.ops.Add(ctx, 1, metric.WithAttributes(all...))
	start := time.Now()

	return ctx, func(err error) {
		in.dur.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(all...))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			in.errs.Add(ctx, 1, metric.WithAttributes(all...))
		}
		span.End()
	}
}
