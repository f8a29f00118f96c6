package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SpanKind labels what a Trace entry represents.
type SpanKind string

const (
	SpanKindRun  SpanKind = "run"
	SpanKindLLM  SpanKind = "llm"
	SpanKindTask SpanKind = "task"
)

// Trace is one recorded span, kept in memory alongside its OTel
// counterpart so callers can inspect recent activity without a
// collector attached.
type Trace struct {
	ID        string
	RunID     string
	Kind      SpanKind
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Err       string
}

// Tracer records spans both in memory and, when a real OTel tracer is
// supplied, on the active TracerProvider.
type Tracer struct {
	mu     sync.RWMutex
	traces map[string]*Trace

	otelTracer oteltrace.Tracer
	spansEnded otelmetric.Int64Counter
	logger     *zap.Logger
}

// NewTracer builds a Tracer. otelTracer may be otel.Tracer("...")
// against the noop provider; spans are still recorded in memory
// either way. meter may be otel.Meter("...") against the noop
// provider; when nil, span-count metrics are simply skipped.
func NewTracer(otelTracer oteltrace.Tracer, meter otelmetric.Meter, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		traces:     make(map[string]*Trace),
		otelTracer: otelTracer,
		logger:     logger.With(zap.String("component", "tracer")),
	}
	if meter != nil {
		counter, err := meter.Int64Counter("osforge.spans_ended",
			otelmetric.WithDescription("Number of spans ended, by kind"),
		)
		if err != nil {
			logger.Warn("failed to create spans_ended counter", zap.Error(err))
		} else {
			t.spansEnded = counter
		}
	}
	return t
}

type spanContextKey string

const activeSpanKey spanContextKey = "osforge_active_span"

// StartSpan opens a span of the given kind and returns a context
// carrying the underlying OTel span (if any) plus the Trace record.
func (t *Tracer) StartSpan(ctx context.Context, kind SpanKind, runID, name string) (context.Context, *Trace) {
	tr := &Trace{
		ID:        fmt.Sprintf("%s_%d", kind, time.Now().UnixNano()),
		RunID:     runID,
		Kind:      kind,
		Name:      name,
		StartTime: time.Now(),
	}

	var span oteltrace.Span
	if t.otelTracer != nil {
		ctx, span = t.otelTracer.Start(ctx, name)
		span.SetAttributes(
			attribute.String("osforge.span_kind", string(kind)),
			attribute.String("osforge.run_id", runID),
		)
	}

	t.mu.Lock()
	t.traces[tr.ID] = tr
	t.mu.Unlock()

	if span != nil {
		ctx = context.WithValue(ctx, activeSpanKey, span)
	}
	return ctx, tr
}

// EndSpan closes the span, recording err (if any) on both the Trace
// record and the underlying OTel span.
func (t *Tracer) EndSpan(ctx context.Context, tr *Trace, err error) {
	if tr == nil {
		return
	}
	t.mu.Lock()
	tr.EndTime = time.Now()
	tr.Duration = tr.EndTime.Sub(tr.StartTime)
	if err != nil {
		tr.Err = err.Error()
	}
	t.mu.Unlock()

	if span, ok := ctx.Value(activeSpanKey).(oteltrace.Span); ok {
		if err != nil {
			span.SetAttributes(attribute.String("osforge.error", err.Error()))
		}
		span.End()
	}
	if t.spansEnded != nil {
		t.spansEnded.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("kind", string(tr.Kind))))
	}
	t.logger.Debug("span ended", zap.String("trace_id", tr.ID), zap.String("kind", string(tr.Kind)), zap.Duration("duration", tr.Duration))
}

// Get returns a previously recorded trace by ID.
func (t *Tracer) Get(traceID string) (*Trace, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tr, ok := t.traces[traceID]
	return tr, ok
}

// TraceLLMCall wraps an LLM completion call in an LLM-kind span.
func (t *Tracer) TraceLLMCall(ctx context.Context, runID, model string, fn func(context.Context) error) error {
	ctx, tr := t.StartSpan(ctx, SpanKindLLM, runID, model)
	err := fn(ctx)
	t.EndSpan(ctx, tr, err)
	return err
}
