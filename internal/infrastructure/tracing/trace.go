package tracing

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/shared/id"
	"go.uber.org/zap"
)

// Header names used for trace propagation
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// TraceID represents a unique trace identifier
type TraceID string

// SpanID represents a unique span identifier
type SpanID string

// Span represents a single operation in a trace
type Span struct {
	TraceID   TraceID
	SpanID    SpanID
	ParentID  SpanID
	Name      string
	StartTime time.Time
	Duration  time.Duration
	Tags      map[string]string
	Err       error
}

// Tracer logs finished spans in the background
type Tracer struct {
	service string
	logger  *logging.Logger
	spans   chan *Span

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

// New creates a tracer and starts its collector
func New(service string, logger *logging.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logger.Named("trace"),
		spans:   make(chan *Span, 1000),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// StartSpan creates a child of the span carried by ctx, or a new trace root.
// A nil tracer returns a detached span so callers need no guard.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(id.NewTraceID())
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.NewSpanID()),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.Err = err
}

// Finish stamps the duration and hands the span to the tracer
func (t *Tracer) Finish(span *Span) {
	span.Duration = time.Since(span.StartTime)
	if t == nil {
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.spans <- span:
	default:
		t.logger.Warn("Span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

// Close drains pending spans and stops the collector
func (t *Tracer) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.spans)
		t.mu.Unlock()
		<-t.done
	})
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		t.emit(span)
	}
}

func (t *Tracer) emit(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.String("service", t.service),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if span.Err != nil {
		t.logger.Warn("Span completed with error", append(fields, zap.Error(span.Err))...)
		return
	}
	t.logger.Debug("Span completed", fields...)
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithRemote seeds ctx with trace identifiers received from a caller
func WithRemote(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, spanID)
	}
	return ctx
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	return traceID
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanIDKey).(SpanID)
	return spanID
}

// Fields returns zap fields identifying the trace carried by ctx
func Fields(ctx context.Context) []zap.Field {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		return nil
	}
	return []zap.Field{zap.String("trace_id", string(traceID))}
}

func statusTag(code int) string {
	return strconv.Itoa(code)
}
