package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// ClueLogger delegates to goa.design/clue/log. The logger reads formatting
// and debug settings from the context, set up once at process start via
// log.Context and log.WithFormat/log.WithDebug.
type ClueLogger struct{}

// NewClueLogger constructs a Logger backed by clue/log.
func NewClueLogger() Logger { return ClueLogger{} }

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, fielders(msg, keyvals)...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, fielders(msg, keyvals)...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	log.Print(ctx, fielders(msg, keyvals)...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, errorsFromMsg(msg), fielders(msg, keyvals)...)
}

func fielders(msg string, keyvals []any) []log.Fielder {
	out := make([]log.Fielder, 0, len(keyvals)/2+1)
	out = append(out, log.KV{K: "msg", V: msg})
	for i := 0; i+1 < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		out = append(out, log.KV{K: k, V: keyvals[i+1]})
	}
	return out
}

// errorsFromMsg adapts the simple (msg, keyvals...) signature shared by all
// Logger methods to clue's error-first Error signature: the message itself
// becomes the wrapped error text so the field set stays uniform.
func errorsFromMsg(msg string) error { return errString(msg) }

type errString string

func (e errString) Error() string { return string(e) }

// ClueTracer creates spans through the global OTEL tracer provider that
// clue.ConfigureOpenTelemetry installs at process start, so spans carry the
// same resource attributes and exporter wiring as ClueLogger's surrounding
// request context.
type ClueTracer struct {
	tracer trace.Tracer
}

// NewClueTracer constructs a Tracer under the given instrumentation scope
// name, backed by the tracer provider clue.ConfigureOpenTelemetry installs.
func NewClueTracer(scope string) *ClueTracer {
	return &ClueTracer{tracer: otel.Tracer(scope)}
}

func (t *ClueTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, clueSpan{span: span}
}

// clueSpan wraps an OTEL span constructed via the global tracer provider, the
// way the teacher's tracer package does, so spans configured via
// clue.ConfigureOpenTelemetry are automatically exported.
type clueSpan struct{ span trace.Span }

func (s clueSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }
func (s clueSpan) AddEvent(name string, _ ...any)  { s.span.AddEvent(name) }
func (s clueSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}
func (s clueSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}
