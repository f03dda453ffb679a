// Package tracing wraps ipcwire dispatches in OpenTelemetry spans.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/ipcwire"
)

// InstrumentationName names the tracer used when none is given.
const InstrumentationName = "github.com/bjaus/ipcwire"

// Attribute keys set on dispatch spans.
const (
	AttrChannel  = attribute.Key("ipcwire.channel")
	AttrMode     = attribute.Key("ipcwire.mode")
	AttrOutcome  = attribute.Key("ipcwire.outcome")
	AttrGuard    = attribute.Key("ipcwire.guard")
	AttrDuration = attribute.Key("ipcwire.duration_ms")
)

// Options returns hooks that open a span when a message reaches a route and
// end it when the dispatch completes. A nil provider means the global one.
func Options(tp trace.TracerProvider) []ipcwire.Option {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(InstrumentationName)

	return []ipcwire.Option{
		ipcwire.WithOnReceive(func(ctx context.Context, path string, mode ipcwire.Mode) context.Context {
			ctx, _ = tracer.Start(ctx, "ipcwire.dispatch "+path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					AttrChannel.String(path),
					AttrMode.String(string(mode)),
				),
			)
			return ctx
		}),
		ipcwire.WithOnSuccess(func(ctx context.Context, _ string, d time.Duration) {
			span := trace.SpanFromContext(ctx)
			span.SetAttributes(AttrOutcome.String("success"), durationAttr(d))
			span.SetStatus(codes.Ok, "")
			span.End()
		}),
		ipcwire.WithOnFailure(func(ctx context.Context, _ string, err error, d time.Duration) {
			span := trace.SpanFromContext(ctx)
			span.SetAttributes(AttrOutcome.String("failure"), durationAttr(d))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
		}),
		ipcwire.WithOnDenied(func(ctx context.Context, _ string, guard string, d time.Duration) {
			span := trace.SpanFromContext(ctx)
			span.SetAttributes(AttrOutcome.String("denied"), AttrGuard.String(guard), durationAttr(d))
			span.SetStatus(codes.Error, "access denied")
			span.End()
		}),
	}
}

func durationAttr(d time.Duration) attribute.KeyValue {
	return AttrDuration.Float64(float64(d) / float64(time.Millisecond))
}
