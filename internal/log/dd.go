package log

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// WithDD returns a logger enriched with Datadog correlation fields if a span is present in ctx.
func WithDD(ctx context.Context, base *zap.Logger, extra ...zap.Field) *zap.Logger {
	if sp, ok := tracer.SpanFromContext(ctx); ok && sp != nil {
		sc := sp.Context()
		extra = append(extra,
			zap.String("dd.trace_id", strconv.FormatUint(sc.TraceID(), 10)),
			zap.String("dd.span_id", strconv.FormatUint(sc.SpanID(), 10)),
		)
	}
	return base.With(extra...)
}

// Ctx is WithDD on the process logger, plus the request id when ctx has one.
func Ctx(ctx context.Context, extra ...zap.Field) *zap.Logger {
	if id := RequestID(ctx); id != "" {
		extra = append(extra, zap.String("request_id", id))
	}
	return WithDD(ctx, L(), extra...)
}
