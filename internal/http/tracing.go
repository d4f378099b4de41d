package http

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Tracing starts a Datadog span per request, named after the route template.
func Tracing(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource := c.Request.Method + " " + c.FullPath()
		span, ctx := tracer.StartSpanFromContext(c.Request.Context(), "http.request",
			tracer.ServiceName(service),
			tracer.ResourceName(resource),
			tracer.SpanType(ext.SpanTypeWeb),
			tracer.Tag(ext.HTTPMethod, c.Request.Method),
			tracer.Tag(ext.HTTPURL, c.Request.URL.Path),
		)
		defer span.Finish()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetTag(ext.HTTPCode, strconv.Itoa(c.Writer.Status()))
		if id, ok := c.Get(HeaderRequestID); ok {
			span.SetTag("request_id", id)
		}
	}
}

// tagError marks the active span as failed; a no-op without a span.
func tagError(ctx context.Context, err error) {
	if sp, ok := tracer.SpanFromContext(ctx); ok {
		sp.SetTag(ext.Error, err)
	}
}
