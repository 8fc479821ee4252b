package tracing

import (
	"github.com/gin-gonic/gin"
)

// HTTPMiddleware opens a span per request and echoes the trace identifiers
// in the response headers.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithRemote(c.Request.Context(),
			TraceID(c.GetHeader(HeaderTraceID)),
			SpanID(c.GetHeader(HeaderSpanID)),
		)

		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+c.Request.URL.Path)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.client_ip", c.ClientIP())

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.SetTag("http.status", statusTag(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		tracer.Finish(span)
	}
}
