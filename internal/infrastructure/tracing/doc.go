// Package tracing correlates the log lines of one request.
//
// HTTPMiddleware accepts X-Trace-ID / X-Span-ID from the caller (or mints
// new ULID-based ids), stores them in the request context and echoes them
// back. Deeper layers open child spans with StartSpan; finished spans are
// logged by a background collector.
//
//	span, ctx := tracer.StartSpan(ctx, "resolve")
//	span.SetTag("url", target)
//	defer tracer.Finish(span)
package tracing
