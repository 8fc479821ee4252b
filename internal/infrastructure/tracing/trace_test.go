package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpanCreatesRoot(t *testing.T) {
	tracer := New("playcha", logging.NewNop())
	defer tracer.Close()

	span, ctx := tracer.StartSpan(context.Background(), "resolve")

	assert.True(t, strings.HasPrefix(string(span.TraceID), "trace_"))
	assert.Empty(t, span.ParentID)
	assert.Equal(t, span.TraceID, GetTraceID(ctx))
	assert.Equal(t, span.SpanID, GetSpanID(ctx))
}

func TestStartSpanNestsUnderParent(t *testing.T) {
	tracer := New("playcha", logging.NewNop())
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "request")
	child, _ := tracer.StartSpan(ctx, "resolve")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
}

func TestFinishAfterCloseIsSafe(t *testing.T) {
	tracer := New("playcha", logging.NewNop())
	span, _ := tracer.StartSpan(context.Background(), "resolve")
	span.SetError(errors.New("boom"))

	tracer.Close()
	tracer.Close()

	assert.NotPanics(t, func() { tracer.Finish(span) })
	assert.Greater(t, span.Duration.Nanoseconds(), int64(-1))
}

func TestNilTracerFinish(t *testing.T) {
	var tracer *Tracer
	span, _ := tracer.StartSpan(context.Background(), "detached")
	assert.NotPanics(t, func() { tracer.Finish(span) })
}

func TestFields(t *testing.T) {
	assert.Nil(t, Fields(context.Background()))

	ctx := WithRemote(context.Background(), "trace_abc", "")
	fields := Fields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "trace_abc", fields[0].String)
}

func TestHTTPMiddlewarePropagatesIncomingTrace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("playcha", logging.NewNop())
	defer tracer.Close()

	var seen TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/health", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderTraceID, "trace_caller")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, TraceID("trace_caller"), seen)
	assert.Equal(t, "trace_caller", w.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, w.Header().Get(HeaderSpanID))
}
