package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			int64(c.Writer.Size()),
		)
	}
}

// Timer measures a solver invocation
type Timer struct {
	start   time.Time
	metrics *Metrics
	solver  string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, solver string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		solver:  solver,
	}
}

// Stop records the duration with the given status. A nil receiver is a no-op.
func (t *Timer) Stop(status string) {
	if t == nil || t.metrics == nil {
		return
	}
	t.metrics.RecordSolverCall(t.solver, status, time.Since(t.start))
}
