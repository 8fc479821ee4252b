package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func get(r *gin.Engine, remote string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerClient(t *testing.T) {
	r := newRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1000").Code)

	w := get(r, "10.0.0.1:1000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"status":"error","message":"Error: rate limit exceeded","startTimestamp":0,"endTimestamp":0,"version":""}`, w.Body.String())

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.2:1000").Code)
}

func TestRateLimitDropsIdleClients(t *testing.T) {
	now := time.Unix(0, 0)
	l := newLimiters(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	l.now = func() time.Time { return now }

	l.get("a")
	l.get("b")
	assert.Equal(t, 2, l.len())

	now = now.Add(30 * time.Second)
	l.get("b")
	now = now.Add(45 * time.Second)
	l.get("c")

	assert.Equal(t, 2, l.len())
	l.mu.Lock()
	_, hasA := l.clients["a"]
	l.mu.Unlock()
	assert.False(t, hasA)
}

func TestGlobalRateLimit(t *testing.T) {
	r := newRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, get(r, "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "10.0.0.2:1000").Code)
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}
