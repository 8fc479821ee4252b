package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mjlescano/playcha/internal/infrastructure/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	opts := DefaultOptions("test-api")
	opts.RetryCount = 0
	opts.RateLimit = 0
	return NewClient(opts)
}

func TestClientDefaults(t *testing.T) {
	c := NewClient(DefaultOptions("2captcha"))

	require.NotNil(t, c.Resty)
	require.NotNil(t, c.Limiter)
	assert.Equal(t, "2captcha", c.Breaker.Name())
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
	assert.Equal(t, uint32(0), c.BreakerCounts().Requests)
}

func TestClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "playcha/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "abc", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":1,"request":"42"}`))
	}))
	defer srv.Close()

	c := newTestClient()
	c.SetBaseURL(srv.URL)

	req, err := c.Request(context.Background())
	require.NoError(t, err)

	resp, err := c.ExecuteWithBreaker(func() (*resty.Response, error) {
		return req.SetQueryParam("key", "abc").Get("/res.php")
	})
	require.NoError(t, err)

	var reply struct {
		Status  int    `json:"status"`
		Request string `json:"request"`
	}
	require.NoError(t, Decode(resp, &reply))
	assert.Equal(t, 1, reply.Status)
	assert.Equal(t, "42", reply.Request)
	assert.Equal(t, uint32(1), c.BreakerCounts().TotalSuccesses)
}

func TestClientServerErrorCountsAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient()
	req, err := c.Request(context.Background())
	require.NoError(t, err)

	_, err = c.ExecuteWithBreaker(func() (*resty.Response, error) {
		return req.Get(srv.URL)
	})
	assert.ErrorContains(t, err, "server error")
	assert.Equal(t, uint32(1), c.BreakerCounts().TotalFailures)
}

func TestClientBreakerOpens(t *testing.T) {
	c := newTestClient()

	for i := 0; i < 10; i++ {
		_, _ = c.ExecuteWithBreaker(func() (*resty.Response, error) {
			return nil, errors.New("connection refused")
		})
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err := c.ExecuteWithBreaker(func() (*resty.Response, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrUnavailable)

	req, err := c.Request(context.Background())
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Nil(t, req)
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	c := newTestClient()
	c.SetRateLimit(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := c.Request(ctx)
	assert.Error(t, err)
	assert.Nil(t, req)
}

func TestClientConfiguration(t *testing.T) {
	c := newTestClient()
	c.SetTimeout(5 * time.Second)
	c.SetRetry(1, 10*time.Millisecond, 20*time.Millisecond)
	c.SetHeader("X-Test", "1")

	assert.Equal(t, 5*time.Second, c.Resty.GetClient().Timeout)
	assert.Equal(t, 1, c.Resty.RetryCount)
	assert.Equal(t, "1", c.Resty.Header.Get("X-Test"))
}

func TestDecodeNil(t *testing.T) {
	assert.Error(t, Decode(nil, &struct{}{}))
}
