package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/mjlescano/playcha/internal/infrastructure/resilience"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned while the breaker rejects calls
var ErrUnavailable = errors.New("external service unavailable: circuit breaker open")

// Options configures a Client
type Options struct {
	// Name identifies the client's breaker
	Name         string
	UserAgent    string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	// RateLimit is in requests per second, zero means unlimited
	RateLimit float64
}

// DefaultOptions returns options suited to captcha APIs
func DefaultOptions(name string) Options {
	return Options{
		Name:         name,
		UserAgent:    "playcha/1.0",
		Timeout:      30 * time.Second,
		RetryCount:   3,
		RetryWait:    time.Second,
		RetryMaxWait: 10 * time.Second,
		RateLimit:    2,
	}
}

// Client wraps resty with rate limiting and a circuit breaker
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker
	Mu      sync.RWMutex
}

// NewClient creates a client from opts
func NewClient(opts Options) *Client {
	// pooled transport with sane dial and idle timeouts
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTransport(retryClient.HTTPClient.Transport).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait)
	if opts.UserAgent != "" {
		restyClient.SetHeader("User-Agent", opts.UserAgent)
	}

	breaker := resilience.New(opts.Name, resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// solver APIs are flaky, trip only on sustained failure
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
	})

	c := &Client{Resty: restyClient, Breaker: breaker}
	c.SetRateLimit(opts.RateLimit)
	return c
}

// SetHeader adds a default header
func (c *Client) SetHeader(key, value string) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetHeader(key, value)
}

// SetBaseURL sets the URL relative request paths resolve against
func (c *Client) SetBaseURL(url string) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetBaseURL(url)
}

// SetTimeout configures the per-request timeout
func (c *Client) SetTimeout(d time.Duration) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetTimeout(d)
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, minWait, maxWait time.Duration) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetRetryCount(maxRetries).
		SetRetryWaitTime(minWait).
		SetRetryMaxWaitTime(maxWait)
}

// SetRateLimit configures rate limiting in requests per second
func (c *Client) SetRateLimit(rps float64) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if rps <= 0 {
		c.Limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Request creates a request bound to ctx once the breaker and the rate
// limiter allow it.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if c.Breaker.State() == resilience.StateOpen {
		return nil, resilience.ErrCircuitOpen
	}

	c.Mu.RLock()
	limiter := c.Limiter
	c.Mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Resty.R().SetContext(ctx), nil
}

// ExecuteWithBreaker runs an HTTP call through the circuit breaker. Server
// errors count as failures.
func (c *Client) ExecuteWithBreaker(fn func() (*resty.Response, error)) (*resty.Response, error) {
	resp, err := resilience.Do(c.Breaker, func() (*resty.Response, error) {
		resp, err := fn()
		if err == nil && resp != nil && resp.StatusCode() >= 500 {
			return resp, fmt.Errorf("server error: %s", resp.Status())
		}
		return resp, err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return resp, err
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.Breaker.State()
}

// BreakerCounts returns circuit breaker statistics
func (c *Client) BreakerCounts() resilience.Counts {
	return c.Breaker.Counts()
}

// Decode unmarshals a JSON response body into v
func Decode(resp *resty.Response, v any) error {
	if resp == nil {
		return errors.New("empty response")
	}
	if err := sonic.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL, err)
	}
	return nil
}
