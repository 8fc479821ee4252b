// Package client provides the outbound HTTP client used to talk to captcha
// solving APIs.
//
// Built on go-resty/resty with a pooled go-retryablehttp transport, plus:
//   - a token-bucket rate limiter per client instance
//   - a circuit breaker so a failing API is not hammered while requests queue
//   - sonic for decoding JSON replies
//
// Example Usage:
//
//	c := client.NewClient(client.DefaultOptions("2captcha"))
//	req, err := c.Request(ctx)
//	resp, err := c.ExecuteWithBreaker(func() (*resty.Response, error) {
//		return req.SetQueryParams(params).Get(url)
//	})
package client
