// Package types holds the wire structures of the playcha HTTP API.
//
// Request Types:
//   - V1Request: body of POST /v1, one of the five commands
//   - ProxyRequest: per-request proxy override
//   - CookieParam: cookie descriptor injected before navigation
//
// Response Types:
//   - V1Response: envelope for every /v1 reply
//   - Solution: result of request.get / request.post
//   - Cookie: cookie as read back from the browser
//   - IndexResponse, HealthResponse: GET / and GET /health
//
// Fields that are nil are omitted from the JSON output.
//
// Example Usage:
//
//	req := types.V1Request{
//	    Cmd:        types.CmdRequestGet,
//	    URL:        "https://example.com",
//	    MaxTimeout: 60000,
//	}
package types
