// Package http serves the playcha HTTP API.
//
// Routes:
//   - GET  /         readiness banner
//   - GET  /health   liveness probe
//   - POST /v1       command dispatcher
//
// Commands accepted by /v1:
//   - sessions.create, sessions.list, sessions.destroy
//   - request.get, request.post
//
// Every /v1 reply carries the request start and end timestamps in
// milliseconds. Failed commands answer 500 with status "error" and the
// failure message prefixed by "Error: ".
package http
