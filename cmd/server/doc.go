// Package main is the entry point of the playcha server.
//
// playcha drives a real browser through anti-bot challenge pages and hands
// back the cleared page, its cookies and user agent over a FlareSolverr
// style POST /v1 API.
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Serve on the default address (0.0.0.0:8191)
//	playcha
//
//	# Development mode (console logs, debug level)
//	playcha --dev --port 8080
//
//	# Print the version
//	playcha version
//
// Signals:
//   - SIGINT, SIGTERM: stop accepting requests, destroy every session, exit
package main
