// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Components receive a *Logger and derive scoped children with Named and
// With, so every line about a browser session carries its id.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Named("session").Info("Launching browser", zap.String("session", id))
package logging
