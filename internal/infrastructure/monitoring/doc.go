/*
Package monitoring provides Prometheus metrics for playcha.

# Overview

Each Metrics value owns a private registry, so several servers (or tests)
can coexist in one process. The registry is served on /metrics.

# Metrics

- HTTP request count, latency and response size, labelled by route template
- Live sessions, session create/destroy counters, browser launches
- Resolution outcomes (not_detected, solved, blocked, timeout, error) and durations
- Solver calls and durations per backend

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "twocaptcha")
	// ... call the solver ...
	timer.Stop("success")
*/
package monitoring
