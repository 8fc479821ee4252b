// Package resilience provides a circuit breaker for calls to remote solving
// services.
//
// A breaker starts closed. Once ReadyToTrip accepts the failure counts it
// opens and rejects calls with ErrCircuitOpen until Timeout elapses, then
// lets MaxRequests probe calls through while half-open. Probe successes close
// it again; a probe failure reopens it.
//
// Example Usage:
//
//	breaker := resilience.New("twocaptcha", resilience.Settings{
//	    Timeout: 30 * time.Second,
//	})
//	taskID, err := resilience.Do(breaker, func() (string, error) {
//	    return submit(ctx)
//	})
package resilience
