// Package session owns the live browser sessions of the process.
//
// A Store maps caller-chosen session ids to browser handles. Creation is
// exclusive per id: concurrent requests naming the same unseen id trigger a
// single browser launch and all of them receive the resulting Session.
// Expiry is checked lazily by Get; nothing runs in the background.
//
// Requests that reuse one session id concurrently drive the same page and
// will interleave. The Store does not serialize them.
//
// Example Usage:
//
//	store := session.NewStore(driver, logger).WithMetrics(metrics)
//	sess, fresh, err := store.Get(ctx, "my-session", 10*time.Minute, proxy)
//	defer store.DestroyAll(context.Background())
package session
