package resolution

import (
	"net/http"
	"time"

	"github.com/mjlescano/playcha/internal/providers/browser"
)

// Result messages
const (
	MessageSolved      = "Challenge solved!"
	MessageNotDetected = "Challenge not detected!"
)

// MinTimeout is the smallest budget a resolution gets
const MinTimeout = 5 * time.Second

// Request describes one resolution. It is not modified once handed to
// Resolve.
type Request struct {
	// Method is http.MethodGet or http.MethodPost
	Method   string
	URL      string
	PostData string
	Cookies  []browser.CookieParam
	Proxy    *browser.Proxy
	// Timeout bounds challenge resolution
	Timeout time.Duration

	// SessionID selects a stored session. Empty means a throwaway browser.
	SessionID  string
	SessionTTL time.Duration

	DisableMedia bool
	Screenshot   bool
	OnlyCookies  bool
	// Wait pauses before the page content is captured
	Wait time.Duration
}

// IsPost reports whether the navigation carries a body
func (r Request) IsPost() bool {
	return r.Method == http.MethodPost && r.PostData != ""
}

// TimeoutFromMillis converts a caller timeout into the resolution budget,
// never below MinTimeout.
func TimeoutFromMillis(ms int) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d < MinTimeout {
		return MinTimeout
	}
	return d
}
