package browser

import (
	"net/url"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchPattern reports whether rawURL matches a route pattern. Patterns are
// globs where "**" spans path separators, so "**/*" matches every URL. A
// pattern naming the URL itself matches in the form the browser reports it:
// lowercased host, "/" for an empty path, escaped path, no fragment.
func MatchPattern(pattern, rawURL string) bool {
	if pattern == rawURL || canonicalURL(pattern) == canonicalURL(rawURL) {
		return true
	}
	ok, err := doublestar.Match(pattern, rawURL)
	return err == nil && ok
}

// canonicalURL returns s as a browser would request it. Anything that is
// not an absolute URL is returned unchanged.
func canonicalURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

type routeEntry struct {
	pattern string
	handler RouteHandler
}

// Router keeps the route handlers of one page. Backends own a Router and
// feed every intercepted request through Dispatch.
type Router struct {
	mu     sync.RWMutex
	routes []routeEntry
}

// Add registers a handler. Later registrations take precedence.
func (r *Router) Add(pattern string, handler RouteHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, routeEntry{pattern: pattern, handler: handler})
}

// Remove drops every handler registered for pattern
func (r *Router) Remove(pattern string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.routes[:0]
	for _, e := range r.routes {
		if e.pattern != pattern {
			kept = append(kept, e)
		}
	}
	r.routes = kept
}

// Len returns the number of registered handlers
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Dispatch hands route to the most recently registered matching handler and
// reports whether one was found.
func (r *Router) Dispatch(route Route) bool {
	url := route.Request().URL

	r.mu.RLock()
	var handler RouteHandler
	for i := len(r.routes) - 1; i >= 0; i-- {
		if MatchPattern(r.routes[i].pattern, url) {
			handler = r.routes[i].handler
			break
		}
	}
	r.mu.RUnlock()

	if handler == nil {
		return false
	}
	handler(route)
	return true
}

// ParseResourceType maps a CDP resource type name ("Image", "Stylesheet")
// onto ResourceType.
func ParseResourceType(cdpType string) ResourceType {
	if cdpType == "" {
		return ResourceOther
	}
	return ResourceType(strings.ToLower(cdpType))
}

// MergeHeaders returns base with override applied. Header names compare
// case-insensitively and keep the override's spelling.
func MergeHeaders(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		for existing := range out {
			if strings.EqualFold(existing, k) {
				delete(out, existing)
			}
		}
		out[k] = v
	}
	return out
}
