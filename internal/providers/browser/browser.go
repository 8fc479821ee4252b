package browser

import (
	"context"
	"net/url"
)

// WaitUntil selects the navigation milestone Goto waits for
type WaitUntil string

const (
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
)

// ResourceType classifies an intercepted request
type ResourceType string

const (
	ResourceDocument   ResourceType = "document"
	ResourceImage      ResourceType = "image"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceFont       ResourceType = "font"
	ResourceScript     ResourceType = "script"
	ResourceMedia      ResourceType = "media"
	ResourceOther      ResourceType = "other"
)

// Proxy describes the upstream proxy a browser is launched with
type Proxy struct {
	URL      string
	Username string
	Password string
}

// Server returns the proxy address in the form Chromium's --proxy-server
// flag accepts, stripping any userinfo embedded in the URL.
func (p *Proxy) Server() string {
	if p == nil || p.URL == "" {
		return ""
	}
	u, err := url.Parse(p.URL)
	if err != nil || u.Host == "" {
		return p.URL
	}
	u.User = nil
	return u.String()
}

// Credentials returns the proxy credentials, preferring explicit fields
// over userinfo in the URL.
func (p *Proxy) Credentials() (username, password string, ok bool) {
	if p == nil {
		return "", "", false
	}
	if p.Username != "" {
		return p.Username, p.Password, true
	}
	if u, err := url.Parse(p.URL); err == nil && u.User != nil {
		pass, _ := u.User.Password()
		return u.User.Username(), pass, true
	}
	return "", "", false
}

// Driver launches browsers. Implementations differ in automation protocol
// and stealth characteristics but are interchangeable to callers.
type Driver interface {
	Name() string
	Launch(ctx context.Context, proxy *Proxy) (Browser, error)
}

// Browser is a live browser process
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}

// Page is a single tab. Scripts passed to Evaluate and AddInitScript are
// JavaScript function expressions such as "() => document.title".
type Page interface {
	Goto(ctx context.Context, url string, waitUntil WaitUntil) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	// Count returns how many elements match a CSS selector, without waiting
	Count(ctx context.Context, selector string) (int, error)
	// FrameURLs lists the URLs of every frame, cross-origin ones included
	FrameURLs(ctx context.Context) ([]string, error)
	Evaluate(ctx context.Context, script string) (any, error)
	AddInitScript(ctx context.Context, script string) error
	Route(ctx context.Context, pattern string, handler RouteHandler) error
	Unroute(ctx context.Context, pattern string) error
	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookies(ctx context.Context, cookies []CookieParam) error
	Screenshot(ctx context.Context) ([]byte, error)
	Click(ctx context.Context, x, y float64) error
}

// Request is an intercepted network request
type Request struct {
	URL          string
	Method       string
	ResourceType ResourceType
	Headers      map[string]string
}

// Override replaces parts of an intercepted request
type Override struct {
	Method   string
	PostData []byte
	Headers  map[string]string
}

// Route is an intercepted request awaiting a decision. Handlers must call
// exactly one of Continue or Abort before returning; requests left
// undecided are continued unchanged.
type Route interface {
	Request() Request
	Continue(override *Override) error
	Abort() error
}

// RouteHandler decides the fate of an intercepted request
type RouteHandler func(route Route)

// Cookie is a cookie read from the browsing context
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  float64
	Size     int
	HTTPOnly bool
	Secure   bool
	Session  bool
	SameSite string
}

// CookieParam is a cookie to add to the browsing context
type CookieParam struct {
	Name     string
	Value    string
	URL      string
	Domain   string
	Path     string
	Expires  float64
	HTTPOnly bool
	Secure   bool
	SameSite string
}
