// Package browsertest provides an in-memory browser driver whose pages are
// scripted by tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mjlescano/playcha/internal/providers/browser"
)

// ErrBlockedByClient is returned by Goto when a route aborted the navigation
var ErrBlockedByClient = errors.New("net::ERR_BLOCKED_BY_CLIENT")

// Driver is a fake browser.Driver
type Driver struct {
	// NewPage builds the page of each launched browser. Defaults to NewPage.
	NewPage func(browserID int) *Page
	// LaunchErr, when set, fails every launch
	LaunchErr error
	// CloseErr, when set, is returned by every Browser.Close
	CloseErr error

	mu       sync.Mutex
	launches int
	proxies  []*browser.Proxy
	browsers []*Browser
}

// NewDriver returns a driver producing blank pages
func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return "fake" }

// Launch starts a fake browser
func (d *Driver) Launch(ctx context.Context, proxy *browser.Proxy) (browser.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.launches++
	d.proxies = append(d.proxies, proxy)
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}

	factory := d.NewPage
	if factory == nil {
		factory = NewPage
	}
	b := &Browser{ID: d.launches, page: factory(d.launches), closeErr: d.CloseErr}
	d.browsers = append(d.browsers, b)
	return b, nil
}

// Launches returns how many launches were attempted
func (d *Driver) Launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

// Proxies returns the proxy of every launch attempt
func (d *Driver) Proxies() []*browser.Proxy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*browser.Proxy(nil), d.proxies...)
}

// Browsers returns every browser launched so far
func (d *Driver) Browsers() []*Browser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Browser(nil), d.browsers...)
}

// Browser is a fake browser.Browser owning a single page
type Browser struct {
	ID       int
	page     *Page
	closeErr error

	mu     sync.Mutex
	closed int
}

// NewPage returns the browser's page
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	return b.page, nil
}

// Page returns the browser's page for inspection
func (b *Browser) Page() *Page { return b.page }

// Close records the call and returns the configured error
func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return b.closeErr
}

// Closed reports how many times Close was called
func (b *Browser) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Visit is one navigation as the fake server saw it
type Visit struct {
	URL      string
	Method   string
	PostData string
	Headers  map[string]string
	Cookies  []browser.CookieParam
}

// Page is a scriptable browser.Page
type Page struct {
	// TitleFunc, when set, computes the title from the number of prior calls
	TitleFunc func(call int) (string, error)
	// EvaluateFunc, when set, answers Evaluate before the defaults
	EvaluateFunc func(script string) (any, error)
	// OnVisit lets tests play the server: it runs after each navigation
	OnVisit func(p *Page, v Visit)
	// GotoErr, when set, fails every navigation
	GotoErr error
	// Hang, when set, makes every navigation wait for its context to end
	Hang bool
	// RequestURL, when set, rewrites a navigation URL into the form the
	// browser puts on the wire
	RequestURL func(url string) string

	mu         sync.Mutex
	url        string
	title      string
	html       string
	counts     map[string]int
	frames     []string
	userAgent  string
	cookies    []browser.Cookie
	added      []browser.CookieParam
	screenshot []byte
	titleCalls int

	visits      []Visit
	evaluated   []string
	initScripts []string
	clicks      [][2]float64
	router      browser.Router
}

// NewPage builds a blank page whose user agent encodes the browser id
func NewPage(browserID int) *Page {
	return &Page{
		url:        "about:blank",
		counts:     map[string]int{},
		userAgent:  fmt.Sprintf("Mozilla/5.0 (X11; Linux x86_64) FakeBrowser/%d", browserID),
		screenshot: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"),
	}
}

// SetTitle sets the document title
func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

// SetHTML sets the document markup
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// SetCount sets how many elements match selector
func (p *Page) SetCount(selector string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[selector] = n
}

// SetFrames sets the frame URLs
func (p *Page) SetFrames(urls ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = urls
}

// SetCookies replaces the cookie jar
func (p *Page) SetCookies(cookies ...browser.Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = cookies
}

// SetScreenshot sets the bytes returned by Screenshot
func (p *Page) SetScreenshot(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshot = b
}

// UserAgent returns the page's user agent
func (p *Page) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userAgent
}

// Visits returns every navigation performed so far
func (p *Page) Visits() []Visit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Visit(nil), p.visits...)
}

// Evaluated returns every evaluated script
func (p *Page) Evaluated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.evaluated...)
}

// InitScripts returns every registered init script
func (p *Page) InitScripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.initScripts...)
}

// Clicks returns every click position
func (p *Page) Clicks() [][2]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]float64(nil), p.clicks...)
}

// AddedCookies returns every cookie added through AddCookies
func (p *Page) AddedCookies() []browser.CookieParam {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.CookieParam(nil), p.added...)
}

// Routes returns the number of registered route handlers
func (p *Page) Routes() int {
	return p.router.Len()
}

// Intercept feeds a request through the registered routes as the backend
// would for a subresource fetch.
func (p *Page) Intercept(req browser.Request) *Decision {
	d := &Decision{req: req}
	p.router.Dispatch(d)
	return d
}

func (p *Page) Goto(ctx context.Context, url string, waitUntil browser.WaitUntil) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.GotoErr != nil {
		return p.GotoErr
	}
	if p.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.RequestURL != nil {
		url = p.RequestURL(url)
	}

	d := p.Intercept(browser.Request{
		URL:          url,
		Method:       "GET",
		ResourceType: browser.ResourceDocument,
		Headers:      map[string]string{},
	})
	if d.Aborted {
		return ErrBlockedByClient
	}

	visit := Visit{URL: url, Method: "GET", Headers: map[string]string{}}
	if o := d.Override; o != nil {
		if o.Method != "" {
			visit.Method = o.Method
		}
		visit.PostData = string(o.PostData)
		for k, v := range o.Headers {
			visit.Headers[strings.ToLower(k)] = v
		}
	}

	p.mu.Lock()
	p.url = url
	visit.Cookies = append([]browser.CookieParam(nil), p.added...)
	p.visits = append(p.visits, visit)
	onVisit := p.OnVisit
	p.mu.Unlock()

	if onVisit != nil {
		onVisit(p, visit)
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// SetURL changes the current URL, as a redirect would
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	call := p.titleCalls
	p.titleCalls++
	if p.TitleFunc != nil {
		return p.TitleFunc(call)
	}
	return p.title, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[selector], nil
}

func (p *Page) FrameURLs(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{p.url}, p.frames...), nil
}

// Evaluate answers EvaluateFunc first, then recognises user-agent reads.
// Anything else yields nil.
func (p *Page) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.evaluated = append(p.evaluated, script)
	fn := p.EvaluateFunc
	ua := p.userAgent
	p.mu.Unlock()

	if fn != nil {
		v, err := fn(script)
		if v != nil || err != nil {
			return v, err
		}
	}
	if strings.Contains(script, "navigator.userAgent") {
		return ua, nil
	}
	return nil, nil
}

func (p *Page) AddInitScript(ctx context.Context, script string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initScripts = append(p.initScripts, script)
	return nil
}

func (p *Page) Route(ctx context.Context, pattern string, handler browser.RouteHandler) error {
	p.router.Add(pattern, handler)
	return nil
}

func (p *Page) Unroute(ctx context.Context, pattern string) error {
	p.router.Remove(pattern)
	return nil
}

func (p *Page) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Cookie(nil), p.cookies...), nil
}

func (p *Page) AddCookies(ctx context.Context, cookies []browser.CookieParam) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.added = append(p.added, cookies...)
	for _, c := range cookies {
		p.cookies = append(p.cookies, browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
			Session:  c.Expires == 0,
		})
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.screenshot...), nil
}

func (p *Page) Click(ctx context.Context, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, [2]float64{x, y})
	return nil
}

// Decision records what a route handler did with a request
type Decision struct {
	req      browser.Request
	Handled  bool
	Aborted  bool
	Override *browser.Override
}

func (d *Decision) Request() browser.Request { return d.req }

func (d *Decision) Continue(o *browser.Override) error {
	d.Handled = true
	d.Override = o
	return nil
}

func (d *Decision) Abort() error {
	d.Handled = true
	d.Aborted = true
	return nil
}
