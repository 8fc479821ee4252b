package cdpbrowser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"go.uber.org/zap"
)

// Page adapts a chromedp tab context to browser.Page
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	browser *Browser
	logger  *logging.Logger
	router  browser.Router

	mu           sync.Mutex
	intercepting bool
}

// run executes actions on the tab, giving up when either the tab or ctx ends
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// exec runs a single CDP command from an event listener goroutine
func (p *Page) exec(action chromedp.Action) error {
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return fmt.Errorf("tab is gone")
	}
	return action.Do(cdp.WithExecutor(p.ctx, c.Target))
}

// Goto navigates and waits for the load event. chromedp has no lighter
// milestone, so both WaitUntil values behave the same here.
func (p *Page) Goto(ctx context.Context, url string, _ browser.WaitUntil) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var url string
	err := p.run(ctx, chromedp.Location(&url))
	return url, err
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *Page) Content(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html))
	return html, err
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	quoted, err := sonic.MarshalString(selector)
	if err != nil {
		return 0, err
	}
	var n int
	err = p.run(ctx, chromedp.Evaluate("document.querySelectorAll("+quoted+").length", &n))
	return n, err
}

// FrameURLs walks the frame tree and adds out-of-process iframes, which
// Chromium reports as separate targets.
func (p *Page) FrameURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := cdppage.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		var walk func(t *cdppage.FrameTree)
		walk = func(t *cdppage.FrameTree) {
			if t == nil || t.Frame == nil {
				return
			}
			urls = append(urls, t.Frame.URL)
			for _, child := range t.ChildFrames {
				walk(child)
			}
		}
		walk(tree)

		infos, err := target.GetTargets().Do(ctx)
		if err != nil {
			return nil
		}
		for _, info := range infos {
			if info.Type == "iframe" {
				urls = append(urls, info.URL)
			}
		}
		return nil
	}))
	return urls, err
}

// Evaluate calls the function expression script and returns its JSON value.
// An undefined result comes back as nil.
func (p *Page) Evaluate(ctx context.Context, script string) (any, error) {
	expr := "(async () => { const v = await (" + script + ")(); return v === undefined ? null : v })()"

	var res any
	err := p.run(ctx, chromedp.Evaluate(expr, &res, func(e *runtime.EvaluateParams) *runtime.EvaluateParams {
		return e.WithAwaitPromise(true)
	}))
	return res, err
}

func (p *Page) AddInitScript(ctx context.Context, script string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument("(" + script + ")()").Do(ctx)
		return err
	}))
}

func (p *Page) Route(ctx context.Context, pattern string, handler browser.RouteHandler) error {
	p.router.Add(pattern, handler)
	return p.intercept(ctx)
}

func (p *Page) Unroute(ctx context.Context, pattern string) error {
	p.router.Remove(pattern)
	return nil
}

func (p *Page) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	var cookies []*network.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return fromNetworkCookies(cookies), nil
}

func (p *Page) AddCookies(ctx context.Context, cookies []browser.CookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	return p.run(ctx, network.SetCookies(toCookieParams(cookies)))
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (p *Page) Click(ctx context.Context, x, y float64) error {
	return p.run(ctx, chromedp.MouseClickXY(x, y))
}

// intercept enables the Fetch domain for every request of the tab. Once on
// it stays on; requests no route claims are continued unchanged.
func (p *Page) intercept(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.intercepting {
		return nil
	}

	chromedp.ListenTarget(p.ctx, func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go p.onPaused(e)
		case *fetch.EventAuthRequired:
			go p.onAuth(e)
		}
	})

	enable := fetch.Enable().
		WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}).
		WithHandleAuthRequests(p.browser.auth != nil)
	if err := p.run(ctx, enable); err != nil {
		return fmt.Errorf("enable interception: %w", err)
	}
	p.intercepting = true
	return nil
}

func (p *Page) onPaused(e *fetch.EventRequestPaused) {
	headers := make(map[string]string, len(e.Request.Headers))
	for k, v := range e.Request.Headers {
		headers[k] = fmt.Sprint(v)
	}

	route := &pausedRoute{
		page: p,
		id:   e.RequestID,
		req: browser.Request{
			URL:          e.Request.URL,
			Method:       e.Request.Method,
			ResourceType: browser.ParseResourceType(string(e.ResourceType)),
			Headers:      headers,
		},
	}
	p.router.Dispatch(route)
	if !route.decided {
		if err := route.Continue(nil); err != nil {
			p.logger.Debug("Continue request failed", zap.String("url", e.Request.URL), zap.Error(err))
		}
	}
}

func (p *Page) onAuth(e *fetch.EventAuthRequired) {
	resp := &fetch.AuthChallengeResponse{Response: fetch.AuthChallengeResponseResponseDefault}
	if auth := p.browser.auth; auth != nil && e.AuthChallenge.Source == fetch.AuthChallengeSourceProxy {
		resp = &fetch.AuthChallengeResponse{
			Response: fetch.AuthChallengeResponseResponseProvideCredentials,
			Username: auth.username,
			Password: auth.password,
		}
	}
	if err := p.exec(fetch.ContinueWithAuth(e.RequestID, resp)); err != nil {
		p.logger.Warn("Proxy authentication failed", zap.Error(err))
	}
}

type pausedRoute struct {
	page    *Page
	id      fetch.RequestID
	req     browser.Request
	decided bool
}

func (r *pausedRoute) Request() browser.Request { return r.req }

func (r *pausedRoute) Continue(o *browser.Override) error {
	r.decided = true
	cq := fetch.ContinueRequest(r.id)
	if o != nil {
		if o.Method != "" {
			cq = cq.WithMethod(o.Method)
		}
		if o.PostData != nil {
			cq = cq.WithPostData(base64.StdEncoding.EncodeToString(o.PostData))
		}
		if len(o.Headers) > 0 {
			var entries []*fetch.HeaderEntry
			for k, v := range browser.MergeHeaders(r.req.Headers, o.Headers) {
				entries = append(entries, &fetch.HeaderEntry{Name: k, Value: v})
			}
			cq = cq.WithHeaders(entries)
		}
	}
	return r.page.exec(cq)
}

func (r *pausedRoute) Abort() error {
	r.decided = true
	return r.page.exec(fetch.FailRequest(r.id, network.ErrorReasonBlockedByClient))
}
