package rodbrowser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/ysmood/gson"
	"go.uber.org/zap"
)

// Page adapts *rod.Page to browser.Page
type Page struct {
	page    *rod.Page
	browser *Browser
	logger  *logging.Logger
	router  browser.Router

	mu           sync.Mutex
	intercepting bool
}

func (p *Page) Goto(ctx context.Context, url string, waitUntil browser.WaitUntil) error {
	// cancelling the waiter's context drops its event subscription when
	// Navigate fails before wait is called
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pg := p.page.Context(waitCtx)

	event := proto.PageLifecycleEventNameDOMContentLoaded
	if waitUntil == browser.WaitLoad {
		event = proto.PageLifecycleEventNameLoad
	}
	wait := pg.WaitNavigation(event)

	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	wait()
	return ctx.Err()
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// FrameURLs walks the frame tree and adds out-of-process iframes, which
// Chromium reports as separate targets.
func (p *Page) FrameURLs(ctx context.Context) ([]string, error) {
	pg := p.page.Context(ctx)

	tree, err := proto.PageGetFrameTree{}.Call(pg)
	if err != nil {
		return nil, err
	}
	var urls []string
	var walk func(t *proto.PageFrameTree)
	walk = func(t *proto.PageFrameTree) {
		if t == nil {
			return
		}
		urls = append(urls, t.Frame.URL)
		for _, child := range t.ChildFrames {
			walk(child)
		}
	}
	walk(tree.FrameTree)

	targets, err := proto.TargetGetTargets{}.Call(p.browser.rod.Context(ctx))
	if err != nil {
		return urls, nil
	}
	for _, t := range targets.TargetInfos {
		if string(t.Type) == "iframe" {
			urls = append(urls, t.URL)
		}
	}
	return urls, nil
}

func (p *Page) Evaluate(ctx context.Context, script string) (any, error) {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval(script).ByPromise())
	if err != nil {
		return nil, err
	}
	return jsValue(res.Value), nil
}

// jsValue unwraps an evaluation result. undefined and null both become nil.
func jsValue(v gson.JSON) any {
	if v.Nil() {
		return nil
	}
	return v.Val()
}

func (p *Page) AddInitScript(ctx context.Context, script string) error {
	_, err := p.page.Context(ctx).EvalOnNewDocument("(" + script + ")()")
	return err
}

func (p *Page) Route(ctx context.Context, pattern string, handler browser.RouteHandler) error {
	p.router.Add(pattern, handler)
	return p.intercept()
}

func (p *Page) Unroute(ctx context.Context, pattern string) error {
	p.router.Remove(pattern)
	return nil
}

func (p *Page) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	res, err := proto.StorageGetCookies{}.Call(p.browser.rod.Context(ctx))
	if err != nil {
		return nil, err
	}
	return fromNetworkCookies(res.Cookies), nil
}

func (p *Page) AddCookies(ctx context.Context, cookies []browser.CookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	return p.page.Context(ctx).SetCookies(toCookieParams(cookies))
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *Page) Click(ctx context.Context, x, y float64) error {
	mouse := p.page.Context(ctx).Mouse
	if err := mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return err
	}
	return mouse.Click(proto.InputMouseButtonLeft, 1)
}

// intercept enables the Fetch domain for every request of the page. Once on
// it stays on; requests no route claims are continued unchanged.
func (p *Page) intercept() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.intercepting {
		return nil
	}

	wait := p.page.EachEvent(
		func(e *proto.FetchRequestPaused) { p.onPaused(e) },
		func(e *proto.FetchAuthRequired) { p.onAuth(e) },
	)
	go wait()

	err := proto.FetchEnable{
		Patterns:           []*proto.FetchRequestPattern{{URLPattern: "*"}},
		HandleAuthRequests: p.browser.auth != nil,
	}.Call(p.page)
	if err != nil {
		return fmt.Errorf("enable interception: %w", err)
	}
	p.intercepting = true
	return nil
}

func (p *Page) onPaused(e *proto.FetchRequestPaused) {
	headers := make(map[string]string, len(e.Request.Headers))
	for k, v := range e.Request.Headers {
		headers[k] = v.Str()
	}

	route := &pausedRoute{
		page: p.page,
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

func (p *Page) onAuth(e *proto.FetchAuthRequired) {
	resp := &proto.FetchAuthChallengeResponse{Response: proto.FetchAuthChallengeResponseResponseDefault}
	if auth := p.browser.auth; auth != nil && e.AuthChallenge.Source == proto.FetchAuthChallengeSourceProxy {
		resp = &proto.FetchAuthChallengeResponse{
			Response: proto.FetchAuthChallengeResponseResponseProvideCredentials,
			Username: auth.username,
			Password: auth.password,
		}
	}
	err := proto.FetchContinueWithAuth{RequestID: e.RequestID, AuthChallengeResponse: resp}.Call(p.page)
	if err != nil {
		p.logger.Warn("Proxy authentication failed", zap.Error(err))
	}
}

type pausedRoute struct {
	page    *rod.Page
	id      proto.FetchRequestID
	req     browser.Request
	decided bool
}

func (r *pausedRoute) Request() browser.Request { return r.req }

func (r *pausedRoute) Continue(o *browser.Override) error {
	r.decided = true
	cq := proto.FetchContinueRequest{RequestID: r.id}
	if o != nil {
		cq.Method = o.Method
		cq.PostData = o.PostData
		if len(o.Headers) > 0 {
			for k, v := range browser.MergeHeaders(r.req.Headers, o.Headers) {
				cq.Headers = append(cq.Headers, &proto.FetchHeaderEntry{Name: k, Value: v})
			}
		}
	}
	return cq.Call(r.page)
}

func (r *pausedRoute) Abort() error {
	r.decided = true
	return proto.FetchFailRequest{
		RequestID:   r.id,
		ErrorReason: proto.NetworkErrorReasonBlockedByClient,
	}.Call(r.page)
}
