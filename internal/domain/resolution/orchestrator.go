package resolution

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mjlescano/playcha/internal/domain/challenge"
	"github.com/mjlescano/playcha/internal/domain/session"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/infrastructure/tracing"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/providers/captcha"
	"github.com/mjlescano/playcha/internal/shared/apperr"
	"github.com/mjlescano/playcha/internal/shared/poll"
	"github.com/mjlescano/playcha/internal/shared/types"
	"go.uber.org/zap"
)

const (
	// mediaPattern matches every request of the page
	mediaPattern = "**/*"
	formType     = "application/x-www-form-urlencoded"
)

// SolverSource hands out the configured solver
type SolverSource interface {
	Solver() (captcha.Solver, error)
}

// Result is a successful resolution
type Result struct {
	Message  string
	Solution *types.Solution
}

// Orchestrator resolves requests against sessions or throwaway browsers
type Orchestrator struct {
	store    *session.Store
	driver   browser.Driver
	solvers  SolverSource
	detector *challenge.Detector
	resolver *challenge.Resolver
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// New creates an orchestrator
func New(
	store *session.Store,
	driver browser.Driver,
	solvers SolverSource,
	detector *challenge.Detector,
	resolver *challenge.Resolver,
	logger *logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:    store,
		driver:   driver,
		solvers:  solvers,
		detector: detector,
		resolver: resolver,
		logger:   logger.Named("resolution"),
	}
}

// WithMetrics enables resolution metrics
func (o *Orchestrator) WithMetrics(metrics *monitoring.Metrics) *Orchestrator {
	o.metrics = metrics
	return o
}

// WithTracer enables resolution spans
func (o *Orchestrator) WithTracer(tracer *tracing.Tracer) *Orchestrator {
	o.tracer = tracer
	return o
}

// Resolve fetches req.URL, clearing any challenge on the way. Every browser
// resource acquired for the request is released before it returns.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (*Result, error) {
	span, ctx := o.tracer.StartSpan(ctx, "resolution.resolve")
	span.SetTag("method", req.Method)
	span.SetTag("url", req.URL)
	if req.SessionID != "" {
		span.SetTag("session", req.SessionID)
	}
	defer o.tracer.Finish(span)

	start := time.Now()
	res, err := o.resolve(ctx, req)

	outcome := outcomeOf(res, err)
	span.SetTag("outcome", outcome)
	if err != nil {
		span.SetError(err)
	}
	if o.metrics != nil {
		o.metrics.RecordResolution(outcome, time.Since(start))
	}
	return res, err
}

func (o *Orchestrator) resolve(ctx context.Context, req Request) (*Result, error) {
	log := o.logger.With(tracing.Fields(ctx)...).With(zap.String("url", req.URL))

	page, release, err := o.acquire(ctx, req, log)
	if err != nil {
		return nil, err
	}
	defer release()

	if req.DisableMedia {
		if err := page.Route(ctx, mediaPattern, blockMedia); err != nil {
			return nil, apperr.Driver("block media", err)
		}
		defer func() {
			if err := page.Unroute(context.WithoutCancel(ctx), mediaPattern); err != nil {
				log.Debug("Error removing media filter", zap.Error(err))
			}
		}()
	}

	// the solver's init scripts must be registered before the first load
	solver, err := o.solvers.Solver()
	if err != nil {
		return nil, err
	}
	if err := solver.Enter(ctx, page); err != nil {
		return nil, apperr.Driver("prepare solver", err)
	}
	defer func() {
		if err := solver.Exit(context.WithoutCancel(ctx), page); err != nil {
			log.Debug("Error releasing solver", zap.Error(err))
		}
	}()

	if err := o.navigate(ctx, page, req); err != nil {
		return nil, err
	}
	if len(req.Cookies) > 0 {
		if err := page.AddCookies(ctx, withDefaultURL(req.Cookies, req.URL)); err != nil {
			return nil, apperr.Driver("add cookies", err)
		}
		// cookies only count once the page is loaded again
		if err := o.navigate(ctx, page, req); err != nil {
			return nil, err
		}
	}

	state, err := o.detector.Detect(ctx, page)
	if err != nil {
		return nil, err
	}

	message := MessageNotDetected
	var token string
	if state.Present() {
		out, err := o.resolver.Resolve(ctx, page, state, solver, req.Timeout)
		if err != nil {
			return nil, err
		}
		token = out.Token
		message = MessageSolved
	}
	log.Info(message)

	solution, err := o.assemble(ctx, page, req, token, log)
	if err != nil {
		return nil, err
	}
	return &Result{Message: message, Solution: solution}, nil
}

// acquire returns the page to work on and the func releasing it
func (o *Orchestrator) acquire(ctx context.Context, req Request, log *logging.Logger) (browser.Page, func(), error) {
	if req.SessionID != "" {
		sess, fresh, err := o.store.Get(ctx, req.SessionID, req.SessionTTL, req.Proxy)
		if err != nil {
			return nil, nil, apperr.Driver("acquire session", err)
		}
		log.Debug("Using session",
			zap.String("session", sess.ID),
			zap.Bool("fresh", fresh),
			zap.Duration("lifetime", sess.Lifetime(time.Now())),
		)
		return sess.Page, func() {}, nil
	}

	b, page, err := session.Open(ctx, o.driver, req.Proxy)
	if o.metrics != nil {
		o.metrics.RecordBrowserLaunch("throwaway", err)
	}
	if err != nil {
		return nil, nil, apperr.Driver("launch browser", err)
	}
	log.Debug("Temporary browser launched for request")

	return page, func() {
		if err := session.Close(b); err != nil {
			log.Warn("Error closing temporary browser", zap.Error(err))
		}
	}, nil
}

func (o *Orchestrator) navigate(ctx context.Context, page browser.Page, req Request) error {
	navCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var err error
	if req.IsPost() {
		err = navigatePost(navCtx, page, req.URL, req.PostData)
	} else {
		err = page.Goto(navCtx, req.URL, browser.WaitDOMContentLoaded)
	}
	if err != nil {
		return apperr.Driver(fmt.Sprintf("navigate to %s", req.URL), err)
	}
	return apperr.Driver("run deferred scripts", browser.Flush(ctx, page))
}

// navigatePost loads url with a form body by rewriting the first request
// for it, since pages can only navigate with GET.
func navigatePost(ctx context.Context, page browser.Page, url, postData string) error {
	var used atomic.Bool
	rewrite := func(route browser.Route) {
		if used.Swap(true) {
			_ = route.Continue(nil)
			return
		}
		_ = route.Continue(&browser.Override{
			Method:   "POST",
			PostData: []byte(postData),
			Headers: browser.MergeHeaders(route.Request().Headers, map[string]string{
				"content-type": formType,
			}),
		})
	}

	if err := page.Route(ctx, url, rewrite); err != nil {
		return err
	}
	defer func() { _ = page.Unroute(context.WithoutCancel(ctx), url) }()

	return page.Goto(ctx, url, browser.WaitDOMContentLoaded)
}

func blockMedia(route browser.Route) {
	switch route.Request().ResourceType {
	case browser.ResourceImage, browser.ResourceStylesheet, browser.ResourceFont:
		_ = route.Abort()
	default:
		_ = route.Continue(nil)
	}
}

func (o *Orchestrator) assemble(ctx context.Context, page browser.Page, req Request, token string, log *logging.Logger) (*types.Solution, error) {
	url, err := page.URL(ctx)
	if err != nil {
		return nil, apperr.Driver("read page url", err)
	}
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return nil, apperr.Driver("read cookies", err)
	}

	solution := &types.Solution{
		URL:       url,
		Status:    200,
		Cookies:   toCookies(cookies),
		UserAgent: userAgent(ctx, page),
	}

	if token == "" && o.detector.TurnstilePresent(ctx, page) {
		if html, err := page.Content(ctx); err == nil {
			token = challenge.HarvestToken(html)
		}
	}
	solution.TurnstileToken = token

	if !req.OnlyCookies {
		solution.Headers = map[string]string{}
		if req.Wait > 0 {
			log.Info("Waiting before capturing response", zap.Duration("wait", req.Wait))
			if err := poll.Sleep(ctx, req.Wait); err != nil {
				return nil, apperr.Driver("wait", err)
			}
		}
		html, err := page.Content(ctx)
		if err != nil {
			return nil, apperr.Driver("read page content", err)
		}
		solution.Response = &html
	}

	if req.Screenshot {
		raw, err := page.Screenshot(ctx)
		if err != nil {
			return nil, apperr.Driver("take screenshot", err)
		}
		if mt := mimetype.Detect(raw); !mt.Is("image/png") {
			return nil, apperr.Driver("take screenshot", fmt.Errorf("unexpected image type %s", mt.String()))
		}
		solution.Screenshot = base64.StdEncoding.EncodeToString(raw)
	}
	return solution, nil
}

func userAgent(ctx context.Context, page browser.Page) string {
	v, err := page.Evaluate(ctx, "() => navigator.userAgent")
	if err != nil {
		return ""
	}
	ua, _ := v.(string)
	return ua
}

func withDefaultURL(cookies []browser.CookieParam, url string) []browser.CookieParam {
	out := make([]browser.CookieParam, len(cookies))
	for i, c := range cookies {
		if c.URL == "" && c.Domain == "" {
			c.URL = url
		}
		out[i] = c
	}
	return out
}

func toCookies(in []browser.Cookie) []types.Cookie {
	out := make([]types.Cookie, 0, len(in))
	for _, c := range in {
		out = append(out, types.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Size:     c.Size,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: c.SameSite,
		})
	}
	return out
}

func outcomeOf(res *Result, err error) string {
	if err == nil {
		if res != nil && res.Message == MessageSolved {
			return "solved"
		}
		return "not_detected"
	}
	switch apperr.KindOf(err) {
	case apperr.KindBlocked:
		return "blocked"
	case apperr.KindChallengeTimeout:
		return "timeout"
	default:
		return "error"
	}
}
