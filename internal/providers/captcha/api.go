package captcha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mjlescano/playcha/internal/domain/challenge"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/providers/http/client"
	"github.com/mjlescano/playcha/internal/shared/apperr"
	"github.com/mjlescano/playcha/internal/shared/poll"
	"go.uber.org/zap"
)

// notReady is the res.php reply while a worker is still on the task
const notReady = "CAPCHA_NOT_READY"

// Provider describes a solving service speaking the in.php/res.php protocol
type Provider struct {
	Name    string
	BaseURL string
	// KeyEnv names the environment variable holding the API key
	KeyEnv string
}

var (
	TwoCaptcha = Provider{Name: "twocaptcha", BaseURL: "https://2captcha.com", KeyEnv: "TWO_CAPTCHA_API_KEY"}
	TenCaptcha = Provider{Name: "tencaptcha", BaseURL: "https://10captcha.com", KeyEnv: "TEN_CAPTCHA_API_KEY"}
	CaptchaAI  = Provider{Name: "captchaai", BaseURL: "https://ocr.captchaai.com", KeyEnv: "CAPTCHA_AI_API_KEY"}
)

// TurnstileParams are the values a page passed to turnstile.render
type TurnstileParams struct {
	SiteKey  string
	Action   string
	CData    string
	PageData string
}

type apiReply struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// APISolver submits Turnstile tasks to a paid solving service
type APISolver struct {
	provider Provider
	key      string
	client   *client.Client
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	firstPoll time.Duration
	interval  time.Duration
}

// APIOption tunes an APISolver
type APIOption func(*APISolver)

// WithBaseURL points the solver at another endpoint
func WithBaseURL(url string) APIOption {
	return func(s *APISolver) { s.client.SetBaseURL(url) }
}

// WithRateLimit caps calls to the service per second, zero means unlimited
func WithRateLimit(rps float64) APIOption {
	return func(s *APISolver) { s.client.SetRateLimit(rps) }
}

// WithPolling sets the wait before the first result check and between
// subsequent ones.
func WithPolling(first, interval time.Duration) APIOption {
	return func(s *APISolver) {
		s.firstPoll = first
		s.interval = interval
	}
}

// NewAPISolver creates a solver for provider. An empty key makes the solver
// unavailable.
func NewAPISolver(provider Provider, key string, logger *logging.Logger, metrics *monitoring.Metrics, opts ...APIOption) (*APISolver, error) {
	if key == "" {
		return nil, apperr.SolverUnavailable("%s is required for %s solver.", provider.KeyEnv, provider.Name)
	}

	c := client.NewClient(client.DefaultOptions(provider.Name))
	c.SetBaseURL(provider.BaseURL)

	s := &APISolver{
		provider:  provider,
		key:       key,
		client:    c,
		logger:    logger.Named(provider.Name),
		metrics:   metrics,
		firstPoll: 10 * time.Second,
		interval:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *APISolver) Name() string { return s.provider.Name }

// Enter hooks turnstile.render so the widget parameters can be read back
func (s *APISolver) Enter(ctx context.Context, page browser.Page) error {
	return page.AddInitScript(ctx, hookTurnstileScript)
}

func (s *APISolver) Exit(ctx context.Context, page browser.Page) error {
	return nil
}

// Solve submits the widget to the service, waits for a token and injects it
func (s *APISolver) Solve(ctx context.Context, page browser.Page, kind challenge.Kind) (token string, err error) {
	t := timer(s.metrics, s.Name())
	defer func() { t.Stop(outcome(err)) }()

	params, err := s.params(ctx, page)
	if err != nil {
		return "", err
	}
	pageURL, err := page.URL(ctx)
	if err != nil {
		return "", apperr.Driver("read page url", err)
	}
	userAgent, _ := page.Evaluate(ctx, userAgentScript)
	ua, _ := userAgent.(string)

	taskID, err := s.submit(ctx, params, pageURL, ua)
	if err != nil {
		return "", err
	}
	s.logger.Info("Task submitted",
		zap.String("task", taskID),
		zap.Stringer("kind", kind),
		zap.String("sitekey", params.SiteKey),
	)

	token, err = s.await(ctx, taskID)
	if err != nil {
		return "", err
	}

	script, err := injectTokenScript(token)
	if err != nil {
		return "", err
	}
	if _, err := page.Evaluate(ctx, script); err != nil {
		return "", apperr.Driver("inject token", err)
	}
	return token, nil
}

// params prefers the values captured from turnstile.render and falls back
// to data attributes in the markup.
func (s *APISolver) params(ctx context.Context, page browser.Page) (TurnstileParams, error) {
	var p TurnstileParams
	if v, err := page.Evaluate(ctx, readTurnstileParamsScript); err == nil {
		if m, ok := v.(map[string]any); ok {
			p.SiteKey = str(m["sitekey"])
			p.Action = str(m["action"])
			p.CData = str(m["cData"])
			p.PageData = str(m["chlPageData"])
		}
	}
	if p.SiteKey != "" {
		return p, nil
	}

	html, err := page.Content(ctx)
	if err != nil {
		return p, apperr.Driver("read page content", err)
	}
	fromHTML, ok := ParseTurnstileParams(html)
	if !ok {
		return p, errors.New("turnstile sitekey not found on page")
	}
	return fromHTML, nil
}

// ParseTurnstileParams reads the widget parameters from data attributes
func ParseTurnstileParams(html string) (TurnstileParams, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return TurnstileParams{}, false
	}
	widget := doc.Find("[data-sitekey]").First()
	sitekey, ok := widget.Attr("data-sitekey")
	if !ok || sitekey == "" {
		return TurnstileParams{}, false
	}
	return TurnstileParams{
		SiteKey: sitekey,
		Action:  widget.AttrOr("data-action", ""),
		CData:   widget.AttrOr("data-cdata", ""),
	}, true
}

func (s *APISolver) submit(ctx context.Context, p TurnstileParams, pageURL, userAgent string) (string, error) {
	form := map[string]string{
		"key":     s.key,
		"method":  "turnstile",
		"sitekey": p.SiteKey,
		"pageurl": pageURL,
		"json":    "1",
	}
	optional := map[string]string{
		"action":    p.Action,
		"data":      p.CData,
		"pagedata":  p.PageData,
		"useragent": userAgent,
	}
	for k, v := range optional {
		if v != "" {
			form[k] = v
		}
	}

	reply, err := s.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetFormData(form).Post("/in.php")
	})
	if err != nil {
		return "", err
	}
	if reply.Status != 1 {
		return "", fmt.Errorf("%s rejected task: %s", s.provider.Name, reply.Request)
	}
	return reply.Request, nil
}

func (s *APISolver) await(ctx context.Context, taskID string) (string, error) {
	if err := poll.Sleep(ctx, s.firstPoll); err != nil {
		return "", err
	}

	query := map[string]string{
		"key":    s.key,
		"action": "get",
		"id":     taskID,
		"json":   "1",
	}
	for {
		reply, err := s.call(ctx, func(req *resty.Request) (*resty.Response, error) {
			return req.SetQueryParams(query).Get("/res.php")
		})
		if err != nil {
			return "", err
		}
		switch {
		case reply.Status == 1:
			return reply.Request, nil
		case reply.Request != notReady:
			return "", fmt.Errorf("%s failed task %s: %s", s.provider.Name, taskID, reply.Request)
		}

		s.logger.Debug("Task not ready", zap.String("task", taskID))
		if err := poll.Sleep(ctx, s.interval); err != nil {
			return "", err
		}
	}
}

func (s *APISolver) call(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (apiReply, error) {
	var reply apiReply

	req, err := s.client.Request(ctx)
	if err != nil {
		return reply, err
	}
	resp, err := s.client.ExecuteWithBreaker(func() (*resty.Response, error) {
		return send(req)
	})
	if err != nil {
		return reply, fmt.Errorf("%s request: %w", s.provider.Name, err)
	}
	if err := client.Decode(resp, &reply); err != nil {
		return reply, err
	}
	return reply, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
