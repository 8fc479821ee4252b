package captcha

import (
	"context"
	"fmt"
	"time"

	"github.com/mjlescano/playcha/internal/domain/challenge"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/shared/poll"
	"go.uber.org/zap"
)

const (
	defaultClickAttempts = 5
	defaultClickDelay    = 8 * time.Second
	defaultClickTick     = 500 * time.Millisecond

	// checkboxOffset is the distance of the checkbox from the widget's left edge
	checkboxOffset = 30
)

// ClickSolver presses the widget checkbox the way a user would
type ClickSolver struct {
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	attempts int
	delay    time.Duration
	tick     time.Duration
}

// ClickOption tunes a ClickSolver
type ClickOption func(*ClickSolver)

// WithAttempts sets how many clicks are tried and how long to wait for
// each to take effect.
func WithAttempts(n int, delay time.Duration) ClickOption {
	return func(s *ClickSolver) {
		s.attempts = n
		s.delay = delay
	}
}

// WithClickTick sets how often the page is checked after a click
func WithClickTick(d time.Duration) ClickOption {
	return func(s *ClickSolver) { s.tick = d }
}

// NewClickSolver creates a click solver
func NewClickSolver(logger *logging.Logger, metrics *monitoring.Metrics, opts ...ClickOption) *ClickSolver {
	s := &ClickSolver{
		logger:   logger.Named("click"),
		metrics:  metrics,
		attempts: defaultClickAttempts,
		delay:    defaultClickDelay,
		tick:     defaultClickTick,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ClickSolver) Name() string { return "click" }

// Enter opens shadow roots on every document the page loads
func (s *ClickSolver) Enter(ctx context.Context, page browser.Page) error {
	return page.AddInitScript(ctx, openShadowRootsScript)
}

func (s *ClickSolver) Exit(ctx context.Context, page browser.Page) error {
	return nil
}

// Solve clicks the widget until it produces a token or goes away
func (s *ClickSolver) Solve(ctx context.Context, page browser.Page, kind challenge.Kind) (token string, err error) {
	t := timer(s.metrics, s.Name())
	defer func() { t.Stop(outcome(err)) }()

	clicks := 0
	for clicks < s.attempts {
		box, found := s.locate(ctx, page)
		if !found {
			if clicks > 0 {
				s.logger.Debug("Widget gone after click", zap.Int("clicks", clicks))
				return s.readToken(ctx, page), nil
			}
			// nothing pressed yet, wait for the widget to render
			if err := poll.Sleep(ctx, s.tick); err != nil {
				return "", fmt.Errorf("widget never rendered: %w", err)
			}
			continue
		}

		clicks++
		x := box[0] + checkboxOffset
		y := box[1] + box[3]/2
		s.logger.Debug("Clicking widget",
			zap.Stringer("kind", kind),
			zap.Int("attempt", clicks),
			zap.Float64("x", x),
			zap.Float64("y", y),
		)
		if err := page.Click(ctx, x, y); err != nil {
			s.logger.Debug("Click failed", zap.Error(err))
		}

		ok, err := poll.Until(ctx, s.tick, time.Now().Add(s.delay), func(ctx context.Context) (bool, error) {
			if token = s.readToken(ctx, page); token != "" {
				return true, nil
			}
			_, present := s.locate(ctx, page)
			return !present, nil
		})
		if err != nil {
			return "", err
		}
		if ok {
			s.logger.Info("Widget cleared by click", zap.Int("attempt", clicks), zap.Bool("token", token != ""))
			return token, nil
		}
	}
	return "", fmt.Errorf("widget still present after %d click attempts", s.attempts)
}

func (s *ClickSolver) locate(ctx context.Context, page browser.Page) ([4]float64, bool) {
	v, err := page.Evaluate(ctx, locateWidgetScript)
	if err != nil {
		return [4]float64{}, false
	}
	return toBox(v)
}

func (s *ClickSolver) readToken(ctx context.Context, page browser.Page) string {
	v, err := page.Evaluate(ctx, readTokenScript)
	if err != nil {
		return ""
	}
	token, _ := v.(string)
	return token
}

func toBox(v any) ([4]float64, bool) {
	var box [4]float64
	items, ok := v.([]any)
	if !ok || len(items) != 4 {
		return box, false
	}
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return box, false
		}
		box[i] = f
	}
	return box, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
