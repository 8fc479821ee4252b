package challenge

import (
	"context"

	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/shared/apperr"
	"go.uber.org/zap"
)

// BlockedMessage is reported when the origin banned the client outright
const BlockedMessage = "Cloudflare has blocked this request. Probably your IP is banned for this site, check in your web browser."

// State classifies a loaded page
type State int

const (
	StateClear State = iota
	StateBlocked
	StateNonInteractive
	StateInteractive
)

func (s State) String() string {
	switch s {
	case StateClear:
		return "clear"
	case StateBlocked:
		return "blocked"
	case StateNonInteractive:
		return "challenge_noninteractive"
	case StateInteractive:
		return "challenge_interactive"
	default:
		return "unknown"
	}
}

// Present reports whether a challenge needs resolving
func (s State) Present() bool {
	return s == StateNonInteractive || s == StateInteractive
}

// Kind labels the challenge for the solver
type Kind int

const (
	KindInterstitial Kind = iota
	KindTurnstile
)

func (k Kind) String() string {
	if k == KindTurnstile {
		return "turnstile"
	}
	return "interstitial"
}

// Detector classifies pages. It keeps no state between calls.
type Detector struct {
	table  Table
	logger *logging.Logger
}

// NewDetector creates a detector over table
func NewDetector(table Table, logger *logging.Logger) *Detector {
	return &Detector{table: table, logger: logger.Named("detector")}
}

// Table returns the detection table in use
func (d *Detector) Table() Table {
	return d.table
}

// Detect classifies the page. A banned client yields StateBlocked together
// with a Blocked error, whatever challenge markers are also present.
func (d *Detector) Detect(ctx context.Context, page browser.Page) (State, error) {
	title, err := page.Title(ctx)
	if err != nil {
		return StateClear, apperr.Driver("read page title", err)
	}

	if d.table.IsAccessDeniedTitle(title) || d.anyPresent(ctx, page, d.table.AccessDeniedSelectors) {
		d.logger.Warn("Access denied page detected", zap.String("title", title))
		return StateBlocked, apperr.Blocked(BlockedMessage)
	}

	switch {
	case d.table.IsChallengeTitle(title):
		d.logger.Info("Challenge detected", zap.String("title", title))
	case d.anyPresent(ctx, page, d.table.ChallengeSelectors):
		d.logger.Info("Challenge detected via selector")
	default:
		return StateClear, nil
	}

	if d.TurnstilePresent(ctx, page) || d.WidgetPresent(ctx, page) {
		return StateInteractive, nil
	}
	return StateNonInteractive, nil
}

// StillPresent re-checks the challenge title and selectors. A title that
// cannot be read counts as gone since it usually means the page is
// navigating away from the challenge.
func (d *Detector) StillPresent(ctx context.Context, page browser.Page) bool {
	title, err := page.Title(ctx)
	if err != nil {
		d.logger.Debug("Title unavailable, assuming navigation", zap.Error(err))
		return false
	}
	if d.table.IsChallengeTitle(title) {
		return true
	}
	return d.anyPresent(ctx, page, d.table.ChallengeSelectors)
}

// WidgetPresent reports whether an interactive widget frame is on the page,
// either in the DOM or as a cross-origin frame the DOM cannot see into.
func (d *Detector) WidgetPresent(ctx context.Context, page browser.Page) bool {
	if d.anyPresent(ctx, page, d.table.WidgetFrameSelectors) {
		return true
	}
	urls, err := page.FrameURLs(ctx)
	if err != nil {
		return false
	}
	for _, u := range urls {
		if d.table.IsWidgetURL(u) {
			d.logger.Debug("Widget frame found", zap.String("url", u))
			return true
		}
	}
	return false
}

// TurnstilePresent reports whether the Turnstile response input exists
func (d *Detector) TurnstilePresent(ctx context.Context, page browser.Page) bool {
	return d.anyPresent(ctx, page, d.table.TurnstileSelectors)
}

// Kind labels the challenge for the solver. Widget presence wins; the
// title only ever yields the interstitial fallback.
func (d *Detector) Kind(ctx context.Context, page browser.Page) Kind {
	if d.TurnstilePresent(ctx, page) || d.WidgetPresent(ctx, page) {
		return KindTurnstile
	}
	return KindInterstitial
}

// anyPresent ignores probe failures; a selector that cannot be evaluated
// simply does not match.
func (d *Detector) anyPresent(ctx context.Context, page browser.Page, selectors []string) bool {
	for _, sel := range selectors {
		n, err := page.Count(ctx, sel)
		if err != nil {
			continue
		}
		if n > 0 {
			return true
		}
	}
	return false
}
