package captcha

import (
	"context"
	"errors"

	"github.com/mjlescano/playcha/internal/domain/challenge"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/providers/browser"
)

// Solver clears interactive challenge widgets
type Solver interface {
	Name() string
	// Enter prepares page before navigation, typically by registering init
	// scripts. It may be called again for a page that was already entered.
	Enter(ctx context.Context, page browser.Page) error
	// Exit releases whatever Enter acquired
	Exit(ctx context.Context, page browser.Page) error
	// Solve clears the widget on page before ctx ends, returning the proof
	// token when one is known.
	Solve(ctx context.Context, page browser.Page, kind challenge.Kind) (string, error)
}

// outcome maps a solve result to a metrics status
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func timer(m *monitoring.Metrics, name string) *monitoring.Timer {
	if m == nil {
		return nil
	}
	return monitoring.NewTimer(m, name)
}
