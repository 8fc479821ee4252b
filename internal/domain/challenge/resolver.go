package challenge

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/shared/apperr"
	"github.com/mjlescano/playcha/internal/shared/poll"
	"go.uber.org/zap"
)

const (
	defaultTick      = time.Second
	defaultSettle    = 2 * time.Second
	defaultFinalWait = 15 * time.Second
	defaultMinSolve  = 5 * time.Second
)

// Phase is a resolver state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDetecting
	PhaseWaitingForInteractive
	PhaseSolving
	PhaseSolved
	PhaseTimedOut
	PhaseBlockedFatal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDetecting:
		return "detecting"
	case PhaseWaitingForInteractive:
		return "waiting_for_interactive"
	case PhaseSolving:
		return "solving"
	case PhaseSolved:
		return "solved"
	case PhaseTimedOut:
		return "timed_out"
	case PhaseBlockedFatal:
		return "blocked_fatal"
	default:
		return "unknown"
	}
}

// Solver clears an interactive widget, optionally returning a proof token.
// It must give up once ctx is done.
type Solver interface {
	Solve(ctx context.Context, page browser.Page, kind Kind) (string, error)
}

// Outcome is the terminal result of a resolution
type Outcome struct {
	Phase Phase
	Kind  Kind
	Token string
	// Solver is true when the solver was invoked
	Solver bool
}

// Resolver drives a detected challenge to completion
type Resolver struct {
	detector *Detector
	logger   *logging.Logger

	tick      time.Duration
	settle    time.Duration
	finalWait time.Duration
	minSolve  time.Duration
}

// Option tunes a Resolver
type Option func(*Resolver)

// WithTick sets the polling cadence
func WithTick(d time.Duration) Option {
	return func(r *Resolver) { r.tick = d }
}

// WithSettle sets the pause after a challenge clears on its own
func WithSettle(d time.Duration) Option {
	return func(r *Resolver) { r.settle = d }
}

// WithFinalWait caps the verification wait after the solver returns
func WithFinalWait(d time.Duration) Option {
	return func(r *Resolver) { r.finalWait = d }
}

// WithMinSolve sets the smallest budget handed to the solver
func WithMinSolve(d time.Duration) Option {
	return func(r *Resolver) { r.minSolve = d }
}

// NewResolver creates a resolver using detector for its checks
func NewResolver(detector *Detector, logger *logging.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		detector:  detector,
		logger:    logger.Named("resolver"),
		tick:      defaultTick,
		settle:    defaultSettle,
		finalWait: defaultFinalWait,
		minSolve:  defaultMinSolve,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the state machine against a page already classified as
// state. timeout is the whole budget, shared by waiting and solving.
func (r *Resolver) Resolve(ctx context.Context, page browser.Page, state State, solver Solver, timeout time.Duration) (Outcome, error) {
	out := Outcome{Phase: PhaseIdle}
	r.transition(&out, PhaseDetecting)

	switch state {
	case StateBlocked:
		r.transition(&out, PhaseBlockedFatal)
		return out, apperr.Blocked(BlockedMessage)
	case StateClear:
		r.transition(&out, PhaseSolved)
		return out, nil
	}

	deadline := time.Now().Add(timeout)
	out.Kind = r.detector.Kind(ctx, page)

	r.transition(&out, PhaseWaitingForInteractive)
	r.logger.Info("Waiting for challenge to auto-solve or show interactive element")

	var gone, widget bool
	_, err := poll.Until(ctx, r.tick, deadline, func(ctx context.Context) (bool, error) {
		if !r.detector.StillPresent(ctx, page) {
			gone = true
			return true, nil
		}
		widget = r.detector.WidgetPresent(ctx, page)
		return widget, nil
	})
	if err != nil {
		r.transition(&out, PhaseTimedOut)
		return out, apperr.Driver("wait for challenge", err)
	}

	switch {
	case gone:
		r.logger.Debug("Challenge auto-solved")
		if err := poll.Sleep(ctx, r.settle); err != nil {
			return out, apperr.Driver("settle", err)
		}
	case widget:
		if err := r.solve(ctx, &out, page, solver, deadline, timeout); err != nil {
			return out, err
		}
	default:
		if r.detector.StillPresent(ctx, page) {
			r.transition(&out, PhaseTimedOut)
			return out, apperr.ChallengeTimeout(
				"Challenge not solved within %ss timeout (no interactive element found, JS challenge did not complete).",
				seconds(timeout))
		}
		if err := poll.Sleep(ctx, r.settle); err != nil {
			return out, apperr.Driver("settle", err)
		}
	}

	if err := r.verify(ctx, page, timeout); err != nil {
		r.transition(&out, PhaseTimedOut)
		return out, err
	}
	r.transition(&out, PhaseSolved)
	return out, nil
}

func (r *Resolver) solve(ctx context.Context, out *Outcome, page browser.Page, solver Solver, deadline time.Time, timeout time.Duration) error {
	r.transition(out, PhaseSolving)
	if solver == nil {
		return apperr.SolverUnavailable("No solver configured for %s challenge.", out.Kind)
	}

	budget := time.Until(deadline)
	if budget < r.minSolve {
		budget = r.minSolve
	}
	r.logger.Info("Interactive challenge detected, invoking solver",
		zap.Stringer("kind", out.Kind),
		zap.Duration("budget", budget),
	)

	sctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	out.Solver = true
	token, err := solver.Solve(sctx, page, out.Kind)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			r.transition(out, PhaseTimedOut)
			return apperr.ChallengeTimeout("Timeout after %ss solving challenge.", seconds(timeout))
		}
		return apperr.Driver("solve challenge", err)
	}
	out.Token = token
	return nil
}

// verify guards against solvers that report success too early
func (r *Resolver) verify(ctx context.Context, page browser.Page, timeout time.Duration) error {
	if !r.detector.StillPresent(ctx, page) {
		return nil
	}

	wait := min(timeout, r.finalWait)
	r.logger.Debug("Challenge still showing, waiting", zap.Duration("wait", wait))

	ok, err := poll.Until(ctx, r.tick, time.Now().Add(wait), func(ctx context.Context) (bool, error) {
		return !r.detector.StillPresent(ctx, page), nil
	})
	if err != nil {
		return apperr.Driver("verify challenge", err)
	}
	if !ok {
		return apperr.ChallengeTimeout("Challenge was not solved, the page still shows the challenge screen.")
	}
	return nil
}

func (r *Resolver) transition(out *Outcome, to Phase) {
	if out.Phase != to {
		r.logger.Debug("Resolver transition",
			zap.Stringer("from", out.Phase),
			zap.Stringer("to", to),
		)
	}
	out.Phase = to
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
