package challenge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/providers/browser/browsertest"
	"github.com/mjlescano/playcha/internal/shared/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSolver struct {
	mu    sync.Mutex
	kinds []Kind
	solve func(ctx context.Context, page browser.Page) (string, error)
}

func (s *fakeSolver) Solve(ctx context.Context, page browser.Page, kind Kind) (string, error) {
	s.mu.Lock()
	s.kinds = append(s.kinds, kind)
	s.mu.Unlock()
	if s.solve == nil {
		return "", nil
	}
	return s.solve(ctx, page)
}

func (s *fakeSolver) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.kinds)
}

func newTestResolver() *Resolver {
	return NewResolver(newDetector(), logging.NewNop(),
		WithTick(5*time.Millisecond),
		WithSettle(0),
		WithFinalWait(50*time.Millisecond),
		WithMinSolve(50*time.Millisecond),
	)
}

func TestResolveAutoSolved(t *testing.T) {
	page := browsertest.NewPage(1)
	page.TitleFunc = func(call int) (string, error) {
		if call < 2 {
			return "Just a moment...", nil
		}
		return "Home", nil
	}
	solver := &fakeSolver{}

	out, err := newTestResolver().Resolve(context.Background(), page, StateNonInteractive, solver, time.Second)
	require.NoError(t, err)

	assert.Equal(t, PhaseSolved, out.Phase)
	assert.Empty(t, out.Token)
	assert.False(t, out.Solver)
	assert.Equal(t, 0, solver.calls())
}

func TestResolveNoWidgetTimesOut(t *testing.T) {
	page := browsertest.NewPage(1)
	page.SetTitle("Just a moment...")
	solver := &fakeSolver{}

	out, err := newTestResolver().Resolve(context.Background(), page, StateNonInteractive, solver, 30*time.Millisecond)
	require.Error(t, err)

	assert.Equal(t, PhaseTimedOut, out.Phase)
	assert.True(t, apperr.Is(err, apperr.KindChallengeTimeout))
	assert.Equal(t,
		"Challenge not solved within 0.03s timeout (no interactive element found, JS challenge did not complete).",
		err.Error())
	assert.Equal(t, 0, solver.calls())
}

func TestResolveInvokesSolverWhenWidgetAppears(t *testing.T) {
	page := browsertest.NewPage(1)
	page.SetTitle("Just a moment...")
	page.SetFrames("https://challenges.cloudflare.com/cdn-cgi/challenge-platform/turnstile")

	solver := &fakeSolver{solve: func(ctx context.Context, p browser.Page) (string, error) {
		page.SetTitle("Dashboard")
		return "0.proof", nil
	}}

	out, err := newTestResolver().Resolve(context.Background(), page, StateInteractive, solver, time.Second)
	require.NoError(t, err)

	assert.Equal(t, PhaseSolved, out.Phase)
	assert.Equal(t, "0.proof", out.Token)
	assert.True(t, out.Solver)
	assert.Equal(t, []Kind{KindTurnstile}, solver.kinds)
}

func TestResolveSolverTimeout(t *testing.T) {
	page := browsertest.NewPage(1)
	page.SetTitle("Just a moment...")
	page.SetCount(`iframe[src*="challenges.cloudflare.com"]`, 1)

	solver := &fakeSolver{solve: func(ctx context.Context, p browser.Page) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	start := time.Now()
	out, err := newTestResolver().Resolve(context.Background(), page, StateInteractive, solver, 10*time.Millisecond)
	require.Error(t, err)

	assert.Equal(t, PhaseTimedOut, out.Phase)
	assert.True(t, apperr.Is(err, apperr.KindChallengeTimeout))
	assert.Equal(t, "Timeout after 0.01s solving challenge.", err.Error())
	// the solver is never handed less than the minimum budget
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestResolvePrematureSolverSuccess(t *testing.T) {
	page := browsertest.NewPage(1)
	page.SetTitle("Just a moment...")
	page.SetCount(`iframe[src*="challenges.cloudflare.com"]`, 1)
	solver := &fakeSolver{solve: func(ctx context.Context, p browser.Page) (string, error) {
		return "early", nil
	}}

	out, err := newTestResolver().Resolve(context.Background(), page, StateInteractive, solver, time.Second)
	require.Error(t, err)

	assert.Equal(t, PhaseTimedOut, out.Phase)
	assert.Equal(t, "Challenge was not solved, the page still shows the challenge screen.", err.Error())
}

func TestResolveBlocked(t *testing.T) {
	solver := &fakeSolver{}
	out, err := newTestResolver().Resolve(context.Background(), browsertest.NewPage(1), StateBlocked, solver, time.Second)

	require.Error(t, err)
	assert.Equal(t, PhaseBlockedFatal, out.Phase)
	assert.True(t, apperr.Is(err, apperr.KindBlocked))
	assert.Equal(t, 0, solver.calls())
}

func TestResolveMissingSolver(t *testing.T) {
	page := browsertest.NewPage(1)
	page.SetTitle("Just a moment...")
	page.SetCount(`iframe[src*="challenges.cloudflare.com"]`, 1)

	_, err := newTestResolver().Resolve(context.Background(), page, StateInteractive, nil, time.Second)
	assert.True(t, apperr.Is(err, apperr.KindSolverUnavailable))
}

func TestResolveCancelled(t *testing.T) {
	page := browsertest.NewPage(1)
	page.SetTitle("Just a moment...")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestResolver().Resolve(ctx, page, StateNonInteractive, &fakeSolver{}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
