package captcha

import (
	"context"
	"testing"
	"time"

	"github.com/mjlescano/playcha/internal/domain/challenge"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/providers/browser/browsertest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClickSolver(metrics *monitoring.Metrics, attempts int) *ClickSolver {
	return NewClickSolver(logging.NewNop(), metrics,
		WithAttempts(attempts, 50*time.Millisecond),
		WithClickTick(5*time.Millisecond),
	)
}

func TestScriptsCompile(t *testing.T) {
	inject, err := injectTokenScript(`to"ken`)
	require.NoError(t, err)

	for name, script := range map[string]string{
		"open shadow roots": openShadowRootsScript,
		"locate widget":     locateWidgetScript,
		"read token":        readTokenScript,
		"hook turnstile":    hookTurnstileScript,
		"read params":       readTurnstileParamsScript,
		"user agent":        userAgentScript,
		"inject token":      inject,
	} {
		assert.NoError(t, browser.ValidateScript(script), name)
	}
}

func TestClickSolverEnterRegistersScript(t *testing.T) {
	page := browsertest.NewPage(1)
	require.NoError(t, newTestClickSolver(nil, 1).Enter(context.Background(), page))
	assert.Equal(t, []string{openShadowRootsScript}, page.InitScripts())
}

func TestClickSolverClicksCheckbox(t *testing.T) {
	metrics := monitoring.NewMetrics()
	page := browsertest.NewPage(1)
	page.EvaluateFunc = func(script string) (any, error) {
		clicked := len(page.Clicks()) > 0
		switch script {
		case locateWidgetScript:
			if clicked {
				return nil, nil
			}
			return []any{100.0, 200.0, 300.0, 65.0}, nil
		case readTokenScript:
			if clicked {
				return "0.click-token", nil
			}
		}
		return nil, nil
	}

	token, err := newTestClickSolver(metrics, 3).Solve(context.Background(), page, challenge.KindTurnstile)
	require.NoError(t, err)

	assert.Equal(t, "0.click-token", token)
	assert.Equal(t, [][2]float64{{130, 232.5}}, page.Clicks())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SolverCalls.WithLabelValues("click", "success")))
}

func TestClickSolverGivesUp(t *testing.T) {
	page := browsertest.NewPage(1)
	page.EvaluateFunc = func(script string) (any, error) {
		if script == locateWidgetScript {
			return []any{0.0, 0.0, 300.0, 65.0}, nil
		}
		return nil, nil
	}

	_, err := newTestClickSolver(nil, 2).Solve(context.Background(), page, challenge.KindInterstitial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 click attempts")
	assert.Len(t, page.Clicks(), 2)
}

func TestClickSolverHonoursDeadline(t *testing.T) {
	page := browsertest.NewPage(1)
	page.EvaluateFunc = func(script string) (any, error) {
		if script == locateWidgetScript {
			return []any{0.0, 0.0, 300.0, 65.0}, nil
		}
		return nil, nil
	}
	s := NewClickSolver(logging.NewNop(), nil, WithAttempts(5, time.Second), WithClickTick(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := s.Solve(ctx, page, challenge.KindTurnstile)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClickSolverWaitsForWidgetToRender(t *testing.T) {
	page := browsertest.NewPage(1)
	locates := 0
	page.EvaluateFunc = func(script string) (any, error) {
		clicked := len(page.Clicks()) > 0
		switch script {
		case locateWidgetScript:
			locates++
			if clicked || locates < 4 {
				return nil, nil
			}
			return []any{0.0, 0.0, 300.0, 65.0}, nil
		case readTokenScript:
			if clicked {
				return "0.late-token", nil
			}
		}
		return nil, nil
	}

	token, err := newTestClickSolver(nil, 5).Solve(context.Background(), page, challenge.KindTurnstile)
	require.NoError(t, err)
	assert.Equal(t, "0.late-token", token)
	assert.Len(t, page.Clicks(), 1)
}

func TestClickSolverNeverClaimsUnclickedWidget(t *testing.T) {
	metrics := monitoring.NewMetrics()
	page := browsertest.NewPage(1)
	page.EvaluateFunc = func(script string) (any, error) { return nil, nil }

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	token, err := newTestClickSolver(metrics, 5).Solve(ctx, page, challenge.KindTurnstile)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "widget never rendered")
	assert.Empty(t, token)
	assert.Empty(t, page.Clicks())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SolverCalls.WithLabelValues("click", "success")))
}

func TestToBox(t *testing.T) {
	box, ok := toBox([]any{1.0, 2, int64(3), float32(4)})
	assert.True(t, ok)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, box)

	_, ok = toBox(nil)
	assert.False(t, ok)
	_, ok = toBox([]any{1.0, "2", 3.0, 4.0})
	assert.False(t, ok)
}
