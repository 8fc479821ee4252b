package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote failed")

func run(b *Breaker, success bool) error {
	return b.Execute(func() error {
		if success {
			return nil
		}
		return errRemote
	})
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{Interval: time.Minute, Timeout: time.Minute},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				Interval: time.Minute,
				Timeout:  time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success resets the failure streak",
			settings: Settings{
				Interval: time.Minute,
				Timeout:  time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 2
				},
			},
			requests:      []bool{false, true, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, success := range tt.requests {
				_ = run(breaker, success)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	breaker := New("test", Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	require.ErrorIs(t, run(breaker, false), errRemote)
	assert.ErrorIs(t, run(breaker, true), ErrCircuitOpen)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	var transitions []string
	breaker := New("solver", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	_ = run(breaker, false)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, run(breaker, true))
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := New("solver", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_ = run(breaker, false)
	time.Sleep(20 * time.Millisecond)
	_ = run(breaker, false)

	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	breaker := New("solver", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	err := breaker.Execute(func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, uint32(1), breaker.Counts().TotalSuccesses)
}

func TestDo(t *testing.T) {
	breaker := New("solver", Settings{})

	got, err := Do(breaker, func() (string, error) { return "task-1", nil })
	require.NoError(t, err)
	assert.Equal(t, "task-1", got)

	_, err = Do(breaker, func() (int, error) { return 0, errRemote })
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, uint32(1), breaker.Counts().ConsecutiveFailures)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
