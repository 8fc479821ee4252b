package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		kind Kind
	}{
		{"invalid", InvalidRequest("Request parameter '%s' is mandatory.", "cmd"), "Request parameter 'cmd' is mandatory.", KindInvalidRequest},
		{"blocked", Blocked("banned"), "banned", KindBlocked},
		{"timeout", ChallengeTimeout("Timeout after %ds solving challenge.", 30), "Timeout after 30s solving challenge.", KindChallengeTimeout},
		{"solver", SolverUnavailable("%s is required", "KEY"), "KEY is required", KindSolverUnavailable},
		{"driver", Driver("navigate", errors.New("net::ERR_NAME_NOT_RESOLVED")), "navigate: net::ERR_NAME_NOT_RESOLVED", KindDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.True(t, Is(tt.err, tt.kind))
		})
	}
}

func TestDriverKeepsClassifiedErrors(t *testing.T) {
	blocked := Blocked("banned")
	wrapped := Driver("detect", fmt.Errorf("probe: %w", blocked))

	assert.True(t, Is(wrapped, KindBlocked))
	assert.Nil(t, Driver("noop", nil))
}

func TestUnwrap(t *testing.T) {
	err := Driver("evaluate", context.DeadlineExceeded)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, KindDriver, KindOf(errors.New("plain")))
}
