package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestEncodingFormat(t *testing.T) {
	assert.Equal(t, "console", encodingFormat(true))
	assert.Equal(t, "json", encodingFormat(false))
}

func TestNamedAndWith(t *testing.T) {
	logger := NewNop()

	child := logger.Named("session").With(zap.String("session", "abc"))
	require.NotNil(t, child)
	child.Info("discarded")
}

func TestDefaults(t *testing.T) {
	assert.NotNil(t, NewDefault())
	assert.NotNil(t, NewDevelopment())
	assert.True(t, DevelopmentConfig().Development)
	assert.False(t, DefaultConfig().Development)
}
