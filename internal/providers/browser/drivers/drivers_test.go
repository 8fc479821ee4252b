package drivers

import (
	"testing"

	"github.com/mjlescano/playcha/internal/infrastructure/config"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, name := range []string{config.BrowserRod, config.BrowserChromedp} {
		t.Run(name, func(t *testing.T) {
			d, err := New(config.BrowserConfig{Backend: name, Headless: true}, logging.NewNop())
			require.NoError(t, err)
			assert.Equal(t, name, d.Name())
		})
	}
}

func TestNewUnknown(t *testing.T) {
	_, err := New(config.BrowserConfig{Backend: "camoufox"}, logging.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camoufox")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"chromedp", "rod"}, Names())
}
