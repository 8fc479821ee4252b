package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8191", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8191", cfg.Addr())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, BrowserRod, cfg.Browser.Backend)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, SolverClick, cfg.Captcha.Solver)
	assert.Equal(t, "UTC", cfg.TZ)

	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	require.NotNil(t, cfg)
	assert.Equal(t, "8191", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                "9000",
		"HOST":                "127.0.0.1",
		"LOG_LEVEL":           "debug",
		"LOG_DEVELOPMENT":     "true",
		"RATE_LIMIT_RPS":      "5",
		"RATE_LIMIT_BURST":    "7",
		"RATE_LIMIT_ENABLED":  "false",
		"BROWSER":             "chromedp",
		"HEADLESS":            "false",
		"BROWSER_PATH":        "/usr/bin/chromium",
		"PROXY_URL":           "http://proxy:3128",
		"PROXY_USERNAME":      "user",
		"PROXY_PASSWORD":      "pass",
		"CAPTCHA_SOLVER":      "twocaptcha",
		"TWO_CAPTCHA_API_KEY": "secret",
	}
	for key, value := range envVars {
		os.Setenv(key, value)
	}
	defer func() {
		for key := range envVars {
			os.Unsetenv(key)
		}
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, BrowserChromedp, cfg.Browser.Backend)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.Path)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy.URL)
	assert.Equal(t, "user", cfg.Proxy.Username)
	assert.Equal(t, "pass", cfg.Proxy.Password)
	assert.Equal(t, SolverTwoCaptcha, cfg.Captcha.Solver)
	assert.Equal(t, "secret", cfg.Captcha.TwoCaptchaAPIKey)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"browser", "BROWSER", "firefox"},
		{"solver", "CAPTCHA_SOLVER", "magic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(tt.key, tt.val)
			defer os.Unsetenv(tt.key)

			_, err := Load()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.val)
		})
	}
}
