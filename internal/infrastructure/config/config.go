package config

import (
	"fmt"
	"slices"

	"github.com/kelseyhightower/envconfig"
)

// Browser backends
const (
	BrowserRod      = "rod"
	BrowserChromedp = "chromedp"
)

// Captcha solver backends
const (
	SolverClick      = "click"
	SolverTwoCaptcha = "twocaptcha"
	SolverTenCaptcha = "tencaptcha"
	SolverCaptchaAI  = "captchaai"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Browser   BrowserConfig
	Proxy     ProxyConfig
	Captcha   CaptchaConfig
	Challenge ChallengeConfig
	TZ        string `envconfig:"TZ" default:"UTC"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8191"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// BrowserConfig selects and tunes the automation backend.
type BrowserConfig struct {
	Backend  string `envconfig:"BROWSER" default:"rod"`
	Headless bool   `envconfig:"HEADLESS" default:"true"`
	Path     string `envconfig:"BROWSER_PATH"`
}

// ProxyConfig is the proxy used when a request does not name one.
type ProxyConfig struct {
	URL      string `envconfig:"PROXY_URL"`
	Username string `envconfig:"PROXY_USERNAME"`
	Password string `envconfig:"PROXY_PASSWORD"`
}

// CaptchaConfig selects the solving backend and holds its credentials.
type CaptchaConfig struct {
	Solver           string `envconfig:"CAPTCHA_SOLVER" default:"click"`
	TwoCaptchaAPIKey string `envconfig:"TWO_CAPTCHA_API_KEY"`
	TenCaptchaAPIKey string `envconfig:"TEN_CAPTCHA_API_KEY"`
	CaptchaAIAPIKey  string `envconfig:"CAPTCHA_AI_API_KEY"`
}

// ChallengeConfig points at an optional selector table override.
type ChallengeConfig struct {
	SelectorsFile string `envconfig:"CHALLENGE_SELECTORS_FILE"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8191",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			Enabled:           true,
		},
		Browser: BrowserConfig{
			Backend:  BrowserRod,
			Headless: true,
		},
		Captcha: CaptchaConfig{
			Solver: SolverClick,
		},
		TZ: "UTC",
	}
}

// Validate rejects unknown backend names.
func (c *Config) Validate() error {
	if !slices.Contains([]string{BrowserRod, BrowserChromedp}, c.Browser.Backend) {
		return fmt.Errorf("invalid BROWSER %q: must be %q or %q", c.Browser.Backend, BrowserRod, BrowserChromedp)
	}
	solvers := []string{SolverClick, SolverTwoCaptcha, SolverTenCaptcha, SolverCaptchaAI}
	if !slices.Contains(solvers, c.Captcha.Solver) {
		return fmt.Errorf("invalid CAPTCHA_SOLVER %q: must be one of %v", c.Captcha.Solver, solvers)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
