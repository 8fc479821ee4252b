// Package rodbrowser implements the browser driver on top of go-rod.
package rodbrowser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"go.uber.org/zap"
)

// Options tunes how browsers are launched
type Options struct {
	Headless bool
	BinPath  string
}

// Driver launches one Chromium process per browser
type Driver struct {
	opts   Options
	logger *logging.Logger
}

// New creates a go-rod driver
func New(opts Options, logger *logging.Logger) *Driver {
	return &Driver{opts: opts, logger: logger.Named("rod")}
}

func (d *Driver) Name() string { return "rod" }

// Launch starts a browser process routed through proxy, if any
func (d *Driver) Launch(ctx context.Context, proxy *browser.Proxy) (browser.Browser, error) {
	l := d.launcher(proxy)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	rb := rod.New().ControlURL(controlURL)
	if err := rb.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	b := &Browser{rod: rb, launcher: l, logger: d.logger}
	if user, pass, ok := proxy.Credentials(); ok {
		b.auth = &credentials{username: user, password: pass}
	}

	d.logger.Debug("Browser launched",
		zap.String("control_url", controlURL),
		zap.Bool("proxy", proxy.Server() != ""),
	)
	return b, nil
}

func (d *Driver) launcher(proxy *browser.Proxy) *launcher.Launcher {
	l := launcher.New().
		Headless(d.opts.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if d.opts.BinPath != "" {
		l = l.Bin(d.opts.BinPath)
	}
	if server := proxy.Server(); server != "" {
		l = l.Proxy(server)
	}
	return l
}

type credentials struct {
	username string
	password string
}

// Browser is a live go-rod browser
type Browser struct {
	rod      *rod.Browser
	launcher *launcher.Launcher
	auth     *credentials
	logger   *logging.Logger
}

// NewPage opens a blank tab
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	rp, err := b.rod.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	// detach from the request context, the page outlives it
	rp = rp.Context(context.Background())

	p := &Page{page: rp, browser: b, logger: b.logger}
	if b.auth != nil {
		if err := p.intercept(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Close shuts the browser down and removes its profile directory
func (b *Browser) Close(ctx context.Context) error {
	err := b.rod.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	return err
}
