// Package cdpbrowser implements the browser driver on top of chromedp.
//
// Pages produced here buffer their init scripts (see browser.DeferredPage):
// they run after each navigation instead of on document creation.
package cdpbrowser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
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

// New creates a chromedp driver
func New(opts Options, logger *logging.Logger) *Driver {
	return &Driver{opts: opts, logger: logger.Named("chromedp")}
}

func (d *Driver) Name() string { return "chromedp" }

// allocatorOptions builds the exec allocator flags for one launch
func (d *Driver) allocatorOptions(proxy *browser.Proxy) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if d.opts.BinPath != "" {
		opts = append(opts, chromedp.ExecPath(d.opts.BinPath))
	}
	if server := proxy.Server(); server != "" {
		opts = append(opts, chromedp.ProxyServer(server))
	}
	return opts
}

// Launch starts a browser process routed through proxy, if any
func (d *Driver) Launch(ctx context.Context, proxy *browser.Proxy) (browser.Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions(proxy)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			d.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, ctx.Err()
	}

	b := &Browser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		logger:      d.logger,
	}
	if user, pass, ok := proxy.Credentials(); ok {
		b.auth = &credentials{username: user, password: pass}
	}

	d.logger.Debug("Browser launched", zap.Bool("proxy", proxy.Server() != ""))
	return b, nil
}

type credentials struct {
	username string
	password string
}

// Browser is a live chromedp browser
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	auth        *credentials
	logger      *logging.Logger
}

// NewPage opens a tab wrapped for deferred init scripts
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)

	p := &Page{ctx: tabCtx, cancel: cancel, browser: b, logger: b.logger}
	if err := p.run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if b.auth != nil {
		if err := p.intercept(ctx); err != nil {
			cancel()
			return nil, err
		}
	}
	return browser.NewDeferredPage(p), nil
}

// Close shuts the browser down
func (b *Browser) Close(ctx context.Context) error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	return err
}
