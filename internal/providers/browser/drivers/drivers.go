// Package drivers selects the browser automation backend by name.
package drivers

import (
	"fmt"
	"sort"

	"github.com/mjlescano/playcha/internal/infrastructure/config"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/providers/browser/cdpbrowser"
	"github.com/mjlescano/playcha/internal/providers/browser/rodbrowser"
)

// Factory builds a driver from configuration
type Factory func(cfg config.BrowserConfig, logger *logging.Logger) browser.Driver

var factories = map[string]Factory{
	config.BrowserRod: func(cfg config.BrowserConfig, logger *logging.Logger) browser.Driver {
		return rodbrowser.New(rodbrowser.Options{Headless: cfg.Headless, BinPath: cfg.Path}, logger)
	},
	config.BrowserChromedp: func(cfg config.BrowserConfig, logger *logging.Logger) browser.Driver {
		return cdpbrowser.New(cdpbrowser.Options{Headless: cfg.Headless, BinPath: cfg.Path}, logger)
	},
}

// New returns the driver named by cfg.Backend
func New(cfg config.BrowserConfig, logger *logging.Logger) (browser.Driver, error) {
	factory, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown browser backend %q (available: %v)", cfg.Backend, Names())
	}
	return factory(cfg, logger), nil
}

// Names lists the registered backends
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
