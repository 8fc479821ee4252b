package captcha

import (
	"sort"
	"sync"

	"github.com/mjlescano/playcha/internal/infrastructure/config"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/shared/apperr"
)

// Factory builds a solver from configuration. It owns the validation of
// the credentials its variant needs.
type Factory func(cfg config.CaptchaConfig, logger *logging.Logger, metrics *monitoring.Metrics) (Solver, error)

var factories = map[string]Factory{
	config.SolverClick: func(cfg config.CaptchaConfig, logger *logging.Logger, metrics *monitoring.Metrics) (Solver, error) {
		return NewClickSolver(logger, metrics), nil
	},
	config.SolverTwoCaptcha: apiFactory(TwoCaptcha, func(cfg config.CaptchaConfig) string { return cfg.TwoCaptchaAPIKey }),
	config.SolverTenCaptcha: apiFactory(TenCaptcha, func(cfg config.CaptchaConfig) string { return cfg.TenCaptchaAPIKey }),
	config.SolverCaptchaAI:  apiFactory(CaptchaAI, func(cfg config.CaptchaConfig) string { return cfg.CaptchaAIAPIKey }),
}

func apiFactory(p Provider, key func(config.CaptchaConfig) string) Factory {
	return func(cfg config.CaptchaConfig, logger *logging.Logger, metrics *monitoring.Metrics) (Solver, error) {
		s, err := NewAPISolver(p, key(cfg), logger, metrics)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Names lists the registered solver variants
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry hands out the configured solver. The solver is built once, on
// first use, and shared by all requests.
type Registry struct {
	cfg     config.CaptchaConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics

	once   sync.Once
	solver Solver
	err    error
}

// NewRegistry creates a registry for cfg
func NewRegistry(cfg config.CaptchaConfig, logger *logging.Logger) *Registry {
	return &Registry{cfg: cfg, logger: logger.Named("captcha")}
}

// WithMetrics enables solver metrics
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Solver returns the configured solver or a SolverUnavailable error
func (r *Registry) Solver() (Solver, error) {
	r.once.Do(func() {
		factory, ok := factories[r.cfg.Solver]
		if !ok {
			r.err = apperr.SolverUnavailable("No solver configured for type %s", r.cfg.Solver)
			return
		}
		r.solver, r.err = factory(r.cfg, r.logger, r.metrics)
	})
	return r.solver, r.err
}
