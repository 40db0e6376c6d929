package port

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

// ServicesConfig configures the per-runtime port services
type ServicesConfig struct {
	// Types is the data type registry, a new one is created when nil
	Types  *dtype.Registry
	Logger *slog.Logger
	// WarnInterval and WarnBurst limit repeated URI connection warnings
	WarnInterval time.Duration
	WarnBurst    int
}

// Services bundles the registries the port layer consults. It is attached to
// the runtime root as an annotation.
type Services struct {
	rt          *element.Runtime
	types       *dtype.Registry
	constraints *ConstraintRegistry
	schemes     *SchemeRegistry
	logger      *slog.Logger
	warnLimiter *rate.Limiter
}

// InstallServices creates the port services of rt. It fails if services are
// already installed.
func InstallServices(rt *element.Runtime, cfg ServicesConfig) (*Services, error) {
	if cfg.Types == nil {
		cfg.Types = dtype.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = rt.Logger()
	}
	if cfg.WarnInterval <= 0 {
		cfg.WarnInterval = time.Second
	}
	if cfg.WarnBurst <= 0 {
		cfg.WarnBurst = 5
	}

	s := &Services{
		rt:          rt,
		types:       cfg.Types,
		constraints: NewConstraintRegistry(),
		schemes:     NewSchemeRegistry(),
		logger:      cfg.Logger.With("component", "port"),
		warnLimiter: rate.NewLimiter(rate.Every(cfg.WarnInterval), cfg.WarnBurst),
	}
	if _, err := s.schemes.Register(localSchemeHandler{}); err != nil {
		return nil, errors.Wrap(err, "Services", "InstallServices", "local scheme registration")
	}
	if err := element.Annotate(rt.Root(), s); err != nil {
		return nil, errors.Wrap(err, "Services", "InstallServices", "runtime annotation")
	}
	return s, nil
}

// ServicesOf returns the port services of rt, installing defaults on first use
func ServicesOf(rt *element.Runtime) *Services {
	if s := element.GetAnnotation[Services](rt.Root()); s != nil {
		return s
	}
	s, err := InstallServices(rt, ServicesConfig{})
	if err != nil {
		// lost a race against another installer
		return element.GetAnnotation[Services](rt.Root())
	}
	return s
}

// Runtime returns the runtime the services belong to
func (s *Services) Runtime() *element.Runtime {
	return s.rt
}

// Types returns the data type registry
func (s *Services) Types() *dtype.Registry {
	return s.types
}

// Constraints returns the connection constraint registry
func (s *Services) Constraints() *ConstraintRegistry {
	return s.constraints
}

// Schemes returns the URI scheme handler registry
func (s *Services) Schemes() *SchemeRegistry {
	return s.schemes
}

// Logger returns the port layer logger
func (s *Services) Logger() *slog.Logger {
	return s.logger
}

// warn logs a warning unless the rate limit is exhausted
func (s *Services) warn(msg string, args ...any) {
	if s.warnLimiter.Allow() {
		s.logger.Warn(msg, args...)
	}
}
