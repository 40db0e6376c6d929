package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/metric"
	"github.com/c360/framecore/pkg/reclaim"
	"github.com/c360/framecore/port"
)

// Capability flag sets for common port kinds
const (
	OutputFlags      = element.FlagEmitsData | element.FlagOutputPort
	InputFlags       = element.FlagAcceptsData
	OutputProxyFlags = element.FlagEmitsData | element.FlagAcceptsData | element.FlagOutputPort
	InputProxyFlags  = element.FlagEmitsData | element.FlagAcceptsData
)

// Env is a runtime with manually stepped reclamation
type Env struct {
	Runtime   *element.Runtime
	Reclaimer *reclaim.Reclaimer
	Services  *port.Services
	Types     *dtype.Registry
	Metrics   *metric.MetricsRegistry
	Number    dtype.Type
}

// NewEnv creates an Env that is torn down with the test
func NewEnv(t *testing.T) *Env {
	t.Helper()
	metrics := metric.NewMetricsRegistry()
	r, err := reclaim.New(reclaim.DefaultConfig(), reclaim.WithManualCycles())
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop(time.Second) })

	rt, err := element.NewRuntime(element.Dependencies{
		Reclaimer: r,
		Metrics:   metrics.CoreMetrics(),
	})
	require.NoError(t, err)

	types := dtype.NewRegistry()
	services, err := port.InstallServices(rt, port.ServicesConfig{Types: types})
	require.NoError(t, err)

	return &Env{
		Runtime:   rt,
		Reclaimer: r,
		Services:  services,
		Types:     types,
		Metrics:   metrics,
		Number:    types.MustRegister("number"),
	}
}

// Group creates a plain element below parent, or below the runtime root if
// parent is nil
func (env *Env) Group(t *testing.T, parent *element.Element, name string, flags element.Flag) *element.Element {
	t.Helper()
	if parent == nil {
		parent = env.Runtime.Root()
	}
	e, err := element.New(parent, name, flags)
	require.NoError(t, err)
	return e
}

// Port creates a port of the env's number type
func (env *Env) Port(t *testing.T, parent *element.Element, name string, flags element.Flag) *port.Port {
	t.Helper()
	if parent == nil {
		parent = env.Runtime.Root()
	}
	p, err := port.New(port.Config{Name: name, Parent: parent, Type: env.Number, Flags: flags})
	require.NoError(t, err)
	return p
}

// StepPastSafetyInterval runs enough reclaimer cycles to release everything
// retired so far
func (env *Env) StepPastSafetyInterval() {
	for i := uint64(0); i <= env.Reclaimer.SafetyCycles(); i++ {
		env.Reclaimer.Step()
	}
}
