package port_test

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/pkg/reclaim"
	"github.com/c360/framecore/port"
)

const (
	outputFlags      = element.FlagEmitsData | element.FlagOutputPort
	inputFlags       = element.FlagAcceptsData
	outputProxyFlags = element.FlagEmitsData | element.FlagAcceptsData | element.FlagOutputPort
	inputProxyFlags  = element.FlagEmitsData | element.FlagAcceptsData
)

type fixture struct {
	rt       *element.Runtime
	reclaim  *reclaim.Reclaimer
	services *port.Services
	types    *dtype.Registry
	number   dtype.Type
	text     dtype.Type
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r, err := reclaim.New(reclaim.DefaultConfig(), reclaim.WithManualCycles())
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop(time.Second) })

	rt, err := element.NewRuntime(element.Dependencies{Reclaimer: r})
	require.NoError(t, err)

	types := dtype.NewRegistry()
	services, err := port.InstallServices(rt, port.ServicesConfig{Types: types})
	require.NoError(t, err)

	return &fixture{
		rt:       rt,
		reclaim:  r,
		services: services,
		types:    types,
		number:   types.MustRegister("number"),
		text:     types.MustRegister("text"),
	}
}

func (f *fixture) group(t *testing.T, parent *element.Element, name string, flags element.Flag) *element.Element {
	t.Helper()
	if parent == nil {
		parent = f.rt.Root()
	}
	e, err := element.New(parent, name, flags)
	require.NoError(t, err)
	return e
}

func (f *fixture) port(t *testing.T, parent *element.Element, name string, flags element.Flag) *port.Port {
	t.Helper()
	return f.typedPort(t, parent, name, flags, f.number)
}

func (f *fixture) typedPort(t *testing.T, parent *element.Element, name string, flags element.Flag, typ dtype.Type) *port.Port {
	t.Helper()
	if parent == nil {
		parent = f.rt.Root()
	}
	p, err := port.New(port.Config{Name: name, Parent: parent, Type: typ, Flags: flags})
	require.NoError(t, err)
	return p
}

func (f *fixture) stepPastSafetyInterval() {
	for i := uint64(0); i <= f.reclaim.SafetyCycles(); i++ {
		f.reclaim.Step()
	}
}

type connectorEvents struct {
	mu     sync.Mutex
	events []string
}

func (l *connectorEvents) OnConnectorChange(change element.ChangeType, c *port.Connector) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, change.String()+" "+c.String())
}

func (l *connectorEvents) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type countingHooks struct {
	connects    []string
	disconnects []string
}

func (h *countingHooks) OnConnect(partner *port.Port, asSource bool) {
	h.connects = append(h.connects, partner.Name())
}

func (h *countingHooks) OnDisconnect(partner *port.Port, asSource bool) {
	h.disconnects = append(h.disconnects, partner.Name())
}

func TestPort_New(t *testing.T) {
	f := newFixture(t)
	p := f.port(t, nil, "Out", outputFlags)

	assert.True(t, p.IsPort())
	assert.True(t, p.Handle().IsPort())
	assert.True(t, p.EmitsData())
	assert.False(t, p.AcceptsData())
	assert.True(t, p.IsOutputPort())
	assert.Equal(t, f.number, p.DataType())
	assert.Same(t, p, port.FromElement(p.Element))
	assert.Same(t, f.services, p.Services())

	_, err := port.New(port.Config{Name: "NoType", Parent: f.rt.Root()})
	assert.True(t, errors.IsInvalid(err))

	_, err = element.New(p.Element, "Child", 0)
	assert.ErrorIs(t, err, errors.ErrInvalidParent, "ports never have children")
}

func TestPort_Lookup(t *testing.T) {
	f := newFixture(t)
	p := f.port(t, nil, "Out", outputFlags)
	g := f.group(t, nil, "Group", 0)

	assert.Same(t, p, port.Lookup(f.rt, p.Handle()))
	assert.Nil(t, port.Lookup(f.rt, g.Handle()))
	assert.Nil(t, port.FromElement(g))
}

func TestConnect_Scenario(t *testing.T) {
	f := newFixture(t)
	root := f.group(t, nil, "R", 0)
	p1 := f.port(t, root, "P1", outputFlags)
	p2 := f.port(t, root, "P2", inputFlags)
	root.Init()

	c, err := p1.ConnectTo(p2, port.ConnectOptions{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Same(t, p1, c.Source())
	assert.Same(t, p2, c.Destination())
	assert.True(t, c.Flags().Has(port.ConnectPublished))
	assert.True(t, c.IsPrimary())

	p1.DisconnectAll()
	assert.Empty(t, p1.Outgoing())
	assert.Empty(t, p2.Incoming())
	assert.True(t, c.IsDisconnected())
	assert.False(t, c.IsDestroyed(), "queued for reclamation")

	f.stepPastSafetyInterval()
	assert.True(t, c.IsDestroyed())
}

func TestConnect_RoundTrip(t *testing.T) {
	f := newFixture(t)
	a := f.port(t, nil, "A", outputFlags)
	b := f.port(t, nil, "B", inputFlags)
	a.Init()
	b.Init()

	_, err := a.ConnectTo(b, port.ConnectOptions{})
	require.NoError(t, err)
	assert.True(t, a.IsConnectedTo(b))
	assert.True(t, b.IsConnectedTo(a))

	assert.True(t, a.DisconnectFrom(b))
	assert.False(t, a.IsConnectedTo(b))
	assert.Empty(t, a.Outgoing())
	assert.Empty(t, a.Incoming())
	assert.Empty(t, b.Outgoing())
	assert.Empty(t, b.Incoming())

	assert.False(t, a.DisconnectFrom(b), "double disconnect is a no-op")
}

func TestConnect_AlreadyConnected(t *testing.T) {
	f := newFixture(t)
	a := f.port(t, nil, "A", outputFlags)
	b := f.port(t, nil, "B", inputFlags)

	first, err := a.ConnectTo(b, port.ConnectOptions{})
	require.NoError(t, err)
	second, err := b.ConnectTo(a, port.ConnectOptions{})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Len(t, a.Outgoing(), 1)
}

func TestConnect_DirectionFromCapabilities(t *testing.T) {
	f := newFixture(t)
	out := f.port(t, nil, "Out", outputFlags)
	in := f.port(t, nil, "In", inputFlags)

	c, err := in.ConnectTo(out, port.ConnectOptions{})
	require.NoError(t, err)
	assert.Same(t, out, c.Source())
	assert.Same(t, in, c.Destination())
	assert.True(t, c.Flags().Has(port.ConnectDirectionToSource))
}

func TestConnect_InvalidOptions(t *testing.T) {
	f := newFixture(t)
	a := f.port(t, nil, "A", outputFlags)
	b := f.port(t, nil, "B", inputFlags)

	tests := []struct {
		name string
		opts port.ConnectOptions
	}{
		{"both directions", port.ConnectOptions{Flags: port.ConnectDirectionToDestination | port.ConnectDirectionToSource}},
		{"status flag", port.ConnectOptions{Flags: port.ConnectDisconnected}},
		{"broken conversion chain", port.ConnectOptions{Conversion: dtype.ConversionSequence{
			{Name: "a", From: f.number, To: f.text},
			{Name: "b", From: f.number, To: f.text},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := a.ConnectTo(b, tt.opts)
			assert.Nil(t, c)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.ErrorIs(t, err, errors.ErrInvalidConnectOptions)
			assert.False(t, a.IsConnected())
		})
	}
}

func TestConnect_Rejections(t *testing.T) {
	f := newFixture(t)
	out := f.port(t, nil, "Out", outputFlags)
	in1 := f.port(t, nil, "In1", inputFlags)
	in2 := f.port(t, nil, "In2", inputFlags)
	textIn := f.typedPort(t, nil, "TextIn", inputFlags, f.text)

	t.Run("neither direction", func(t *testing.T) {
		c, err := in1.ConnectTo(in2, port.ConnectOptions{})
		assert.Nil(t, c)
		var ce *port.ConnectError
		require.True(t, stderrors.As(err, &ce))
		assert.ErrorIs(t, err, errors.ErrConnectRejected)
		assert.Contains(t, ce.Reason, "forward:")
		assert.Contains(t, ce.Reason, "backward:")
		assert.Contains(t, ce.Reason, "/In1 does not emit data")
		assert.Contains(t, ce.Reason, "/In2 does not emit data")
	})

	t.Run("explicit direction not permitted", func(t *testing.T) {
		_, err := in1.ConnectTo(out, port.ConnectOptions{Flags: port.ConnectDirectionToDestination})
		assert.ErrorIs(t, err, errors.ErrConnectRejected)
	})

	t.Run("self", func(t *testing.T) {
		_, err := out.ConnectTo(out, port.ConnectOptions{})
		assert.ErrorIs(t, err, errors.ErrConnectRejected)
	})

	t.Run("incompatible types", func(t *testing.T) {
		var diag strings.Builder
		assert.False(t, out.MayConnectTo(textIn, &diag))
		assert.Contains(t, diag.String(), "type number is not convertible to text")
		_, err := out.ConnectTo(textIn, port.ConnectOptions{})
		assert.ErrorIs(t, err, errors.ErrConnectRejected)
	})

	t.Run("deleted", func(t *testing.T) {
		in2.Init()
		in2.ManagedDelete()
		_, err := out.ConnectTo(in2, port.ConnectOptions{})
		assert.ErrorIs(t, err, errors.ErrElementDeleted)
	})

	assert.False(t, out.IsConnected())
	assert.False(t, in1.IsConnected())
}

func TestConnect_TypeConversion(t *testing.T) {
	f := newFixture(t)
	out := f.port(t, nil, "Out", outputFlags)
	textIn := f.typedPort(t, nil, "TextIn", inputFlags, f.text)
	textIn2 := f.typedPort(t, nil, "TextIn2", inputFlags, f.text)

	conv := dtype.ConversionSequence{{Name: "format", From: f.number, To: f.text}}
	c, err := out.ConnectTo(textIn, port.ConnectOptions{Conversion: conv})
	require.NoError(t, err)
	assert.True(t, c.Flags().Has(port.ConnectConversion))
	assert.Equal(t, conv, c.Conversion())

	f.types.AddImplicitConversion(f.number, f.text)
	assert.True(t, out.MayConnectTo(textIn2, nil))
	c2, err := out.ConnectTo(textIn2, port.ConnectOptions{})
	require.NoError(t, err)
	assert.False(t, c2.Flags().Has(port.ConnectConversion))
}

func TestConnect_Constraints(t *testing.T) {
	f := newFixture(t)
	out := f.port(t, nil, "Out", outputFlags)
	in := f.port(t, nil, "In", inputFlags)

	unregister := f.services.Constraints().Register(&port.ConstraintFunc{
		Desc: "no connections to In",
		Fn: func(_, destination *port.Port) bool {
			return destination.Name() != "In"
		},
	})
	assert.Equal(t, 1, f.services.Constraints().Len())

	var diag strings.Builder
	assert.False(t, out.MayConnectTo(in, &diag))
	assert.Contains(t, diag.String(), "no connections to In")
	_, err := out.ConnectTo(in, port.ConnectOptions{})
	var ce *port.ConnectError
	require.True(t, stderrors.As(err, &ce))
	assert.Contains(t, ce.Reason, "no connections to In")

	unregister()
	_, err = out.ConnectTo(in, port.ConnectOptions{})
	assert.NoError(t, err)
}

func TestConnect_ListenersAndHooks(t *testing.T) {
	f := newFixture(t)
	listener := &connectorEvents{}
	f.rt.AddListener(listener)

	outHooks, inHooks := &countingHooks{}, &countingHooks{}
	out, err := port.New(port.Config{Name: "Out", Parent: f.rt.Root(), Type: f.number, Flags: outputFlags, Hooks: outHooks})
	require.NoError(t, err)
	in, err := port.New(port.Config{Name: "In", Parent: f.rt.Root(), Type: f.number, Flags: inputFlags, Hooks: inHooks})
	require.NoError(t, err)

	c, err := out.ConnectTo(in, port.ConnectOptions{})
	require.NoError(t, err)
	c.Disconnect()
	c.Disconnect()

	assert.Equal(t, []string{"add /Out -> /In", "remove /Out -> /In"}, listener.Events())
	assert.Equal(t, []string{"In"}, outHooks.connects)
	assert.Equal(t, []string{"Out"}, inHooks.connects)
	assert.Equal(t, []string{"In"}, outHooks.disconnects)
	assert.Equal(t, []string{"Out"}, inHooks.disconnects)
}

func TestDisconnect_ToolPortsKeptUnlessBothDirections(t *testing.T) {
	f := newFixture(t)
	p := f.port(t, nil, "P", inputProxyFlags)
	tool := f.port(t, nil, "Tool", inputFlags|element.FlagToolPort)
	in := f.port(t, nil, "In", inputFlags)

	_, err := p.ConnectTo(tool, port.ConnectOptions{})
	require.NoError(t, err)
	_, err = p.ConnectTo(in, port.ConnectOptions{})
	require.NoError(t, err)

	p.DisconnectDirections(false, true)
	assert.True(t, p.IsConnectedTo(tool))
	assert.False(t, p.IsConnectedTo(in))

	p.DisconnectAll()
	assert.False(t, p.IsConnected())
}

func TestDelete_SeversConnectors(t *testing.T) {
	f := newFixture(t)
	module := f.group(t, nil, "Module", 0)
	out := f.port(t, module, "Out", outputFlags)
	in := f.port(t, nil, "In", inputFlags)
	module.Init()
	in.Init()

	c, err := out.ConnectTo(in, port.ConnectOptions{})
	require.NoError(t, err)

	module.ManagedDelete()
	assert.True(t, c.IsDisconnected())
	assert.Empty(t, in.Incoming())
	assert.Nil(t, port.Lookup(f.rt, out.Handle()))

	f.stepPastSafetyInterval()
	assert.True(t, c.IsDestroyed())
	assert.True(t, out.IsDestroyed())
}

func TestAggregatedEdges(t *testing.T) {
	f := newFixture(t)
	agg1 := f.group(t, nil, "Agg1", element.FlagEdgeAggregator)
	agg2 := f.group(t, nil, "Agg2", element.FlagEdgeAggregator)
	out := f.port(t, f.group(t, agg1, "Inner", 0), "Out", outputFlags)
	in1 := f.port(t, agg2, "In1", inputFlags)
	in2 := f.port(t, agg2, "In2", inputFlags)
	local := f.port(t, agg1, "Local", inputFlags)

	_, err := out.ConnectTo(in1, port.ConnectOptions{})
	require.NoError(t, err)
	_, err = out.ConnectTo(in2, port.ConnectOptions{})
	require.NoError(t, err)
	_, err = out.ConnectTo(local, port.ConnectOptions{})
	require.NoError(t, err)

	edges := port.EdgesOf(agg1)
	require.NotNil(t, edges)
	assert.Equal(t, map[element.Handle]int{agg2.Handle(): 2}, edges.Destinations())
	assert.Nil(t, port.EdgesOf(agg2))

	out.DisconnectFrom(in1)
	assert.Equal(t, 1, edges.Count(agg2.Handle()))
	out.DisconnectAll()
	assert.Empty(t, edges.Destinations())
}

func TestConnectFlag_String(t *testing.T) {
	f := port.ConnectReconnect | port.ConnectNonPrimary
	assert.Equal(t, "RECONNECT|NON_PRIMARY_CONNECTOR", f.String())
	assert.Equal(t, "0", port.ConnectFlag(0).String())
}
