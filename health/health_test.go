package health

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/structevents"
	"github.com/c360/framecore/testutil"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		subs       []Status
		wantStatus string
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StatusHealthy},
		{"degraded wins over healthy", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StatusDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", ""), NewHealthy("c", "")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("system", tt.subs)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantStatus == StatusHealthy, got.Healthy)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestWithSubStatus_SliceIsolation(t *testing.T) {
	original := NewHealthy("parent", "").WithSubStatus(NewHealthy("child1", ""))
	modified := original.WithSubStatus(NewUnhealthy("child2", ""))

	assert.Len(t, original.SubStatuses, 1)
	assert.Len(t, modified.SubStatuses, 2)

	original.SubStatuses[0].Status = StatusDegraded
	assert.Equal(t, StatusHealthy, modified.SubStatuses[0].Status)
}

func TestFromError_Sanitizes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"failed to open /etc/framecore/config.json", "failed to open [PATH]"},
		{"cannot connect to nats://localhost:4222", "cannot connect to [URL]"},
		{"timeout connecting to 192.168.1.100", "timeout connecting to [IP]"},
		{"failed to bind to :8080", "failed to bind to [PORT]"},
		{"auth failed with token=abc123", "auth failed with [REDACTED]"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := FromError("events", stderrors.New(tt.input))
			assert.True(t, s.IsUnhealthy())
			assert.Equal(t, tt.expected, s.Message)
		})
	}
	assert.True(t, FromError("events", nil).IsHealthy())
}

func TestRuntimeCheck(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Group(t, nil, "Module", 0).Init()

	s := RuntimeCheck(env.Runtime)()
	assert.True(t, s.IsHealthy())
	require.NotNil(t, s.Metrics)
	assert.Equal(t, env.Runtime.Registry().Len(), s.Metrics.Elements)
	assert.GreaterOrEqual(t, s.Metrics.Elements, 3, "root, unrelated and module")
}

func TestReclaimerCheck(t *testing.T) {
	env := testutil.NewEnv(t)
	check := ReclaimerCheck(env.Reclaimer, 1)
	assert.True(t, check().IsHealthy())

	env.Reclaimer.Retire(new(int), func() {})
	env.Reclaimer.Retire(new(int), func() {})
	s := check()
	assert.True(t, s.IsDegraded())
	assert.Equal(t, 2, s.Metrics.Pending)

	env.StepPastSafetyInterval()
	assert.True(t, check().IsHealthy())

	require.NoError(t, env.Reclaimer.Stop(time.Second))
	assert.True(t, check().IsUnhealthy())
}

func TestBrokerCheck(t *testing.T) {
	b, err := structevents.NewBroker(structevents.DefaultBrokerConfig("nats://127.0.0.1:1"), nil, nil)
	require.NoError(t, err)
	s := BrokerCheck(b)()
	assert.True(t, s.IsUnhealthy())
	assert.Equal(t, "disconnected", s.Message)
}

func TestEmitterCheck(t *testing.T) {
	env := testutil.NewEnv(t)
	client := testutil.NewMockNATSClient()
	client.PublishErr = stderrors.New("broker gone")
	emitter, err := structevents.New(env.Runtime, client, structevents.Config{})
	require.NoError(t, err)
	check := EmitterCheck(emitter)
	assert.True(t, check().IsHealthy())

	require.NoError(t, emitter.Start(context.Background()))
	t.Cleanup(func() { _ = emitter.Stop(time.Second) })
	env.Group(t, nil, "Module", 0).Init()

	require.Eventually(t, func() bool { return check().IsDegraded() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, check().Metrics.ErrorCount)
}

func TestMonitor(t *testing.T) {
	env := testutil.NewEnv(t)
	m := NewMonitor()

	ok, msg := m.Probe("framecore")()
	assert.True(t, ok)
	assert.Equal(t, StatusHealthy, msg)

	m.Register("runtime", RuntimeCheck(env.Runtime))
	m.Register("reclaimer", ReclaimerCheck(env.Reclaimer, 0))
	m.Update("cache", NewDegraded("", "warming up"))

	ok, msg = m.Probe("framecore")()
	assert.True(t, ok, "degraded systems still serve")
	assert.Equal(t, StatusDegraded, msg)
	assert.Equal(t, 3, m.Count())

	agg := m.AggregateHealth("framecore")
	require.Len(t, agg.SubStatuses, 3)
	assert.Equal(t, []string{"cache", "reclaimer", "runtime"},
		[]string{agg.SubStatuses[0].Component, agg.SubStatuses[1].Component, agg.SubStatuses[2].Component})

	require.NoError(t, env.Reclaimer.Stop(time.Second))
	ok, msg = m.Probe("framecore")()
	assert.False(t, ok)
	assert.Equal(t, "reclaimer: reclaimer is not running", msg)

	m.Remove("reclaimer")
	m.Remove("cache")
	ok, _ = m.Probe("framecore")()
	assert.True(t, ok)

	s, found := m.Get("runtime")
	require.True(t, found)
	assert.Equal(t, "runtime", s.Component)
}
