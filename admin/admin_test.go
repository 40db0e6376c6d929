package admin_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/admin"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/port"
	"github.com/c360/framecore/testutil"
)

type passThroughParams struct {
	Fail bool `json:"fail"`
}

func passThroughFactory(env *testutil.Env) admin.Factory {
	return func(parent *element.Element, name string, params json.RawMessage) (*element.Element, error) {
		var p passThroughParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, err
			}
		}
		if p.Fail {
			return nil, stderrors.New("factory refused")
		}
		module, err := element.New(parent, name, 0)
		if err != nil {
			return nil, err
		}
		for _, cfg := range []struct {
			name  string
			flags element.Flag
		}{{"In", testutil.InputFlags}, {"Out", testutil.OutputFlags}} {
			if _, err := port.New(port.Config{Name: cfg.name, Parent: module, Type: env.Number, Flags: cfg.flags}); err != nil {
				return nil, err
			}
		}
		return module, nil
	}
}

func newAdmin(t *testing.T) (*testutil.Env, *admin.Admin) {
	t.Helper()
	env := testutil.NewEnv(t)
	modules := admin.NewModuleRegistry()
	require.NoError(t, modules.Register(admin.ModuleType{
		Name:        "pass-through",
		Description: "forwards its input",
		Version:     "1.0.0",
		Factory:     passThroughFactory(env),
	}))
	a, err := admin.New(admin.Dependencies{Runtime: env.Runtime, Modules: modules})
	require.NoError(t, err)
	return env, a
}

func TestAdmin_CreateModule(t *testing.T) {
	env, a := newAdmin(t)

	h, err := a.CreateModule("pass-through", "Stage", env.Runtime.Root().Handle(), json.RawMessage(`{}`))
	require.NoError(t, err)

	module := env.Runtime.Element(h)
	require.NotNil(t, module)
	assert.Equal(t, "/Stage", module.QualifiedName())
	assert.True(t, module.IsPublished())
	assert.True(t, module.Child("In").IsPublished())
	assert.True(t, module.Child("Out").IsPort())
}

func TestAdmin_CreateModuleErrors(t *testing.T) {
	env, a := newAdmin(t)
	root := env.Runtime.Root().Handle()

	_, err := a.CreateModule("missing", "X", root, nil)
	assert.ErrorIs(t, err, errors.ErrModuleTypeUnknown)

	_, err = a.CreateModule("pass-through", "X", element.Handle(9999), nil)
	assert.ErrorIs(t, err, errors.ErrElementNotFound)

	_, err = a.CreateModule("pass-through", "X", root, json.RawMessage(`{"fail": true}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factory refused")
	assert.Nil(t, env.Runtime.Root().Child("X"))

	_, err = a.CreateModule("pass-through", "X", root, json.RawMessage(`{"broken"`))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	deep := strings.Repeat("[", admin.MaxParamsDepth+1) + strings.Repeat("]", admin.MaxParamsDepth+1)
	_, err = a.CreateModule("pass-through", "X", root, json.RawMessage(deep))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestAdmin_ConnectAndDisconnectByHandle(t *testing.T) {
	env, a := newAdmin(t)
	root := env.Runtime.Root().Handle()

	first, err := a.CreateModule("pass-through", "First", root, nil)
	require.NoError(t, err)
	second, err := a.CreateModule("pass-through", "Second", root, nil)
	require.NoError(t, err)

	out := port.FromElement(env.Runtime.Element(first).Child("Out"))
	in := port.FromElement(env.Runtime.Element(second).Child("In"))
	require.NotNil(t, out)
	require.NotNil(t, in)

	c, err := a.Connect(out.Handle(), in.Handle(), port.ConnectOptions{})
	require.NoError(t, err)
	assert.Same(t, out, c.Source())
	assert.True(t, out.IsConnectedTo(in))

	found, err := a.Disconnect(in.Handle(), out.Handle())
	require.NoError(t, err)
	assert.True(t, found)
	found, err = a.Disconnect(in.Handle(), out.Handle())
	require.NoError(t, err)
	assert.False(t, found)

	_, err = a.Connect(out.Handle(), in.Handle(), port.ConnectOptions{})
	require.NoError(t, err)
	require.NoError(t, a.DisconnectAll(in.Handle()))
	assert.False(t, in.IsConnected())

	_, err = a.Connect(first, in.Handle(), port.ConnectOptions{})
	assert.ErrorIs(t, err, errors.ErrNotAPort)

	var connectErr *port.ConnectError
	_, err = a.Connect(in.Handle(), in.Handle(), port.ConnectOptions{})
	assert.ErrorAs(t, err, &connectErr)
}

func TestAdmin_DeleteElement(t *testing.T) {
	env, a := newAdmin(t)
	h, err := a.CreateModule("pass-through", "Doomed", env.Runtime.Root().Handle(), nil)
	require.NoError(t, err)
	in := env.Runtime.Element(h).Child("In").Handle()

	require.NoError(t, a.DeleteElement(h))
	assert.Nil(t, env.Runtime.Element(h))
	assert.Nil(t, env.Runtime.Element(in))

	err = a.DeleteElement(h)
	assert.ErrorIs(t, err, errors.ErrElementNotFound, "stale handles are reported, not followed")

	err = a.DeleteElement(env.Runtime.Root().Handle())
	assert.True(t, errors.IsInvalid(err))
	assert.True(t, env.Runtime.Root().IsReady())
}

func TestAdmin_GetExecutionControls(t *testing.T) {
	env, a := newAdmin(t)
	root := env.Runtime.Root()

	_, err := a.GetExecutionControls(root.Handle())
	assert.ErrorIs(t, err, errors.ErrNoExecutionControl)

	container := env.Group(t, nil, "Container", 0)
	top, err := admin.AttachExecutionControl(container, testutil.NewMockExecutable())
	require.NoError(t, err)
	inner := env.Group(t, container, "Inner", 0)
	nested, err := admin.AttachExecutionControl(inner, testutil.NewMockExecutable())
	require.NoError(t, err)
	leaf := env.Group(t, container, "Leaf", 0)
	container.Init()

	controls, err := a.GetExecutionControls(container.Handle())
	require.NoError(t, err)
	assert.Equal(t, []*admin.ExecutionControl{top, nested}, controls)

	controls, err = a.GetExecutionControls(leaf.Handle())
	require.NoError(t, err)
	assert.Equal(t, []*admin.ExecutionControl{top}, controls, "falls back to the responsible ancestor")

	controls, err = a.GetExecutionControls(root.Handle())
	require.NoError(t, err)
	assert.Len(t, controls, 2)
}

func TestExecutionControl_Lifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	container := env.Group(t, nil, "Container", 0)
	exec := testutil.NewMockExecutable()
	control, err := admin.AttachExecutionControl(container, exec)
	require.NoError(t, err)
	assert.Same(t, container, control.Element())
	assert.Same(t, control, admin.FindExecutionControl(env.Group(t, container, "Child", 0)))

	_, err = admin.AttachExecutionControl(container, testutil.NewMockExecutable())
	assert.ErrorIs(t, err, errors.ErrAnnotationExists)

	require.NoError(t, control.Start(context.Background()))
	require.NoError(t, control.Start(context.Background()))
	assert.True(t, control.IsRunning())
	starts, _ := exec.Calls()
	assert.Equal(t, 1, starts, "starting a running control does nothing")

	container.ManagedDelete()
	assert.False(t, exec.IsRunning(), "deletion pauses execution")
	_, pauses := exec.Calls()
	assert.Equal(t, 1, pauses)

	err = control.Start(context.Background())
	assert.ErrorIs(t, err, errors.ErrElementDeleted)
}

func TestExecutionControl_StartFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	exec := testutil.NewMockExecutable()
	exec.StartFunc = func(context.Context) error { return stderrors.New("no threads") }
	control, err := admin.AttachExecutionControl(env.Group(t, nil, "C", 0), exec)
	require.NoError(t, err)

	assert.EqualError(t, control.Start(context.Background()), "no threads")
	assert.False(t, control.IsRunning())

	_, err = admin.AttachExecutionControl(env.Group(t, nil, "D", 0), nil)
	assert.True(t, errors.IsInvalid(err))
}

func TestNew_RequiresRuntime(t *testing.T) {
	_, err := admin.New(admin.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}
