package element_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/element"
)

type portWatcher struct {
	added []string
}

func (w *portWatcher) OnPortAdded(path element.Path, port *element.Element) {
	w.added = append(w.added, path.String())
}

func TestRegistry_PortAddedListeners(t *testing.T) {
	rt, _ := newRuntime(t)
	watcher := &portWatcher{}
	path := element.ParsePath("/Module/Out")
	rt.Registry().AddPortAddedListener(path, watcher)
	rt.Registry().AddPortAddedListener(path, watcher)
	assert.Equal(t, 1, rt.Registry().PathListenerCount(path))

	module := mustNew(t, rt.Root(), "Module", 0)
	mustNew(t, module, "Out", element.FlagPort)
	mustNew(t, module, "Other", element.FlagPort)
	module.Init()
	assert.Equal(t, []string{"/Module/Out"}, watcher.added)

	rt.Registry().RemovePortAddedListener(path, watcher)
	assert.Equal(t, 0, rt.Registry().PathListenerCount(path))
}

func TestRegistry_NonPortsDoNotNotify(t *testing.T) {
	rt, _ := newRuntime(t)
	watcher := &portWatcher{}
	rt.Registry().AddPortAddedListener(element.ParsePath("/Group"), watcher)

	mustNew(t, rt.Root(), "Group", 0).Init()
	assert.Empty(t, watcher.added)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := element.NewRegistry()
	rt, err := element.NewRuntime(element.Dependencies{Registry: reg})
	require.NoError(t, err)

	assert.Same(t, rt.Registry(), reg)
	assert.Same(t, rt.Root(), reg.Element(rt.Root().Handle()))
	assert.Nil(t, reg.Element(element.Handle(12345)))
	assert.Equal(t, "0x80000000", element.PortHandleBase.String())
}

func TestPath_ParseAndFormat(t *testing.T) {
	tests := []struct {
		in       string
		absolute bool
		names    []string
		out      string
	}{
		{"/a/b", true, []string{"a", "b"}, "/a/b"},
		{"a//b/", false, []string{"a", "b"}, "a/b"},
		{"../x", false, []string{"..", "x"}, "../x"},
		{"/", true, nil, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := element.ParsePath(tt.in)
			assert.Equal(t, tt.absolute, p.IsAbsolute())
			assert.Equal(t, tt.names, p.Names())
			assert.Equal(t, tt.out, p.String())
		})
	}

	p := element.NewPath(true, "a")
	assert.True(t, p.Append("b").Equal(element.ParsePath("/a/b")))
	assert.True(t, p.Append("b").Parent().Equal(p))
	assert.False(t, p.Equal(element.ParsePath("a")))
}
