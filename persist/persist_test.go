package persist_test

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/persist"
	"github.com/c360/framecore/port"
	"github.com/c360/framecore/testutil"
)

type application struct {
	env    *testutil.Env
	app    *element.Element
	source *element.Element
	sink   *element.Element
	out    *port.Port
	in     *port.Port
	tap    *port.Port
}

func newApplication(t *testing.T) *application {
	t.Helper()
	env := testutil.NewEnv(t)
	a := &application{env: env}
	a.app = env.Group(t, nil, "App", 0)
	a.source = env.Group(t, a.app, "Source", 0)
	a.out = env.Port(t, a.source, "Out", testutil.OutputFlags)
	a.sink = env.Group(t, a.app, "Sink", 0)
	a.in = env.Port(t, a.sink, "In", testutil.InputFlags)
	a.tap = env.Port(t, a.app, "Tap", testutil.InputFlags)
	require.NoError(t, a.sink.Link(env.Runtime.Root(), "SinkAlias"))
	a.app.Init()

	require.NoError(t, persist.SetFinstructed(a.source, "create-module", json.RawMessage(`{"type":"pass"}`)))
	require.NoError(t, persist.SetFinstructed(a.sink, "create-module", nil))
	require.NoError(t, persist.AddTags(a.source, "producer"))

	_, err := a.out.ConnectTo(a.in, port.ConnectOptions{Flags: port.ConnectFinstructed})
	require.NoError(t, err)
	_, err = a.out.ConnectTo(a.tap, port.ConnectOptions{})
	require.NoError(t, err)
	return a
}

// compareRaw compares JSON documents by value so indentation does not matter
var compareRaw = cmp.Transformer("RawJSON", func(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
})

func TestEnumerate(t *testing.T) {
	a := newApplication(t)

	want := []persist.Node{
		{
			Handle: a.source.Handle(),
			Path:   "/App/Source",
			Flags:  "READY|PUBLISHED|FINSTRUCTED",
			Tags:   []string{"producer"},
			Action: &persist.CreateAction{Action: "create-module", Params: json.RawMessage(`{"type":"pass"}`)},
		},
		{
			Handle: a.out.Handle(),
			Path:   "/App/Source/Out",
			Flags:  "PORT|EMITS_DATA|OUTPUT_PORT|READY|PUBLISHED",
			Port:   true,
		},
		{
			Handle: a.sink.Handle(),
			Path:   "/App/Sink",
			Flags:  "READY|PUBLISHED|FINSTRUCTED",
			Links:  []string{"/SinkAlias"},
			Action: &persist.CreateAction{Action: "create-module"},
		},
		{
			Handle: a.in.Handle(),
			Path:   "/App/Sink/In",
			Flags:  "PORT|ACCEPTS_DATA|READY|PUBLISHED",
			Port:   true,
		},
		{
			Handle: a.tap.Handle(),
			Path:   "/App/Tap",
			Flags:  "PORT|ACCEPTS_DATA|READY|PUBLISHED",
			Port:   true,
		},
	}
	if diff := cmp.Diff(want, persist.Enumerate(a.app, nil), compareRaw); diff != "" {
		t.Errorf("Enumerate() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerate_FinstructedOnly(t *testing.T) {
	a := newApplication(t)

	var paths []string
	for _, n := range persist.Enumerate(a.env.Runtime.Root(), persist.FinstructedOnly) {
		paths = append(paths, n.Path)
	}
	assert.Equal(t, []string{"/App/Source", "/App/Sink"}, paths)
}

func TestEnumerate_SkipsConstructingElements(t *testing.T) {
	a := newApplication(t)
	a.env.Group(t, a.app, "Pending", 0)

	for _, n := range persist.Enumerate(a.app, nil) {
		assert.NotEqual(t, "/App/Pending", n.Path)
	}
}

func TestConnections(t *testing.T) {
	a := newApplication(t)

	want := []persist.Edge{
		{Source: "/App/Source/Out", Destination: "/App/Sink/In", Flags: "TO_DESTINATION|FINSTRUCTED|PUBLISHED", Finstructed: true},
		{Source: "/App/Source/Out", Destination: "/App/Tap", Flags: "TO_DESTINATION|PUBLISHED"},
	}
	if diff := cmp.Diff(want, persist.Connections(a.app, false)); diff != "" {
		t.Errorf("Connections() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want[:1], persist.Connections(a.app, true)); diff != "" {
		t.Errorf("Connections(finstructed) mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	a := newApplication(t)
	snapshot := persist.Take(a.app, persist.All, false)
	assert.Equal(t, a.env.Runtime.ID().String(), snapshot.Runtime)
	assert.Equal(t, "/App", snapshot.Root)
	require.Len(t, snapshot.Nodes, 5)
	require.Len(t, snapshot.Edges, 2)

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, snapshot.Encode(&buf, format))
			decoded, err := persist.Decode(&buf, format)
			require.NoError(t, err)
			if diff := cmp.Diff(snapshot, decoded, compareRaw); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var buf bytes.Buffer
	err := snapshot.Encode(&buf, "xml")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	_, err = persist.Decode(&buf, "xml")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestSetFinstructed(t *testing.T) {
	env := testutil.NewEnv(t)
	e := env.Group(t, nil, "Module", 0)
	e.Init()

	var mu sync.Mutex
	var changes []string
	env.Runtime.AddListener(runtimeListenerFunc(func(change element.ChangeType, el *element.Element) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, change.String()+" "+el.QualifiedName())
	}))

	err := persist.SetFinstructed(e, "", nil)
	assert.True(t, errors.IsInvalid(err))
	err = persist.SetFinstructed(e, "load", json.RawMessage(`{broken`))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.False(t, e.Flags().Has(element.FlagFinstructed))

	require.NoError(t, persist.SetFinstructed(e, "load", json.RawMessage(`[1,2]`)))
	assert.True(t, e.Flags().Has(element.FlagFinstructed))
	assert.Equal(t, "load", persist.CreateActionOf(e).Action)
	assert.Equal(t, []string{"status /Module"}, changes)

	err = persist.SetFinstructed(e, "again", nil)
	assert.ErrorIs(t, err, errors.ErrAnnotationExists)
}

func TestTags(t *testing.T) {
	env := testutil.NewEnv(t)
	e := env.Group(t, nil, "Tagged", 0)
	assert.Nil(t, persist.TagsOf(e))

	require.NoError(t, persist.AddTags(e, "sensor", "camera"))
	require.NoError(t, persist.AddTags(e, "camera", "front"))
	assert.Equal(t, []string{"sensor", "camera", "front"}, persist.TagsOf(e))

	tags := persist.TagsOf(e)
	tags[0] = "changed"
	assert.Equal(t, "sensor", persist.TagsOf(e)[0], "TagsOf returns a copy")
}

type runtimeListenerFunc func(change element.ChangeType, e *element.Element)

func (f runtimeListenerFunc) OnElementChange(change element.ChangeType, e *element.Element) {
	f(change, e)
}
