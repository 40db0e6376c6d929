package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/framecore/admin"
	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/persist"
	"github.com/c360/framecore/port"
)

// demoType is the data type carried by the demo ports
const demoType = "sample"

type generatorParams struct {
	Period string `json:"period"`
}

// ticker is an Executable that logs a tick per period while running
type ticker struct {
	name   string
	period time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	ticks  atomic.Uint64
}

func (t *ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(runCtx, t.done)
	return nil
}

func (t *ticker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	tick := time.NewTicker(t.period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n := t.ticks.Add(1)
			t.logger.Debug("Generator tick", "module", t.name, "tick", n)
		}
	}
}

func (t *ticker) Pause() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (t *ticker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// registerDemoModules adds the "generator" and "sink" module types
func registerDemoModules(modules *admin.ModuleRegistry, types *dtype.Registry, logger *slog.Logger) error {
	sample, ok := types.Lookup(demoType)
	if !ok {
		var err error
		if sample, err = types.Register(demoType); err != nil {
			return err
		}
	}

	generator := admin.ModuleType{
		Name:        "generator",
		Description: "emits samples while its execution control runs",
		Version:     Version,
		Factory: func(parent *element.Element, name string, params json.RawMessage) (*element.Element, error) {
			p := generatorParams{Period: "1s"}
			if len(params) > 0 {
				if err := json.Unmarshal(params, &p); err != nil {
					return nil, err
				}
			}
			period, err := time.ParseDuration(p.Period)
			if err != nil || period <= 0 {
				return nil, fmt.Errorf("invalid period %q", p.Period)
			}
			module, err := element.New(parent, name, 0)
			if err != nil {
				return nil, err
			}
			if _, err := port.New(port.Config{
				Name:   "Out",
				Parent: module,
				Type:   sample,
				Flags:  element.FlagEmitsData | element.FlagOutputPort,
			}); err != nil {
				return nil, err
			}
			exec := &ticker{name: name, period: period, logger: logger}
			if _, err := admin.AttachExecutionControl(module, exec); err != nil {
				return nil, err
			}
			return module, nil
		},
	}
	sink := admin.ModuleType{
		Name:        "sink",
		Description: "accepts samples",
		Version:     Version,
		Factory: func(parent *element.Element, name string, _ json.RawMessage) (*element.Element, error) {
			module, err := element.New(parent, name, 0)
			if err != nil {
				return nil, err
			}
			if _, err := port.New(port.Config{
				Name:   "In",
				Parent: module,
				Type:   sample,
				Flags:  element.FlagAcceptsData,
			}); err != nil {
				return nil, err
			}
			return module, nil
		},
	}

	for _, mt := range []admin.ModuleType{generator, sink} {
		if err := modules.Register(mt); err != nil {
			return err
		}
	}
	return nil
}

// buildDemo creates Demo/Generator -> Demo/Sink and starts execution
func buildDemo(ctx context.Context, adm *admin.Admin, rt *element.Runtime, logger *slog.Logger) (*element.Element, error) {
	group, err := element.New(rt.Root(), "Demo", 0)
	if err != nil {
		return nil, err
	}
	group.Init()

	create := func(typeName, name string, params json.RawMessage) (*element.Element, error) {
		h, err := adm.CreateModule(typeName, name, group.Handle(), params)
		if err != nil {
			return nil, err
		}
		module := rt.Element(h)
		if err := persist.SetFinstructed(module, typeName, params); err != nil {
			return nil, err
		}
		return module, nil
	}

	generator, err := create("generator", "Generator", json.RawMessage(`{"period":"2s"}`))
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}
	sink, err := create("sink", "Sink", nil)
	if err != nil {
		return nil, fmt.Errorf("create sink: %w", err)
	}
	if err := persist.AddTags(generator, "demo", "source"); err != nil {
		return nil, err
	}

	out := generator.Child("Out").Handle()
	in := sink.Child("In").Handle()
	if _, err := adm.Connect(out, in, port.ConnectOptions{Flags: port.ConnectFinstructed}); err != nil {
		return nil, fmt.Errorf("connect demo modules: %w", err)
	}

	controls, err := adm.GetExecutionControls(group.Handle())
	if err != nil {
		return nil, err
	}
	for _, c := range controls {
		if err := c.Start(ctx); err != nil {
			return nil, fmt.Errorf("start %s: %w", c.Element().QualifiedName(), err)
		}
	}
	logger.Info("Demo topology built", "root", group.QualifiedName(), "execution_controls", len(controls))
	return group, nil
}
