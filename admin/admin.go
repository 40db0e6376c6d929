package admin

import (
	"encoding/json"
	"log/slog"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/port"
)

// Dependencies holds what the administration service needs
type Dependencies struct {
	Runtime *element.Runtime
	Modules *ModuleRegistry // optional, an empty registry is created if nil
	Logger  *slog.Logger    // optional, defaults to slog.Default()
}

// Admin exposes structural operations addressed by element handles. It is
// the surface remote administration and tooling is built on.
type Admin struct {
	rt      *element.Runtime
	modules *ModuleRegistry
	logger  *slog.Logger
}

// New creates an administration service for deps.Runtime
func New(deps Dependencies) (*Admin, error) {
	if deps.Runtime == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Admin", "New", "runtime validation")
	}
	modules := deps.Modules
	if modules == nil {
		modules = NewModuleRegistry()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{
		rt:      deps.Runtime,
		modules: modules,
		logger:  logger.With("component", "admin"),
	}, nil
}

// Modules returns the module type registry
func (a *Admin) Modules() *ModuleRegistry {
	return a.modules
}

func (a *Admin) element(h element.Handle, method string) (*element.Element, error) {
	e := a.rt.Element(h)
	if e == nil {
		return nil, errors.WrapInvalid(errors.ErrElementNotFound, "Admin", method, "lookup of "+h.String())
	}
	return e, nil
}

func (a *Admin) port(h element.Handle, method string) (*port.Port, error) {
	e, err := a.element(h, method)
	if err != nil {
		return nil, err
	}
	p := port.FromElement(e)
	if p == nil {
		return nil, errors.WrapInvalid(errors.ErrNotAPort, "Admin", method, "lookup of "+h.String())
	}
	return p, nil
}

// Connect connects the ports with handles source and destination. Without
// direction flags in opts the direction is inferred.
func (a *Admin) Connect(source, destination element.Handle, opts port.ConnectOptions) (*port.Connector, error) {
	src, err := a.port(source, "Connect")
	if err != nil {
		return nil, err
	}
	dst, err := a.port(destination, "Connect")
	if err != nil {
		return nil, err
	}
	c, err := src.ConnectTo(dst, opts)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Ports connected", "connector", c.String())
	return c, nil
}

// Disconnect removes all connectors between two ports. It reports whether
// anything was disconnected.
func (a *Admin) Disconnect(first, second element.Handle) (bool, error) {
	p1, err := a.port(first, "Disconnect")
	if err != nil {
		return false, err
	}
	p2, err := a.port(second, "Disconnect")
	if err != nil {
		return false, err
	}
	found := p1.DisconnectFrom(p2)
	if found {
		a.logger.Info("Ports disconnected", "first", p1.QualifiedName(), "second", p2.QualifiedName())
	}
	return found, nil
}

// DisconnectAll removes all connectors of a port
func (a *Admin) DisconnectAll(h element.Handle) error {
	p, err := a.port(h, "DisconnectAll")
	if err != nil {
		return err
	}
	p.DisconnectAll()
	a.logger.Info("Port disconnected from all partners", "port", p.QualifiedName())
	return nil
}

// CreateModule creates a module of the named type below the element with
// handle parent, initializes it and returns its handle
func (a *Admin) CreateModule(typeName, name string, parent element.Handle, params json.RawMessage) (element.Handle, error) {
	mt, ok := a.modules.Lookup(typeName)
	if !ok {
		return element.NilHandle, errors.WrapInvalid(errors.ErrModuleTypeUnknown, "Admin", "CreateModule",
			"lookup of '"+typeName+"'")
	}
	parentElement, err := a.element(parent, "CreateModule")
	if err != nil {
		return element.NilHandle, err
	}
	if err := validateParams(params); err != nil {
		return element.NilHandle, err
	}

	module, err := mt.Factory(parentElement, name, params)
	if err != nil {
		a.logger.Warn("Module creation failed", "type", typeName, "name", name, "error", err)
		return element.NilHandle, errors.Wrap(err, "Admin", "CreateModule", "factory execution")
	}
	module.Init()
	a.logger.Info("Module created", "type", typeName, "element", module.QualifiedName(), "handle", module.Handle())
	return module.Handle(), nil
}

// DeleteElement deletes the element with handle h and its subtree
func (a *Admin) DeleteElement(h element.Handle) error {
	e, err := a.element(h, "DeleteElement")
	if err != nil {
		return err
	}
	if e.Flags().Has(element.FlagRuntime) {
		return errors.WrapInvalid(errors.ErrInvalidParent, "Admin", "DeleteElement", "runtime root check")
	}
	name := e.QualifiedName()
	e.ManagedDelete()
	a.logger.Info("Element deleted", "element", name, "handle", h)
	return nil
}

// GetExecutionControls returns the execution controls in the subtree of the
// element with handle h, or the one responsible for it
func (a *Admin) GetExecutionControls(h element.Handle) ([]*ExecutionControl, error) {
	e, err := a.element(h, "GetExecutionControls")
	if err != nil {
		return nil, err
	}
	controls := FindAllExecutionControls(e)
	if len(controls) == 0 {
		return nil, errors.WrapInvalid(errors.ErrNoExecutionControl, "Admin", "GetExecutionControls",
			"search from "+e.QualifiedName())
	}
	return controls, nil
}
