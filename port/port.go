package port

import (
	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/pkg/cowlist"
)

// Hooks lets port implementations react to connector changes. Both methods
// run under the structure lock.
type Hooks interface {
	OnConnect(partner *Port, asSource bool)
	OnDisconnect(partner *Port, asSource bool)
}

// Config describes a new port
type Config struct {
	Name string
	// Parent of the port. When nil the port is attached to the unrelated
	// element of Runtime.
	Parent  *element.Element
	Runtime *element.Runtime
	Type    dtype.Type
	// Flags are element flags. FlagPort is always added.
	Flags element.Flag
	// WrapperType hints at the type wrapping this port in user code
	WrapperType string
	Hooks       Hooks
}

// Port is an element that emits and/or accepts typed data through connectors
type Port struct {
	*element.Element

	services    *Services
	dataType    dtype.Type
	wrapperType string
	hooks       Hooks

	outgoing      cowlist.List[*Connector]
	incoming      cowlist.List[*Connector]
	uriConnectors cowlist.List[URIConnector]
}

// New constructs a port. The port must be initialized with Init before it
// is published.
func New(cfg Config) (*Port, error) {
	if cfg.Type.IsNil() {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Port", "New", "data type validation")
	}
	rt := cfg.Runtime
	if cfg.Parent != nil {
		rt = cfg.Parent.Runtime()
	}
	if rt == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParent, "Port", "New", "runtime lookup")
	}

	p := &Port{
		services:    ServicesOf(rt),
		dataType:    cfg.Type,
		wrapperType: cfg.WrapperType,
		hooks:       cfg.Hooks,
	}
	e, err := element.New(cfg.Parent, cfg.Name, cfg.Flags|element.FlagPort,
		element.WithRuntime(rt), element.WithOwner(p))
	if err != nil {
		return nil, err
	}
	p.Element = e
	return p, nil
}

// FromElement returns the port behind e, or nil if e is not a port
func FromElement(e *element.Element) *Port {
	if e == nil {
		return nil
	}
	p, _ := e.Owner().(*Port)
	return p
}

// Lookup returns the live port with handle h
func Lookup(rt *element.Runtime, h element.Handle) *Port {
	if !h.IsPort() {
		return nil
	}
	return FromElement(rt.Element(h))
}

// Services returns the port services of the port's runtime
func (p *Port) Services() *Services {
	return p.services
}

// DataType returns the port's data type
func (p *Port) DataType() dtype.Type {
	return p.dataType
}

// WrapperType returns the wrapper type hint
func (p *Port) WrapperType() string {
	return p.wrapperType
}

// EmitsData reports whether the port can be a connector source
func (p *Port) EmitsData() bool {
	return p.Flags().Has(element.FlagEmitsData)
}

// AcceptsData reports whether the port can be a connector destination
func (p *Port) AcceptsData() bool {
	return p.Flags().Has(element.FlagAcceptsData)
}

// IsOutputPort reports whether the port is flagged as output
func (p *Port) IsOutputPort() bool {
	return p.Flags().Has(element.FlagOutputPort)
}

// IsProxy reports whether the port both emits and accepts data
func (p *Port) IsProxy() bool {
	return p.Flags().Has(element.FlagEmitsData | element.FlagAcceptsData)
}

// IsVolatile reports whether the port may disappear and reappear under the same path
func (p *Port) IsVolatile() bool {
	return p.Flags().Has(element.FlagVolatile)
}

// IsToolPort reports whether the port belongs to a tool
func (p *Port) IsToolPort() bool {
	return p.Flags().Has(element.FlagToolPort)
}

// Outgoing returns a snapshot of the connectors this port is the source of
func (p *Port) Outgoing() []*Connector {
	return p.outgoing.Snapshot()
}

// Incoming returns a snapshot of the connectors this port is the destination of
func (p *Port) Incoming() []*Connector {
	return p.incoming.Snapshot()
}

// URIConnectors returns a snapshot of the URI connectors owned by this port
func (p *Port) URIConnectors() []URIConnector {
	return p.uriConnectors.Snapshot()
}

// IsConnected reports whether any connector is attached
func (p *Port) IsConnected() bool {
	return p.outgoing.Len() > 0 || p.incoming.Len() > 0
}

// IsConnectedTo reports whether a connector between p and other exists in
// either direction
func (p *Port) IsConnectedTo(other *Port) bool {
	return p.connectorWith(other) != nil
}

func (p *Port) connectorWith(other *Port) *Connector {
	var found *Connector
	p.outgoing.Range(func(c *Connector) bool {
		if c.destination == other && !c.IsDisconnected() {
			found = c
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	p.incoming.Range(func(c *Connector) bool {
		if c.source == other && !c.IsDisconnected() {
			found = c
			return false
		}
		return true
	})
	return found
}

// PrepareDelete severs all connectors and URI connectors of the port. It is
// called by ManagedDelete under the structure lock.
func (p *Port) PrepareDelete() {
	for _, u := range p.uriConnectors.Clear() {
		p.removeURIConnectorLocked(u)
	}
	p.disconnectAllLocked(true, true)
}

func (p *Port) String() string {
	return p.QualifiedName()
}
