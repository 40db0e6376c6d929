package port

import (
	"sync/atomic"

	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
)

// Connector is a resolved edge between two live ports. Apart from the
// PUBLISHED and DISCONNECTED flags it does not change after construction.
type Connector struct {
	source      *Port
	destination *Port
	flags       atomic.Uint32
	conversion  dtype.ConversionSequence

	// uriOwner is notified on disconnect; set under the structure lock
	uriOwner  *LocalURIConnector
	destroyed atomic.Bool
}

func newConnector(source, destination *Port, flags ConnectFlag, conversion dtype.ConversionSequence) *Connector {
	if !conversion.Empty() {
		flags |= ConnectConversion
	}
	c := &Connector{
		source:      source,
		destination: destination,
		conversion:  conversion,
	}
	c.flags.Store(uint32(flags))
	return c
}

// Source returns the port data flows from
func (c *Connector) Source() *Port {
	return c.source
}

// Destination returns the port data flows to
func (c *Connector) Destination() *Port {
	return c.destination
}

// Flags returns the connector's flag word
func (c *Connector) Flags() ConnectFlag {
	return ConnectFlag(c.flags.Load())
}

// Conversion returns the type conversion applied to crossing values
func (c *Connector) Conversion() dtype.ConversionSequence {
	return c.conversion
}

// IsDisconnected reports whether the connector was removed from its ports
func (c *Connector) IsDisconnected() bool {
	return c.Flags().Has(ConnectDisconnected)
}

// IsPrimary reports whether the connector represents the connection itself
// rather than the current materialization of a URI connector
func (c *Connector) IsPrimary() bool {
	return !c.Flags().Has(ConnectNonPrimary)
}

// IsDestroyed reports whether the reclaimer has released the connector
func (c *Connector) IsDestroyed() bool {
	return c.destroyed.Load()
}

// Disconnect removes the connector from both ports. Calling it again does nothing.
func (c *Connector) Disconnect() {
	rt := c.source.Runtime()
	rt.Lock()
	defer rt.Unlock()
	c.disconnectLocked()
}

func (c *Connector) setFlags(set, clear ConnectFlag) ConnectFlag {
	for {
		old := c.flags.Load()
		updated := (old | uint32(set)) &^ uint32(clear)
		if c.flags.CompareAndSwap(old, updated) {
			return ConnectFlag(old)
		}
	}
}

func (c *Connector) disconnectLocked() {
	old := c.setFlags(ConnectDisconnected, 0)
	if old.Has(ConnectDisconnected) {
		return
	}

	c.source.outgoing.Remove(c)
	c.destination.incoming.Remove(c)
	if h := c.source.hooks; h != nil {
		h.OnDisconnect(c.destination, true)
	}
	if h := c.destination.hooks; h != nil {
		h.OnDisconnect(c.source, false)
	}
	recordAggregatedEdge(c, -1)

	rt := c.source.Runtime()
	if old.Has(ConnectPublished) {
		notifyConnectorChange(rt, element.ChangeRemove, c)
	}
	if m := rt.Metrics(); m != nil {
		m.RecordDisconnect()
	}
	if u := c.uriOwner; u != nil {
		u.onConnectorDisconnectedLocked(c)
	}
	rt.Retire(c, c.destroy)
}

func (c *Connector) destroy() {
	c.destroyed.Store(true)
}

func (c *Connector) String() string {
	return c.source.QualifiedName() + " -> " + c.destination.QualifiedName()
}

// ConnectionListener observes connector changes. Callbacks run under the
// structure lock and must neither block nor modify the graph.
type ConnectionListener interface {
	OnConnectorChange(change element.ChangeType, c *Connector)
}

func notifyConnectorChange(rt *element.Runtime, change element.ChangeType, c *Connector) {
	for _, l := range rt.Listeners() {
		if cl, ok := l.(ConnectionListener); ok {
			cl.OnConnectorChange(change, c)
		}
	}
}
