package port

import (
	"fmt"
	"io"
	"strings"

	"github.com/c360/framecore/dtype"
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

// ConnectTo connects p and other. Invalid options return an ErrorInvalid
// classified error. A refused connection returns a *ConnectError and leaves
// both ports untouched. If the ports are already connected, the existing
// connector is returned.
func (p *Port) ConnectTo(other *Port, opts ConnectOptions) (*Connector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if other == nil {
		return nil, errors.WrapInvalid(errors.ErrPortNotFound, "Port", "ConnectTo", "partner lookup")
	}

	rt := p.Runtime()
	rt.Lock()
	defer rt.Unlock()

	c, err := p.connectLocked(other, opts, nil)
	if err != nil {
		p.services.logger.Warn("Connecting ports failed", "error", err)
	}
	return c, err
}

// connectLocked implements the connection protocol. owner is the URI
// connector materializing this connection, if any.
func (p *Port) connectLocked(other *Port, opts ConnectOptions, owner *LocalURIConnector) (*Connector, error) {
	metrics := p.Runtime().Metrics()
	reject := func(source, destination *Port, reason string, err error) (*Connector, error) {
		if metrics != nil {
			metrics.RecordConnect("rejected")
		}
		return nil, &ConnectError{
			Source:      source.QualifiedName(),
			Destination: destination.QualifiedName(),
			Reason:      reason,
			Err:         err,
		}
	}

	switch {
	case p.IsDeleted() || other.IsDeleted():
		return reject(p, other, "port deleted", errors.ErrElementDeleted)
	case p == other:
		return reject(p, other, "cannot connect port to itself", errors.ErrConnectRejected)
	case p.Runtime() != other.Runtime():
		return reject(p, other, "ports belong to different runtimes", errors.ErrConnectRejected)
	}
	if existing := p.connectorWith(other); existing != nil {
		if metrics != nil {
			metrics.RecordConnect("existing")
		}
		return existing, nil
	}

	var source, destination *Port
	var forward, backward strings.Builder
	switch {
	case opts.Flags.Has(ConnectDirectionToDestination):
		if !p.mayConnectTo(other, opts.Conversion, &forward) {
			return reject(p, other, forward.String(), errors.ErrConnectRejected)
		}
		source, destination = p, other
	case opts.Flags.Has(ConnectDirectionToSource):
		if !other.mayConnectTo(p, opts.Conversion, &backward) {
			return reject(other, p, backward.String(), errors.ErrConnectRejected)
		}
		source, destination = other, p
	default:
		toOther := p.mayConnectTo(other, opts.Conversion, &forward)
		toThis := other.mayConnectTo(p, opts.Conversion, &backward)
		switch {
		case toOther && toThis:
			if p.InferConnectDirection(other) == ConnectDirectionToDestination {
				source, destination = p, other
			} else {
				source, destination = other, p
			}
		case toOther:
			source, destination = p, other
		case toThis:
			source, destination = other, p
		default:
			reason := "forward: " + forward.String() + " backward: " + backward.String()
			return reject(p, other, reason, errors.ErrConnectRejected)
		}
	}

	flags := opts.Flags &^ directionFlags
	if source == p {
		flags |= ConnectDirectionToDestination
	} else {
		flags |= ConnectDirectionToSource
	}
	reconnect := opts.Flags.Has(ConnectReconnect) || p.IsVolatile() || other.IsVolatile()
	if reconnect {
		flags |= ConnectNonPrimary
	}

	c := newConnector(source, destination, flags, opts.Conversion)
	if owner != nil && reconnect {
		c.uriOwner = owner
	}
	source.outgoing.Add(c)
	destination.incoming.Add(c)
	c.setFlags(ConnectPublished, 0)

	if h := source.hooks; h != nil {
		h.OnConnect(destination, true)
	}
	if h := destination.hooks; h != nil {
		h.OnConnect(source, false)
	}
	recordAggregatedEdge(c, 1)
	notifyConnectorChange(p.Runtime(), element.ChangeAdd, c)
	if metrics != nil {
		metrics.RecordConnect("connected")
	}

	if reconnect && owner == nil {
		p.createReconnectIntentLocked(other, opts)
	}
	return c, nil
}

// createReconnectIntentLocked attaches a local URI connector that restores
// the connection between p and other whenever the volatile side reappears.
// It is owned by the stable port and watches the path of the other one.
func (p *Port) createReconnectIntentLocked(other *Port, opts ConnectOptions) {
	ownerPort, target := p, other
	if p.IsVolatile() && !other.IsVolatile() {
		ownerPort, target = other, p
	}
	c := ownerPort.connectorWith(target)

	intent := ConnectOptions{Flags: opts.Flags&^directionFlags | ConnectReconnect, Conversion: opts.Conversion}
	if c.source == ownerPort {
		intent.Flags |= ConnectDirectionToDestination
	} else {
		intent.Flags |= ConnectDirectionToSource
	}
	u := ownerPort.createLocalURIConnectorLocked(target.Path(), intent, c)
	ownerPort.services.logger.Debug("Reconnect intent created", "owner", ownerPort.QualifiedName(), "path", u.Path().String())
}

// MayConnectTo reports whether p may be the source of a connector to
// destination. Reasons for a refusal are written to diag, which may be nil.
func (p *Port) MayConnectTo(destination *Port, diag io.Writer) bool {
	return p.mayConnectTo(destination, nil, diag)
}

func (p *Port) mayConnectTo(destination *Port, conversion dtype.ConversionSequence, diag io.Writer) bool {
	if diag == nil {
		diag = io.Discard
	}
	ok := true
	if !p.EmitsData() {
		fmt.Fprintf(diag, "%s does not emit data; ", p.QualifiedName())
		ok = false
	}
	if !destination.AcceptsData() {
		fmt.Fprintf(diag, "%s does not accept data; ", destination.QualifiedName())
		ok = false
	}
	if conversion.Empty() {
		if !p.services.types.ImplicitlyConvertible(p.dataType, destination.dataType) {
			fmt.Fprintf(diag, "type %s is not convertible to %s; ", p.dataType, destination.dataType)
			ok = false
		}
	} else if !conversion.Converts(p.dataType, destination.dataType) {
		fmt.Fprintf(diag, "conversion '%s' does not map %s to %s; ", conversion, p.dataType, destination.dataType)
		ok = false
	}
	if !p.services.constraints.Check(p, destination, diag) {
		ok = false
	}
	return ok
}

// InferConnectDirection decides the direction of a connection between two
// ports that could be connected either way. It returns
// ConnectDirectionToDestination when p should be the source and
// ConnectDirectionToSource otherwise.
func (p *Port) InferConnectDirection(other *Port) ConnectFlag {
	toward := func(pIsSource bool) ConnectFlag {
		if pIsSource {
			return ConnectDirectionToDestination
		}
		return ConnectDirectionToSource
	}

	// network ports know their direction
	if p.Flags().Has(element.FlagNetworkElement) {
		return toward(p.IsOutputPort())
	}
	if other.Flags().Has(element.FlagNetworkElement) {
		return toward(!other.IsOutputPort())
	}

	pOut, otherOut := p.IsOutputPort(), other.IsOutputPort()
	if pOut != otherOut {
		// inner ports of the same interface are wired against the default
		if p.sharesAggregatingInterface(other) {
			return toward(!pOut)
		}
		return toward(pOut)
	}

	pDepth, otherDepth := p.Depth(), other.Depth()
	if pDepth != otherDepth {
		deeper := pDepth > otherDepth
		if pOut {
			return toward(deeper)
		}
		return toward(!deeper)
	}

	if p.Parent() != other.Parent() {
		p.services.logger.Warn("Cannot infer connection direction, defaulting to source to destination",
			"port", p.QualifiedName(), "other", other.QualifiedName())
	}
	return ConnectDirectionToDestination
}

func (p *Port) sharesAggregatingInterface(other *Port) bool {
	parent := p.Parent()
	return parent != nil && parent == other.Parent() &&
		parent.Flags().Any(element.FlagInterface|element.FlagEdgeAggregator)
}

// DisconnectFrom removes every connector between p and other together with
// the URI connectors that maintain them. It reports whether anything was
// disconnected.
func (p *Port) DisconnectFrom(other *Port) bool {
	rt := p.Runtime()
	rt.Lock()
	defer rt.Unlock()

	found := false
	for _, owner := range []*Port{p, other} {
		for _, u := range owner.uriConnectors.Snapshot() {
			if l, ok := u.(*LocalURIConnector); ok && l.connectsLocked(p, other) {
				owner.removeURIConnectorLocked(l)
				found = true
			}
		}
	}
	for c := p.connectorWith(other); c != nil; c = p.connectorWith(other) {
		c.disconnectLocked()
		found = true
	}
	return found
}

// DisconnectAll removes all connectors of the port and the URI connectors
// it owns
func (p *Port) DisconnectAll() {
	p.DisconnectDirections(true, true)
}

// DisconnectDirections removes incoming and/or outgoing connectors.
// Connectors to tool ports are kept unless both directions are cleared.
func (p *Port) DisconnectDirections(incoming, outgoing bool) {
	rt := p.Runtime()
	rt.Lock()
	defer rt.Unlock()
	if incoming && outgoing {
		for _, u := range p.uriConnectors.Snapshot() {
			p.removeURIConnectorLocked(u)
		}
	}
	p.disconnectAllLocked(incoming, outgoing)
}

func (p *Port) disconnectAllLocked(incoming, outgoing bool) {
	both := incoming && outgoing
	if outgoing {
		for _, c := range p.outgoing.Snapshot() {
			if both || !c.destination.IsToolPort() {
				c.disconnectLocked()
			}
		}
	}
	if incoming {
		for _, c := range p.incoming.Snapshot() {
			if both || !c.source.IsToolPort() {
				c.disconnectLocked()
			}
		}
	}
}
