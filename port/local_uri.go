package port

import (
	"github.com/c360/framecore/element"
)

// LocalURIConnector connects its owner to the port at a path of the same
// runtime as soon as that port exists. Without reconnect semantics it
// removes itself after the first successful connection.
type LocalURIConnector struct {
	URIConnectorBase

	path      element.Path
	connector *Connector
}

// createLocalURIConnectorLocked returns an equivalent existing connector or
// creates one, registers it for path and tries to resolve it right away.
// adopt is an existing connector the new URI connector takes over.
func (p *Port) createLocalURIConnectorLocked(path element.Path, opts ConnectOptions, adopt *Connector) *LocalURIConnector {
	for _, existing := range p.uriConnectors.Snapshot() {
		if l, ok := existing.(*LocalURIConnector); ok && l.path.Equal(path) && l.opts.Equal(opts) {
			if adopt != nil && l.connector == nil {
				adopt.uriOwner = l
				l.connector = adopt
				l.SetStatusLocked(URIConnected)
			}
			return l
		}
	}

	u := &LocalURIConnector{path: path}
	u.InitBase(p, path.String(), opts)
	p.addURIConnectorLocked(u)
	p.Runtime().Registry().AddPortAddedListener(path, u)

	if adopt != nil {
		adopt.uriOwner = u
		u.connector = adopt
		u.SetStatusLocked(URIConnected)
		return u
	}
	if target := p.Runtime().FindPath(path); target != nil && target.IsPublished() && target.IsPort() {
		u.OnPortAdded(path, target)
	}
	return u
}

// Path returns the absolute path of the partner port
func (u *LocalURIConnector) Path() element.Path {
	return u.path
}

// Connector returns the connector currently owned, or nil
func (u *LocalURIConnector) Connector() *Connector {
	return u.connector
}

// Reconnects reports whether the connector restores the connection after
// the partner disappears
func (u *LocalURIConnector) Reconnects() bool {
	if u.opts.Flags.Has(ConnectReconnect) || u.owner.IsVolatile() {
		return true
	}
	if c := u.connector; c != nil {
		return c.source.IsVolatile() || c.destination.IsVolatile()
	}
	return false
}

// Disconnect removes the URI connector from its owner
func (u *LocalURIConnector) Disconnect() {
	u.owner.RemoveURIConnector(u)
}

// OnPortAdded resolves the connector when its partner port is published.
// It is called by the element registry under the structure lock.
func (u *LocalURIConnector) OnPortAdded(_ element.Path, e *element.Element) {
	if u.IsRemoved() || (u.connector != nil && !u.connector.IsDisconnected()) {
		return
	}
	target := FromElement(e)
	owner := u.owner
	if target == nil || owner.IsDeleted() || target.IsDeleted() {
		return
	}

	c, err := owner.connectLocked(target, u.opts, u)
	if err != nil {
		u.SetStatusLocked(URIError)
		owner.services.warn("URI connector could not connect", "owner", owner.QualifiedName(),
			"uri", u.uri, "error", err)
		return
	}

	reconnect := u.opts.Flags.Has(ConnectReconnect) || owner.IsVolatile() || target.IsVolatile()
	if reconnect {
		if c.uriOwner == nil && c.IsPrimary() {
			// an independent connection already exists; keep watching only
			u.SetStatusLocked(URIConnected)
			return
		}
		u.connector = c
		u.SetStatusLocked(URIConnected)
		return
	}

	u.SetStatusLocked(URIConnected)
	owner.removeURIConnectorLocked(u)
}

// OnDisconnect stops watching the partner path and disconnects the owned
// connector if it only materializes this URI connector
func (u *LocalURIConnector) OnDisconnect() {
	u.owner.Runtime().Registry().RemovePortAddedListener(u.path, u)
	c := u.connector
	u.connector = nil
	if c != nil && !c.IsPrimary() {
		c.disconnectLocked()
	}
}

// connectsLocked reports whether the connector maintains a connection
// between a and b
func (u *LocalURIConnector) connectsLocked(a, b *Port) bool {
	if c := u.connector; c != nil {
		return (c.source == a && c.destination == b) || (c.source == b && c.destination == a)
	}
	partner := b
	if u.owner == b {
		partner = a
	} else if u.owner != a {
		return false
	}
	return u.path.Equal(partner.Path())
}

// onConnectorDisconnectedLocked is called when the owned connector is
// disconnected, for example because the partner port was deleted
func (u *LocalURIConnector) onConnectorDisconnectedLocked(c *Connector) {
	if u.connector != c {
		return
	}
	u.connector = nil
	if !u.IsRemoved() {
		u.SetStatusLocked(URIDisconnected)
	}
}
