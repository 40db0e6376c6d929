package port

import (
	"net/url"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

// URIStatus is the connection state of a URI connector
type URIStatus int32

const (
	URIDisconnected URIStatus = iota
	URIConnected
	URIError
)

func (s URIStatus) String() string {
	switch s {
	case URIDisconnected:
		return "disconnected"
	case URIConnected:
		return "connected"
	case URIError:
		return "error"
	default:
		return "unknown"
	}
}

// URIConnector is a connection request whose partner is addressed by a URI.
// Implementations embed URIConnectorBase.
type URIConnector interface {
	ID() uuid.UUID
	URI() string
	Owner() *Port
	Status() URIStatus
	Options() ConnectOptions
	// OnDisconnect is called under the structure lock when the connector is
	// removed from its owner. It must stop all reactions to tree changes.
	OnDisconnect()

	base() *URIConnectorBase
}

// URIConnectorListener observes URI connector changes. Status changes are
// reported as element.ChangeStatus. Callbacks run under the structure lock.
type URIConnectorListener interface {
	OnURIConnectorChange(change element.ChangeType, u URIConnector)
}

// URIConnectorBase carries the state shared by all URI connector types
type URIConnectorBase struct {
	id      uuid.UUID
	uri     string
	owner   *Port
	opts    ConnectOptions
	status  atomic.Int32
	removed atomic.Bool
	self    URIConnector
}

// InitBase initializes the shared state of a URI connector. Scheme handlers
// call it before returning a new connector.
func (b *URIConnectorBase) InitBase(owner *Port, uri string, opts ConnectOptions) {
	b.id = uuid.New()
	b.uri = uri
	b.owner = owner
	b.opts = opts
}

func (b *URIConnectorBase) base() *URIConnectorBase {
	return b
}

// ID returns the unique id of the connector
func (b *URIConnectorBase) ID() uuid.UUID {
	return b.id
}

// URI returns the partner URI
func (b *URIConnectorBase) URI() string {
	return b.uri
}

// Owner returns the port owning the connector
func (b *URIConnectorBase) Owner() *Port {
	return b.owner
}

// Options returns the options the connector was created with
func (b *URIConnectorBase) Options() ConnectOptions {
	return b.opts
}

// Status returns the current connection state
func (b *URIConnectorBase) Status() URIStatus {
	return URIStatus(b.status.Load())
}

// IsRemoved reports whether the connector was removed from its owner
func (b *URIConnectorBase) IsRemoved() bool {
	return b.removed.Load()
}

// SetStatusLocked changes the status and notifies listeners. The caller
// must hold the structure lock.
func (b *URIConnectorBase) SetStatusLocked(s URIStatus) {
	old := URIStatus(b.status.Swap(int32(s)))
	if old == s {
		return
	}
	rt := b.owner.Runtime()
	if m := rt.Metrics(); m != nil {
		m.RecordURIStatus(old.String(), s.String())
	}
	if b.self != nil {
		notifyURIConnectorChange(rt, element.ChangeStatus, b.self)
	}
}

func notifyURIConnectorChange(rt *element.Runtime, change element.ChangeType, u URIConnector) {
	for _, l := range rt.Listeners() {
		if ul, ok := l.(URIConnectorListener); ok {
			ul.OnURIConnectorChange(change, u)
		}
	}
}

// ConnectToURI requests a connection to the port addressed by uri. A URI
// without scheme is a path, absolute or relative to the port's parent, and
// is handled by a LocalURIConnector. Other schemes are dispatched to the
// registered scheme handler.
func (p *Port) ConnectToURI(uri string, opts ConnectOptions) (URIConnector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidURI, "Port", "ConnectToURI", "parsing '"+uri+"'")
	}

	rt := p.Runtime()
	if parsed.Scheme == "" {
		rt.Lock()
		defer rt.Unlock()
		if p.IsDeleted() {
			return nil, errors.WrapInvalid(errors.ErrElementDeleted, "Port", "ConnectToURI", "owner state check")
		}
		base := element.Path{}
		if parent := p.Parent(); parent != nil {
			base = parent.Path()
		}
		return p.createLocalURIConnectorLocked(resolvePath(base, element.ParsePath(parsed.Path)), opts, nil), nil
	}

	handler, ok := p.services.schemes.Lookup(parsed.Scheme)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrSchemeUnknown, "Port", "ConnectToURI", "scheme '"+parsed.Scheme+"' lookup")
	}
	u, err := handler.Create(p, parsed, opts)
	if err != nil {
		return nil, errors.Wrap(err, "Port", "ConnectToURI", "scheme '"+parsed.Scheme+"' connector creation")
	}
	if u == nil {
		return nil, errors.WrapInvalid(errors.ErrConnectRejected, "Port", "ConnectToURI", "scheme '"+parsed.Scheme+"' declined '"+uri+"'")
	}

	rt.Lock()
	defer rt.Unlock()
	if p.IsDeleted() {
		u.OnDisconnect()
		return nil, errors.WrapInvalid(errors.ErrElementDeleted, "Port", "ConnectToURI", "owner state check")
	}
	p.addURIConnectorLocked(u)
	return u, nil
}

// resolvePath makes rel absolute against base and removes "." and ".."
func resolvePath(base, rel element.Path) element.Path {
	var names []string
	if !rel.IsAbsolute() {
		names = base.Names()
	}
	for _, name := range rel.Names() {
		switch name {
		case ".":
		case "..":
			if len(names) > 0 {
				names = names[:len(names)-1]
			}
		default:
			names = append(names, name)
		}
	}
	return element.NewPath(true, names...)
}

func (p *Port) addURIConnectorLocked(u URIConnector) {
	u.base().self = u
	p.uriConnectors.Add(u)
	notifyURIConnectorChange(p.Runtime(), element.ChangeAdd, u)
}

// RemoveURIConnector disconnects u and removes it from the port
func (p *Port) RemoveURIConnector(u URIConnector) {
	rt := p.Runtime()
	rt.Lock()
	defer rt.Unlock()
	p.removeURIConnectorLocked(u)
}

func (p *Port) removeURIConnectorLocked(u URIConnector) {
	p.uriConnectors.Remove(u)
	if !u.base().removed.CompareAndSwap(false, true) {
		return
	}
	u.OnDisconnect()
	u.base().SetStatusLocked(URIDisconnected)
	notifyURIConnectorChange(p.Runtime(), element.ChangeRemove, u)
}
