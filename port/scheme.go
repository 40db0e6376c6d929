package port

import (
	"net/url"
	"sync"

	"github.com/c360/framecore/errors"
)

// SchemeParameter describes a URI parameter a scheme handler accepts
type SchemeParameter struct {
	Name        string
	Description string
	Default     string
}

// SchemeHandler materializes URI connectors for one URI scheme
type SchemeHandler interface {
	// SchemeName returns the scheme, empty for the local handler
	SchemeName() string
	// Parameters declares the accepted URI query parameters
	Parameters() []SchemeParameter
	// Create builds a URI connector owned by owner. The port layer attaches
	// the returned connector to its owner. A nil connector with a nil error
	// declines the URI; ConnectToURI reports it as ErrConnectRejected.
	Create(owner *Port, uri *url.URL, opts ConnectOptions) (URIConnector, error)
}

// SchemeHandle identifies a registered handler. Handles are small integers
// assigned in registration order and never reused.
type SchemeHandle int

type schemeEntry struct {
	handler SchemeHandler
	active  bool
}

// SchemeRegistry is an append-only registry of scheme handlers
type SchemeRegistry struct {
	mu      sync.RWMutex
	entries []schemeEntry
}

// NewSchemeRegistry creates an empty registry
func NewSchemeRegistry() *SchemeRegistry {
	return &SchemeRegistry{}
}

// SchemeRegistration is returned by Register. Deregister removes the handler
// from dispatch; its handle stays reserved.
type SchemeRegistration struct {
	Handle   SchemeHandle
	registry *SchemeRegistry
}

// Deregister removes the handler from dispatch
func (r SchemeRegistration) Deregister() {
	r.registry.mu.Lock()
	defer r.registry.mu.Unlock()
	r.registry.entries[r.Handle].active = false
}

// Register adds h. A scheme name may be registered by one active handler only.
func (r *SchemeRegistry) Register(h SchemeHandler) (SchemeRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.active && e.handler.SchemeName() == h.SchemeName() {
			return SchemeRegistration{}, errors.WrapInvalid(errors.ErrSchemeRegistered, "SchemeRegistry", "Register",
				"registration of scheme '"+h.SchemeName()+"'")
		}
	}
	r.entries = append(r.entries, schemeEntry{handler: h, active: true})
	return SchemeRegistration{Handle: SchemeHandle(len(r.entries) - 1), registry: r}, nil
}

// Lookup returns the active handler for scheme
func (r *SchemeRegistry) Lookup(scheme string) (SchemeHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.active && e.handler.SchemeName() == scheme {
			return e.handler, true
		}
	}
	return nil, false
}

// Handler returns the handler registered under handle, active or not
func (r *SchemeRegistry) Handler(h SchemeHandle) SchemeHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h < 0 || int(h) >= len(r.entries) {
		return nil
	}
	return r.entries[h].handler
}

// Handlers returns the active handlers in registration order
func (r *SchemeRegistry) Handlers() []SchemeHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handlers := make([]SchemeHandler, 0, len(r.entries))
	for _, e := range r.entries {
		if e.active {
			handlers = append(handlers, e.handler)
		}
	}
	return handlers
}

// localSchemeHandler stands for same-runtime path connections. It never
// creates connectors itself; LocalURIConnector does.
type localSchemeHandler struct{}

func (localSchemeHandler) SchemeName() string { return "" }

func (localSchemeHandler) Parameters() []SchemeParameter { return nil }

func (localSchemeHandler) Create(*Port, *url.URL, ConnectOptions) (URIConnector, error) {
	return nil, errors.WrapFatal(errors.ErrLocalSchemeCreate, "localSchemeHandler", "Create", "connector creation")
}
