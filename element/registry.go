package element

import (
	"fmt"
	"sync"

	"github.com/c360/framecore/errors"
)

// Handle is the process unique identity of an element
type Handle uint32

const (
	// PortHandleBase is the first handle of the port range
	PortHandleBase Handle = 0x80000000
	// MaxHandle is the largest handle that will be allocated
	MaxHandle Handle = 0xFFFFFFFE
	// NilHandle never identifies an element
	NilHandle Handle = 0
)

// IsPort reports whether h lies in the port handle range
func (h Handle) IsPort() bool {
	return h >= PortHandleBase
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%08x", uint32(h))
}

// PortAddedListener is notified when a port appears at a watched path.
// Notifications happen while the structure lock is held.
type PortAddedListener interface {
	OnPortAdded(path Path, port *Element)
}

// Registry maps handles to live elements and tracks path listeners for
// connectors that wait for ports to appear.
type Registry struct {
	mu         sync.RWMutex
	elements   map[Handle]*Element
	nextHandle Handle
	nextPort   Handle

	listenerMu    sync.Mutex
	pathListeners map[string][]PortAddedListener
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		elements:      make(map[Handle]*Element),
		nextHandle:    1,
		nextPort:      PortHandleBase,
		pathListeners: make(map[string][]PortAddedListener),
	}
}

// RegisterElement allocates a handle for e from the port or element range
func (r *Registry) RegisterElement(e *Element, isPort bool) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var h Handle
	if isPort {
		if r.nextPort > MaxHandle {
			return NilHandle, errors.WrapFatal(errors.ErrHandlesExhausted, "Registry", "RegisterElement", "port handle allocation")
		}
		h = r.nextPort
		r.nextPort++
	} else {
		if r.nextHandle >= PortHandleBase {
			return NilHandle, errors.WrapFatal(errors.ErrHandlesExhausted, "Registry", "RegisterElement", "element handle allocation")
		}
		h = r.nextHandle
		r.nextHandle++
	}
	r.elements[h] = e
	return h, nil
}

// UnregisterElement releases the table entry for h. The handle itself is not
// handed out again.
func (r *Registry) UnregisterElement(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.elements, h)
}

// Element returns the element with handle h, or nil if it does not exist or
// has been deleted
func (r *Registry) Element(h Handle) *Element {
	r.mu.RLock()
	e := r.elements[h]
	r.mu.RUnlock()
	if e == nil || e.IsDeleted() {
		return nil
	}
	return e
}

// Len returns the number of registered, not yet reclaimed elements
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.elements)
}

// AddPortAddedListener registers l for ports appearing at path
func (r *Registry) AddPortAddedListener(path Path, l PortAddedListener) {
	key := path.String()
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	for _, existing := range r.pathListeners[key] {
		if existing == l {
			return
		}
	}
	r.pathListeners[key] = append(r.pathListeners[key], l)
}

// RemovePortAddedListener unregisters l from path
func (r *Registry) RemovePortAddedListener(path Path, l PortAddedListener) {
	key := path.String()
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	list := r.pathListeners[key]
	for i, existing := range list {
		if existing == l {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.pathListeners, key)
		return
	}
	r.pathListeners[key] = list
}

// PathListenerCount returns the number of listeners watching path
func (r *Registry) PathListenerCount(path Path) int {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	return len(r.pathListeners[path.String()])
}

// notifyPortAdded informs listeners of every path port is reachable under.
// The listener list is copied first since listeners may unregister themselves.
func (r *Registry) notifyPortAdded(port *Element) {
	for _, p := range port.Paths() {
		key := p.String()
		r.listenerMu.Lock()
		listeners := append([]PortAddedListener(nil), r.pathListeners[key]...)
		r.listenerMu.Unlock()
		for _, l := range listeners {
			if port.IsDeleted() {
				return
			}
			l.OnPortAdded(p, port)
		}
	}
}
