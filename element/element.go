package element

import (
	"strings"
	"sync/atomic"

	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/pkg/cowlist"
)

const (
	// MaxLinks is the maximum number of links (primary plus secondary) per element
	MaxLinks = 127
	// DefaultMaxDepth bounds the hierarchy depth to catch runaway recursive construction
	DefaultMaxDepth = 100
)

// Lock order levels document the intended nesting when several runtime-like
// locks exist. Lower levels are acquired first.
const (
	LockOrderRuntimeRoot     = 100
	LockOrderRuntimeRegister = 200
	LockOrderLeafGroup       = 300
	LockOrderPort            = 400
)

// Initializer is implemented by element owners that prepare themselves during
// Init. It is called without the structure lock held, so it may construct
// children.
type Initializer interface {
	OnInitialization()
}

// DeleteHook is implemented by element owners that release resources when
// the element is deleted. It runs under the structure lock and must not call
// locking APIs of this package.
type DeleteHook interface {
	PrepareDelete()
}

// Destroyer is implemented by element owners that want to know when the
// element is physically released by the reclaimer.
type Destroyer interface {
	OnDestroy()
}

// Link attaches an element to a parent under a name. An element has one
// primary link and may have secondary links reachable from other parents.
type Link struct {
	name   atomic.Pointer[string]
	parent atomic.Pointer[Element]
	owner  *Element
	next   atomic.Pointer[Link]
}

// Name returns the link name
func (l *Link) Name() string {
	if n := l.name.Load(); n != nil {
		return *n
	}
	return ""
}

// setName is only called under the structure lock; readers may still hold
// the link through an older child snapshot.
func (l *Link) setName(name string) {
	l.name.Store(&name)
}

// Parent returns the parent the link is attached to, nil when unlinked
func (l *Link) Parent() *Element {
	return l.parent.Load()
}

// Owner returns the element the link belongs to
func (l *Link) Owner() *Element {
	return l.owner
}

// IsPrimary reports whether l is the primary link of its owner
func (l *Link) IsPrimary() bool {
	return l == &l.owner.primary
}

// Path returns the absolute path of this link. The parent is addressed by its
// primary path.
func (l *Link) Path() Path {
	var names []string
	names = append(names, l.Name())
	for p := l.parent.Load(); p != nil && !p.Flags().Has(FlagRuntime); p = p.primary.parent.Load() {
		names = append(names, p.primary.Name())
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return Path{names: names, absolute: true}
}

// Element is a node of the framework element tree
type Element struct {
	rt          *Runtime
	handle      Handle
	primary     Link
	flags       atomic.Uint32
	children    cowlist.List[*Link]
	annotations annotationSet
	owner       any
	lockOrder   int
	destroyed   atomic.Bool
}

// Option configures element construction
type Option func(*options)

type options struct {
	runtime   *Runtime
	owner     any
	lockOrder int
}

// WithRuntime selects the runtime for elements constructed without a parent.
// They are attached to the runtime's unrelated element.
func WithRuntime(rt *Runtime) Option {
	return func(o *options) {
		o.runtime = rt
	}
}

// WithOwner sets the object embedding the element. The owner receives the
// Initializer, DeleteHook and Destroyer callbacks it implements.
func WithOwner(owner any) Option {
	return func(o *options) {
		o.owner = owner
	}
}

// WithLockOrder overrides the lock order level
func WithLockOrder(level int) Option {
	return func(o *options) {
		o.lockOrder = level
	}
}

// New constructs an element below parent. A nil parent attaches the element
// to the unrelated element of the runtime given with WithRuntime.
// Passing status flags is an error. Exceeding the hierarchy depth panics.
func New(parent *Element, name string, flags Flag, opts ...Option) (*Element, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rt := o.runtime
	if parent != nil {
		rt = parent.rt
	}
	if rt == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidParent, "Element", "New", "runtime lookup")
	}
	if parent == nil {
		parent = rt.unrelated
	}
	return rt.newElement(parent, name, flags, o)
}

func validateName(name string) error {
	if name == "." || name == ".." || strings.Contains(name, PathSeparator) {
		return errors.WrapInvalid(errors.ErrInvalidName, "Element", "validateName", "name '"+name+"' check")
	}
	return nil
}

// Handle returns the element's handle
func (e *Element) Handle() Handle {
	return e.handle
}

// Runtime returns the runtime the element belongs to
func (e *Element) Runtime() *Runtime {
	return e.rt
}

// Owner returns the object embedding this element, or nil
func (e *Element) Owner() any {
	return e.owner
}

// LockOrder returns the element's lock order level
func (e *Element) LockOrder() int {
	return e.lockOrder
}

// Name returns the name of the primary link
func (e *Element) Name() string {
	return e.primary.Name()
}

// Parent returns the parent of the primary link
func (e *Element) Parent() *Element {
	return e.primary.parent.Load()
}

// Flags returns the complete flag word without locking
func (e *Element) Flags() Flag {
	return Flag(e.flags.Load())
}

// IsReady reports whether Init completed and the element is not deleted
func (e *Element) IsReady() bool {
	return e.Flags().Has(FlagReady)
}

// IsPublished reports whether the element was announced to listeners
func (e *Element) IsPublished() bool {
	f := e.Flags()
	return f.Has(FlagPublished) && !f.Has(FlagDeleted)
}

// IsDeleted reports whether ManagedDelete was called
func (e *Element) IsDeleted() bool {
	return e.Flags().Has(FlagDeleted)
}

// IsConstructing reports whether the element may still be modified structurally
func (e *Element) IsConstructing() bool {
	return !e.Flags().Any(FlagReady | FlagDeleted)
}

// IsPort reports whether the element is a port
func (e *Element) IsPort() bool {
	return e.Flags().Has(FlagPort)
}

// IsDestroyed reports whether the reclaimer has released the element
func (e *Element) IsDestroyed() bool {
	return e.destroyed.Load()
}

// setFlags sets and clears bits atomically and returns the previous word
func (e *Element) setFlags(set, clear Flag) Flag {
	for {
		old := e.flags.Load()
		updated := (old | uint32(set)) &^ uint32(clear)
		if e.flags.CompareAndSwap(old, updated) {
			return Flag(old)
		}
	}
}

// Links returns the primary link followed by all secondary links
func (e *Element) Links() []*Link {
	links := []*Link{&e.primary}
	for l := e.primary.next.Load(); l != nil; l = l.next.Load() {
		links = append(links, l)
	}
	return links
}

// LinkCount returns the number of links
func (e *Element) LinkCount() int {
	n := 1
	for l := e.primary.next.Load(); l != nil; l = l.next.Load() {
		n++
	}
	return n
}

// ChildLinks returns a snapshot of the links attached to this element
func (e *Element) ChildLinks() []*Link {
	return e.children.Snapshot()
}

// Children returns the non-deleted elements linked below this element
func (e *Element) Children() []*Element {
	links := e.children.Snapshot()
	children := make([]*Element, 0, len(links))
	for _, l := range links {
		if !l.owner.IsDeleted() {
			children = append(children, l.owner)
		}
	}
	return children
}

// ChildCount returns the number of non-deleted children
func (e *Element) ChildCount() int {
	n := 0
	e.children.Range(func(l *Link) bool {
		if !l.owner.IsDeleted() {
			n++
		}
		return true
	})
	return n
}

// Child returns the first non-deleted child linked under name
func (e *Element) Child(name string) *Element {
	var found *Element
	e.children.Range(func(l *Link) bool {
		if l.Name() == name && !l.owner.IsDeleted() {
			found = l.owner
			return false
		}
		return true
	})
	return found
}

// GetChild resolves a path relative to e, or from the runtime root when the
// path is absolute. It returns nil when no live element matches.
func (e *Element) GetChild(p Path) *Element {
	cur := e
	if p.IsAbsolute() {
		cur = e.rt.root
	}
	for _, name := range p.names {
		switch name {
		case ".":
		case "..":
			cur = cur.Parent()
		default:
			cur = cur.Child(name)
		}
		if cur == nil {
			return nil
		}
	}
	if cur.IsDeleted() {
		return nil
	}
	return cur
}

// Depth returns the number of primary ancestors below the runtime root
func (e *Element) Depth() int {
	depth := 0
	for p := e.Parent(); p != nil; p = p.Parent() {
		depth++
	}
	return depth
}

// IsChildOf reports whether ancestor is reachable by following primary links
// upwards from e
func (e *Element) IsChildOf(ancestor *Element) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// ParentWithFlags returns the closest primary ancestor with all flags set
func (e *Element) ParentWithFlags(flags Flag) *Element {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if p.Flags().Has(flags) {
			return p
		}
	}
	return nil
}

// Path returns the absolute path of the primary link
func (e *Element) Path() Path {
	if e.Flags().Has(FlagRuntime) {
		return Path{absolute: true}
	}
	return e.primary.Path()
}

// Paths returns the paths of all attached links
func (e *Element) Paths() []Path {
	var paths []Path
	for _, l := range e.Links() {
		if l.parent.Load() != nil {
			paths = append(paths, l.Path())
		}
	}
	return paths
}

// QualifiedName returns the primary path as a string
func (e *Element) QualifiedName() string {
	return e.Path().String()
}

func (e *Element) String() string {
	return e.QualifiedName()
}

// Walk visits e and its primary descendants depth first. Returning false from
// fn skips the children of the visited element.
func (e *Element) Walk(fn func(*Element) bool) {
	if e.IsDeleted() || !fn(e) {
		return
	}
	e.children.Range(func(l *Link) bool {
		if l.IsPrimary() {
			l.owner.Walk(fn)
		}
		return true
	})
}

// AddChild moves child's primary link below e. The child must still be
// under construction.
func (e *Element) AddChild(child *Element) error {
	e.rt.Lock()
	defer e.rt.Unlock()
	if !child.IsConstructing() {
		return errors.WrapInvalid(errors.ErrNotConstructing, "Element", "AddChild", "child state check")
	}
	return e.rt.addChildLocked(e, &child.primary)
}

// Link adds a secondary link below parent. Only allowed while constructing.
// Exceeding MaxLinks panics.
func (e *Element) Link(parent *Element, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	e.rt.Lock()
	defer e.rt.Unlock()

	if !e.IsConstructing() {
		return errors.WrapInvalid(errors.ErrNotConstructing, "Element", "Link", "state check")
	}
	if e.LinkCount() >= MaxLinks {
		errors.Fatal(errors.ErrLinkLimit, "Element", "Link", "link '"+name+"' creation")
	}

	l := &Link{owner: e}
	l.setName(name)
	if err := e.rt.addChildLocked(parent, l); err != nil {
		return err
	}
	tail := &e.primary
	for next := tail.next.Load(); next != nil; next = tail.next.Load() {
		tail = next
	}
	tail.next.Store(l)
	return nil
}

// SetName renames the primary link. Only allowed while constructing.
func (e *Element) SetName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	e.rt.Lock()
	defer e.rt.Unlock()

	if !e.IsConstructing() {
		return errors.WrapInvalid(errors.ErrNotConstructing, "Element", "SetName", "state check")
	}
	parent := e.primary.parent.Load()
	if parent == nil {
		e.primary.setName(name)
		return nil
	}
	parent.children.Remove(&e.primary)
	e.primary.parent.Store(nil)
	e.primary.setName(name)
	return e.rt.addChildLocked(parent, &e.primary)
}

// Init prepares e and all of its constructing descendants, marks them ready
// and publishes every element whose ancestors are all ready. It may be
// called again to pick up children added later.
func (e *Element) Init() {
	if e.IsDeleted() {
		return
	}
	e.initHooks()

	e.rt.Lock()
	defer e.rt.Unlock()
	e.markReadyLocked()
	e.publishLocked()
}

func (e *Element) initHooks() {
	if e.IsDeleted() {
		return
	}
	if e.IsConstructing() {
		if h, ok := e.owner.(Initializer); ok {
			h.OnInitialization()
		}
	}
	e.children.Range(func(l *Link) bool {
		if l.IsPrimary() {
			l.owner.initHooks()
		}
		return true
	})
}

func (e *Element) markReadyLocked() {
	if e.IsDeleted() {
		return
	}
	if e.IsConstructing() {
		e.checkNameClashLocked()
		e.setFlags(FlagReady, 0)
		e.annotations.notifyInitialized(e)
	}
	e.children.Range(func(l *Link) bool {
		if l.IsPrimary() {
			l.owner.markReadyLocked()
		}
		return true
	})
}

// checkNameClashLocked panics if a ready sibling of any link carries the same
// name and the parent does not rename automatically
func (e *Element) checkNameClashLocked() {
	for _, l := range e.Links() {
		parent := l.parent.Load()
		if parent == nil || parent.Flags().Has(FlagAutoRename) {
			continue
		}
		parent.children.Range(func(sibling *Link) bool {
			if sibling != l && sibling.Name() == l.Name() && sibling.owner.IsReady() {
				e.rt.logger.Error("Duplicate element name among ready siblings",
					"path", l.Path().String(), "handle", e.handle)
				errors.Fatal(errors.ErrNameClash, "Element", "Init", "publication of '"+l.Path().String()+"'")
			}
			return true
		})
	}
}

func (e *Element) allAncestorsReady() bool {
	if e.Flags().Has(FlagRuntime) {
		return true
	}
	for _, l := range e.Links() {
		parent := l.parent.Load()
		if parent == nil {
			// secondary links lose their parent when it is deleted
			if l.IsPrimary() {
				return false
			}
			continue
		}
		if !parent.IsReady() || !parent.allAncestorsReady() {
			return false
		}
	}
	return true
}

func (e *Element) publishLocked() {
	f := e.Flags()
	if f.Has(FlagDeleted) || !f.Has(FlagReady) {
		return
	}
	if !f.Has(FlagPublished) {
		if !e.allAncestorsReady() {
			return
		}
		e.setFlags(FlagPublished, 0)
		e.rt.elementPublishedLocked(e)
	}
	e.children.Range(func(l *Link) bool {
		l.owner.publishLocked()
		return true
	})
}

// MarkFinstructed sets the FINSTRUCTED status flag and announces the change
func (e *Element) MarkFinstructed() {
	e.rt.Lock()
	defer e.rt.Unlock()
	if e.IsDeleted() {
		return
	}
	old := e.setFlags(FlagFinstructed, 0)
	if !old.Has(FlagFinstructed) && old.Has(FlagPublished) {
		e.rt.notifyElementChange(ChangeStatus, e)
	}
}

// ManagedDelete deletes e and its subtree. Calling it on a deleted element
// does nothing. The element is released by the reclaimer later.
func (e *Element) ManagedDelete() {
	e.rt.Lock()
	defer e.rt.Unlock()
	e.managedDeleteLocked()
}

func (e *Element) managedDeleteLocked() {
	if e.Flags().Has(FlagRuntime) {
		return
	}
	old := e.setFlags(FlagDeleted, FlagReady)
	if old.Has(FlagDeleted) {
		return
	}

	e.annotations.notifyToBeDeleted(e)
	if h, ok := e.owner.(DeleteHook); ok {
		h.PrepareDelete()
	}

	for _, l := range e.children.Snapshot() {
		if l.IsPrimary() {
			l.owner.managedDeleteLocked()
			continue
		}
		if l.parent.CompareAndSwap(e, nil) {
			e.children.Remove(l)
		}
	}

	if old.Has(FlagPublished) {
		e.rt.notifyElementChange(ChangeRemove, e)
	}
	for _, l := range e.Links() {
		if parent := l.parent.Swap(nil); parent != nil {
			parent.children.Remove(l)
		}
	}
	e.rt.logger.Debug("Element deleted", "handle", e.handle, "name", e.primary.Name())
	e.rt.Retire(e, e.destroy)
}

func (e *Element) destroy() {
	if !e.IsDeleted() {
		errors.Fatal(errors.ErrNotManagedDelete, "Element", "destroy", "release of '"+e.primary.Name()+"'")
	}
	if !e.destroyed.CompareAndSwap(false, true) {
		return
	}
	if h, ok := e.owner.(Destroyer); ok {
		h.OnDestroy()
	}
	e.annotations.notifyDestroyed(e)
	e.rt.registry.UnregisterElement(e.handle)
	if e.rt.metrics != nil {
		e.rt.metrics.RecordElementRemoved(e.handle.IsPort())
	}
}
