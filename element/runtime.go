package element

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/framecore/errors"
	"github.com/c360/framecore/metric"
	"github.com/c360/framecore/pkg/cowlist"
	"github.com/c360/framecore/pkg/reclaim"
)

const (
	// RuntimeName is the name of the root element
	RuntimeName = "Runtime"
	// UnrelatedName is the name of the element collecting parentless elements
	UnrelatedName = "Unrelated"
)

// Dependencies holds the services a Runtime is built on
type Dependencies struct {
	// Registry allocates handles. A new registry is created when nil.
	Registry *Registry
	// Reclaimer releases deleted elements and connectors. When nil, release
	// happens immediately, which is only safe in single goroutine programs.
	Reclaimer *reclaim.Reclaimer
	// Metrics records element statistics (optional)
	Metrics *metric.Metrics
	Logger  *slog.Logger
	// MaxDepth bounds the hierarchy depth, DefaultMaxDepth when zero
	MaxDepth int
}

// Runtime is the root of an element tree. It owns the structure lock that
// guards every change to the tree and the connector graph.
type Runtime struct {
	mu sync.Mutex

	id        uuid.UUID
	registry  *Registry
	reclaimer *reclaim.Reclaimer
	metrics   *metric.Metrics
	logger    *slog.Logger
	maxDepth  int

	root      *Element
	unrelated *Element
	listeners cowlist.List[any]
}

// NewRuntime creates a runtime with its root and unrelated elements
func NewRuntime(deps Dependencies) (*Runtime, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if deps.MaxDepth <= 0 {
		deps.MaxDepth = DefaultMaxDepth
	}

	rt := &Runtime{
		id:        uuid.New(),
		registry:  deps.Registry,
		reclaimer: deps.Reclaimer,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With("component", "runtime"),
		maxDepth:  deps.MaxDepth,
	}

	root := &Element{rt: rt, lockOrder: LockOrderRuntimeRoot}
	root.primary.setName(RuntimeName)
	root.primary.owner = root
	root.flags.Store(uint32(FlagRuntime | FlagReady | FlagPublished))
	h, err := rt.registry.RegisterElement(root, false)
	if err != nil {
		return nil, errors.Wrap(err, "Runtime", "NewRuntime", "root registration")
	}
	root.handle = h
	rt.root = root

	unrelated, err := rt.newElement(root, UnrelatedName, 0, options{lockOrder: LockOrderRuntimeRegister})
	if err != nil {
		return nil, errors.Wrap(err, "Runtime", "NewRuntime", "unrelated element creation")
	}
	rt.unrelated = unrelated
	unrelated.Init()

	rt.logger.Debug("Runtime created", "id", rt.id.String(), "max_depth", rt.maxDepth)
	return rt, nil
}

// ID returns the instance id of this runtime
func (rt *Runtime) ID() uuid.UUID {
	return rt.id
}

// Root returns the runtime root element
func (rt *Runtime) Root() *Element {
	return rt.root
}

// Unrelated returns the element that collects elements constructed without parent
func (rt *Runtime) Unrelated() *Element {
	return rt.unrelated
}

// Registry returns the handle registry
func (rt *Runtime) Registry() *Registry {
	return rt.registry
}

// Reclaimer returns the deferred reclaimer, which may be nil
func (rt *Runtime) Reclaimer() *reclaim.Reclaimer {
	return rt.reclaimer
}

// Metrics returns the metrics recorder, which may be nil
func (rt *Runtime) Metrics() *metric.Metrics {
	return rt.metrics
}

// Logger returns the runtime logger
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Lock acquires the structure lock
func (rt *Runtime) Lock() {
	rt.mu.Lock()
}

// Unlock releases the structure lock
func (rt *Runtime) Unlock() {
	rt.mu.Unlock()
}

// Element returns the live element with handle h
func (rt *Runtime) Element(h Handle) *Element {
	return rt.registry.Element(h)
}

// FindPath resolves an absolute path (or a path relative to the root)
func (rt *Runtime) FindPath(p Path) *Element {
	return rt.root.GetChild(p)
}

// Retire hands object to the deferred reclaimer. Without a reclaimer destroy
// runs immediately.
func (rt *Runtime) Retire(object any, destroy func()) {
	if rt.reclaimer == nil {
		destroy()
		return
	}
	rt.reclaimer.Retire(object, destroy)
}

// Shutdown deletes every element below the root
func (rt *Runtime) Shutdown() {
	rt.Lock()
	defer rt.Unlock()
	for _, l := range rt.root.children.Snapshot() {
		l.owner.managedDeleteLocked()
	}
	rt.logger.Info("Runtime shut down", "id", rt.id.String())
}

func (rt *Runtime) newElement(parent *Element, name string, flags Flag, o options) (*Element, error) {
	if flags&StatusFlags != 0 {
		return nil, errors.WrapInvalid(errors.ErrStatusFlag, "Element", "New", "flag validation")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	e := &Element{rt: rt, owner: o.owner, lockOrder: o.lockOrder}
	if e.lockOrder == 0 {
		e.lockOrder = LockOrderLeafGroup
		if flags.Has(FlagPort) {
			e.lockOrder = LockOrderPort
		}
	}
	e.primary.setName(name)
	e.primary.owner = e
	e.flags.Store(uint32(flags))

	h, err := rt.registry.RegisterElement(e, flags.Has(FlagPort))
	if err != nil {
		return nil, err
	}
	e.handle = h

	rt.Lock()
	defer rt.Unlock()
	if err := rt.addChildLocked(parent, &e.primary); err != nil {
		rt.registry.UnregisterElement(h)
		return nil, err
	}
	if rt.metrics != nil {
		rt.metrics.RecordElementAdded(flags.Has(FlagPort))
	}
	return e, nil
}

// addChildLocked attaches link below parent. Invalid requests return an
// error, violated structural limits panic.
func (rt *Runtime) addChildLocked(parent *Element, link *Link) error {
	child := link.owner
	switch {
	case parent == nil:
		return errors.WrapInvalid(errors.ErrInvalidParent, "Element", "AddChild", "nil parent check")
	case parent == child || parent.IsChildOf(child):
		return errors.WrapInvalid(errors.ErrInvalidParent, "Element", "AddChild", "self parenting check")
	case parent.IsPort():
		return errors.WrapInvalid(errors.ErrInvalidParent, "Element", "AddChild", "port parent check")
	case parent.IsDeleted():
		return errors.WrapInvalid(errors.ErrElementDeleted, "Element", "AddChild", "parent state check")
	}

	if old := link.parent.Load(); old != nil {
		if old == parent {
			return nil
		}
		old.children.Remove(link)
		link.parent.Store(nil)
	}

	name := link.Name()
	if parent.Depth()+1 > rt.maxDepth {
		rt.logger.Error("Hierarchy depth exceeded", "parent", parent.QualifiedName(), "max_depth", rt.maxDepth)
		errors.Fatal(errors.ErrDepthExceeded, "Element", "AddChild", "attachment of '"+name+"'")
	}

	if sibling := parent.Child(name); sibling != nil {
		if parent.Flags().Has(FlagAutoRename) {
			link.setName(uniqueName(parent, name))
		} else if sibling.IsReady() && child.IsReady() {
			errors.Fatal(errors.ErrNameClash, "Element", "AddChild", "attachment of '"+name+"'")
		}
	}

	link.parent.Store(parent)
	parent.children.Add(link)
	return nil
}

// uniqueName returns base with the lowest free " (n)" suffix, n >= 2
func uniqueName(parent *Element, base string) string {
	for n := 2; ; n++ {
		candidate := base + " (" + strconv.Itoa(n) + ")"
		if parent.Child(candidate) == nil {
			return candidate
		}
	}
}

func (rt *Runtime) elementPublishedLocked(e *Element) {
	rt.notifyElementChange(ChangeAdd, e)
	if e.IsPort() {
		rt.registry.notifyPortAdded(e)
	}
}
