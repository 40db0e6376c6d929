package element

// ChangeType classifies a structural event
type ChangeType int

const (
	// ChangeAdd announces a published element or connector
	ChangeAdd ChangeType = iota
	// ChangeRemove announces a deleted element or disconnected connector
	ChangeRemove
	// ChangeStatus announces a status flag change
	ChangeStatus
)

func (c ChangeType) String() string {
	switch c {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeStatus:
		return "status"
	default:
		return "unknown"
	}
}

// RuntimeListener observes element changes. Callbacks run under the
// structure lock in a total order and must neither block nor modify the tree.
type RuntimeListener interface {
	OnElementChange(change ChangeType, e *Element)
}

// AddListener registers a listener. The value may implement RuntimeListener
// and any listener interface of the port layer. It must be comparable.
func (rt *Runtime) AddListener(l any) {
	rt.listeners.Add(l)
}

// RemoveListener unregisters a listener
func (rt *Runtime) RemoveListener(l any) {
	rt.listeners.Remove(l)
}

// Listeners returns a snapshot of all registered listeners
func (rt *Runtime) Listeners() []any {
	return rt.listeners.Snapshot()
}

func (rt *Runtime) notifyElementChange(change ChangeType, e *Element) {
	rt.listeners.Range(func(l any) bool {
		if rl, ok := l.(RuntimeListener); ok {
			rl.OnElementChange(change, e)
		}
		return true
	})
}
