package admin

import (
	"context"
	"sync"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

// Executable is a unit of execution that can be started and paused, such as
// a thread container or a task scheduler
type Executable interface {
	Start(ctx context.Context) error
	Pause() error
	IsRunning() bool
}

// ExecutionControl is an annotation giving uniform start/pause access to
// whatever executes the annotated element and its subtree
type ExecutionControl struct {
	mu      sync.Mutex
	element *element.Element
	target  Executable
}

// AttachExecutionControl annotates e with an execution control for target
func AttachExecutionControl(e *element.Element, target Executable) (*ExecutionControl, error) {
	if target == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "ExecutionControl", "Attach", "target validation")
	}
	c := &ExecutionControl{element: e, target: target}
	if err := element.Annotate(e, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Element returns the annotated element
func (c *ExecutionControl) Element() *element.Element {
	return c.element
}

// Start starts execution unless it is already running
func (c *ExecutionControl) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target.IsRunning() {
		return nil
	}
	if c.element.IsDeleted() {
		return errors.WrapInvalid(errors.ErrElementDeleted, "ExecutionControl", "Start", "element state check")
	}
	return c.target.Start(ctx)
}

// Pause pauses execution if it is running
func (c *ExecutionControl) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.target.IsRunning() {
		return nil
	}
	return c.target.Pause()
}

// IsRunning reports whether execution is currently running
func (c *ExecutionControl) IsRunning() bool {
	return c.target.IsRunning()
}

// AnnotatedObjectToBeDeleted pauses execution before the subtree goes away
func (c *ExecutionControl) AnnotatedObjectToBeDeleted(e *element.Element) {
	if err := c.Pause(); err != nil {
		e.Runtime().Logger().Warn("Pausing execution of deleted element failed",
			"element", e.QualifiedName(), "error", err)
	}
}

// FindExecutionControl returns the execution control responsible for e,
// which is the one on e or its closest ancestor
func FindExecutionControl(e *element.Element) *ExecutionControl {
	return element.FindAnnotation[ExecutionControl](e)
}

// FindAllExecutionControls returns the execution controls in e's subtree in
// depth first order. If there are none, the control responsible for e is
// returned.
func FindAllExecutionControls(e *element.Element) []*ExecutionControl {
	var result []*ExecutionControl
	e.Walk(func(cur *element.Element) bool {
		if c := element.GetAnnotation[ExecutionControl](cur); c != nil {
			result = append(result, c)
		}
		return true
	})
	if len(result) == 0 {
		if c := FindExecutionControl(e); c != nil {
			result = append(result, c)
		}
	}
	return result
}
