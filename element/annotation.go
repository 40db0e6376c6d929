package element

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/c360/framecore/errors"
)

// InitializationObserver is implemented by annotations that react to the
// annotated element becoming ready
type InitializationObserver interface {
	AnnotatedObjectInitialized(e *Element)
}

// DeletionObserver is implemented by annotations that react to ManagedDelete
type DeletionObserver interface {
	AnnotatedObjectToBeDeleted(e *Element)
}

// DestructionObserver is implemented by annotations that release resources
// when the element is physically released
type DestructionObserver interface {
	AnnotatedObjectDestroyed(e *Element)
}

type annotationEntry struct {
	key   reflect.Type
	value any
}

// annotationSet is an append-only typed collection. Readers load the current
// slice without locking.
type annotationSet struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]annotationEntry]
}

func (s *annotationSet) snapshot() []annotationEntry {
	p := s.entries.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (s *annotationSet) get(key reflect.Type) any {
	for _, entry := range s.snapshot() {
		if entry.key == key {
			return entry.value
		}
	}
	return nil
}

func (s *annotationSet) add(key reflect.Type, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.snapshot()
	for _, entry := range current {
		if entry.key == key {
			return false
		}
	}
	updated := make([]annotationEntry, len(current), len(current)+1)
	copy(updated, current)
	updated = append(updated, annotationEntry{key: key, value: value})
	s.entries.Store(&updated)
	return true
}

func (s *annotationSet) notifyInitialized(e *Element) {
	for _, entry := range s.snapshot() {
		if o, ok := entry.value.(InitializationObserver); ok {
			o.AnnotatedObjectInitialized(e)
		}
	}
}

func (s *annotationSet) notifyToBeDeleted(e *Element) {
	for _, entry := range s.snapshot() {
		if o, ok := entry.value.(DeletionObserver); ok {
			o.AnnotatedObjectToBeDeleted(e)
		}
	}
}

func (s *annotationSet) notifyDestroyed(e *Element) {
	for _, entry := range s.snapshot() {
		if o, ok := entry.value.(DestructionObserver); ok {
			o.AnnotatedObjectDestroyed(e)
		}
	}
}

// Annotate attaches a to e. There is at most one annotation per type and
// annotations are only removed together with the element. If e is already
// ready, an InitializationObserver is notified right away.
func Annotate[T any](e *Element, a *T) error {
	if a == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Element", "Annotate", "nil annotation check")
	}
	if e.IsDeleted() {
		return errors.WrapInvalid(errors.ErrElementDeleted, "Element", "Annotate", "element state check")
	}
	if !e.annotations.add(reflect.TypeOf((*T)(nil)).Elem(), a) {
		return errors.WrapInvalid(errors.ErrAnnotationExists, "Element", "Annotate", reflect.TypeOf((*T)(nil)).Elem().String()+" attachment")
	}
	if e.IsReady() {
		if o, ok := any(a).(InitializationObserver); ok {
			o.AnnotatedObjectInitialized(e)
		}
	}
	return nil
}

// GetAnnotation returns the annotation of type T attached to e, or nil
func GetAnnotation[T any](e *Element) *T {
	if v := e.annotations.get(reflect.TypeOf((*T)(nil)).Elem()); v != nil {
		return v.(*T)
	}
	return nil
}

// FindAnnotation returns the annotation of type T on e or its closest primary
// ancestor carrying one
func FindAnnotation[T any](e *Element) *T {
	for cur := e; cur != nil; cur = cur.Parent() {
		if a := GetAnnotation[T](cur); a != nil {
			return a
		}
	}
	return nil
}
