// Package cowlist provides a copy-on-write list whose readers never block.
//
// Writers copy the backing slice and publish it atomically, so an iteration
// works on a stable snapshot while insertions and removals proceed. A reader
// may or may not observe a mutation that happens during its iteration. The
// element tree uses it for child sets and port connector sets.
package cowlist

import (
	"sync"
	"sync/atomic"
)

// List is a concurrent copy-on-write list of comparable values.
// The zero value is an empty list ready for use.
type List[T comparable] struct {
	mu    sync.Mutex
	items atomic.Pointer[[]T]
}

// Snapshot returns the current contents. The returned slice must not be modified.
func (l *List[T]) Snapshot() []T {
	p := l.items.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Len returns the number of values currently in the list
func (l *List[T]) Len() int {
	return len(l.Snapshot())
}

// Contains reports whether v is in the list
func (l *List[T]) Contains(v T) bool {
	for _, item := range l.Snapshot() {
		if item == v {
			return true
		}
	}
	return false
}

// Range calls fn for each value of a snapshot until fn returns false
func (l *List[T]) Range(fn func(T) bool) {
	for _, item := range l.Snapshot() {
		if !fn(item) {
			return
		}
	}
}

// Add appends v. It returns false if v is already present.
func (l *List[T]) Add(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.Snapshot()
	for _, item := range current {
		if item == v {
			return false
		}
	}
	next := make([]T, len(current), len(current)+1)
	copy(next, current)
	next = append(next, v)
	l.items.Store(&next)
	return true
}

// Remove deletes v. It returns false if v was not present.
func (l *List[T]) Remove(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.Snapshot()
	for i, item := range current {
		if item == v {
			next := make([]T, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			l.items.Store(&next)
			return true
		}
	}
	return false
}

// Clear removes all values and returns what was in the list
func (l *List[T]) Clear() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.Snapshot()
	l.items.Store(nil)
	return old
}
