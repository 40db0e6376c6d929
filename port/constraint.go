package port

import (
	"fmt"
	"io"

	"github.com/c360/framecore/pkg/cowlist"
)

// Constraint vetoes connections that are otherwise legal
type Constraint interface {
	// Allow reports whether source may be connected to destination
	Allow(source, destination *Port) bool
	// Description is reported when the constraint rejects a connection
	Description() string
}

// ConstraintFunc adapts a function to the Constraint interface
type ConstraintFunc struct {
	Desc string
	Fn   func(source, destination *Port) bool
}

// Allow calls Fn
func (c *ConstraintFunc) Allow(source, destination *Port) bool {
	return c.Fn(source, destination)
}

// Description returns Desc
func (c *ConstraintFunc) Description() string {
	return c.Desc
}

type constraintEntry struct {
	constraint Constraint
}

// ConstraintRegistry holds the connection constraints of a runtime
type ConstraintRegistry struct {
	entries cowlist.List[*constraintEntry]
}

// NewConstraintRegistry creates an empty registry
func NewConstraintRegistry() *ConstraintRegistry {
	return &ConstraintRegistry{}
}

// Register adds c. Calling the returned function removes it again.
func (r *ConstraintRegistry) Register(c Constraint) (unregister func()) {
	entry := &constraintEntry{constraint: c}
	r.entries.Add(entry)
	return func() {
		r.entries.Remove(entry)
	}
}

// Len returns the number of registered constraints
func (r *ConstraintRegistry) Len() int {
	return r.entries.Len()
}

// Check evaluates all constraints and writes the description of every
// rejecting constraint to diag
func (r *ConstraintRegistry) Check(source, destination *Port, diag io.Writer) bool {
	allowed := true
	r.entries.Range(func(e *constraintEntry) bool {
		if !e.constraint.Allow(source, destination) {
			allowed = false
			if diag != nil {
				fmt.Fprintf(diag, "constraint '%s' rejects the connection; ", e.constraint.Description())
			}
		}
		return true
	})
	return allowed
}
