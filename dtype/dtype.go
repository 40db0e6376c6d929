// Package dtype is the type-system collaborator of the port layer. It
// provides comparable data type identifiers, an implicit convertibility
// predicate and explicit conversion operation sequences.
package dtype

import (
	"fmt"
	"strings"
	"sync"

	"github.com/c360/framecore/errors"
)

// Type identifies a port data type. Types are comparable; the zero value is
// the nil type.
type Type struct {
	uid  int
	name string
}

// Name returns the registered type name
func (t Type) Name() string {
	return t.name
}

// IsNil reports whether t is the zero type
func (t Type) IsNil() bool {
	return t.uid == 0
}

func (t Type) String() string {
	if t.IsNil() {
		return "<nil type>"
	}
	return t.name
}

type pair struct{ from, to int }

// Registry holds the known data types and the implicit conversions between them
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Type
	implicit map[pair]bool
	nextUID  int
}

// NewRegistry creates an empty type registry
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]Type),
		implicit: make(map[pair]bool),
		nextUID:  1,
	}
}

// Register returns the type with the given name, creating it on first use
func (r *Registry) Register(name string) (Type, error) {
	if strings.TrimSpace(name) == "" {
		return Type{}, errors.WrapInvalid(errors.ErrInvalidConfig, "TypeRegistry", "Register", "type name validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.byName[name]; ok {
		return t, nil
	}
	t := Type{uid: r.nextUID, name: name}
	r.nextUID++
	r.byName[name] = t
	return t, nil
}

// MustRegister is Register for static type tables; it panics on an empty name
func (r *Registry) MustRegister(name string) Type {
	t, err := r.Register(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup finds a type by name
func (r *Registry) Lookup(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// AddImplicitConversion declares that values of from may flow into ports of to
func (r *Registry) AddImplicitConversion(from, to Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.implicit[pair{from.uid, to.uid}] = true
}

// ImplicitlyConvertible reports whether from equals to or an implicit
// conversion was declared
func (r *Registry) ImplicitlyConvertible(from, to Type) bool {
	if from == to {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.implicit[pair{from.uid, to.uid}]
}

// ConversionOperation is one named step of an explicit type conversion
type ConversionOperation struct {
	Name string
	From Type
	To   Type
}

// ConversionSequence is an ordered list of conversion steps applied to values
// crossing a connector
type ConversionSequence []ConversionOperation

// Empty reports whether no conversion is requested
func (s ConversionSequence) Empty() bool {
	return len(s) == 0
}

// Validate checks that consecutive steps chain their types
func (s ConversionSequence) Validate() error {
	for i := 1; i < len(s); i++ {
		if s[i].From != s[i-1].To {
			return errors.WrapInvalid(
				fmt.Errorf("step %d (%s) expects %s but step %d produces %s", i, s[i].Name, s[i].From, i-1, s[i-1].To),
				"ConversionSequence", "Validate", "type chaining")
		}
	}
	return nil
}

// SourceType returns the type consumed by the first step
func (s ConversionSequence) SourceType() Type {
	if s.Empty() {
		return Type{}
	}
	return s[0].From
}

// ResultType returns the type produced by the last step
func (s ConversionSequence) ResultType() Type {
	if s.Empty() {
		return Type{}
	}
	return s[len(s)-1].To
}

// Converts reports whether the sequence maps from to to
func (s ConversionSequence) Converts(from, to Type) bool {
	return !s.Empty() && s.Validate() == nil && s.SourceType() == from && s.ResultType() == to
}

func (s ConversionSequence) String() string {
	names := make([]string, len(s))
	for i, op := range s {
		names[i] = op.Name
	}
	return strings.Join(names, " -> ")
}
