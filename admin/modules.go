package admin

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

// Limits applied to module parameters before a factory sees them
const (
	MaxParamsSize  = 1024 * 1024
	MaxParamsDepth = 10
)

// Factory creates a module below parent. It receives the raw JSON
// parameters and parses them itself. The returned element must still be
// under construction; CreateModule initializes it.
type Factory func(parent *element.Element, name string, params json.RawMessage) (*element.Element, error)

// ModuleType holds a factory and metadata for one kind of module
type ModuleType struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Version     string  `json:"version"`
	Factory     Factory `json:"-"`
}

// ModuleRegistry manages module factories by type name
type ModuleRegistry struct {
	mu    sync.RWMutex
	types map[string]*ModuleType
}

// NewModuleRegistry creates an empty registry
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{types: make(map[string]*ModuleType)}
}

// Register adds a module type. Returns an error if the name is taken.
func (r *ModuleRegistry) Register(mt ModuleType) error {
	if mt.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ModuleRegistry", "Register", "type name validation")
	}
	if mt.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ModuleRegistry", "Register", "factory function validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[mt.Name]; exists {
		return errors.WrapInvalid(errors.ErrModuleTypeRegistered, "ModuleRegistry", "Register",
			"duplicate check for '"+mt.Name+"'")
	}
	r.types[mt.Name] = &mt
	return nil
}

// Lookup returns the module type registered under name
func (r *ModuleRegistry) Lookup(name string) (*ModuleType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mt, ok := r.types[name]
	return mt, ok
}

// Types returns all registered module types sorted by name
func (r *ModuleRegistry) Types() []ModuleType {
	r.mu.RLock()
	result := make([]ModuleType, 0, len(r.types))
	for _, mt := range r.types {
		result = append(result, *mt)
	}
	r.mu.RUnlock()
	slices.SortFunc(result, func(a, b ModuleType) int { return strings.Compare(a.Name, b.Name) })
	return result
}

// validateParams rejects oversized or deeply nested parameter documents.
// Empty parameters are valid.
func validateParams(params json.RawMessage) error {
	if len(params) == 0 {
		return nil
	}
	if len(params) > MaxParamsSize {
		return errors.WrapInvalid(
			fmt.Errorf("%w: params size %d exceeds maximum %d", errors.ErrInvalidConfig, len(params), MaxParamsSize),
			"Admin", "validateParams", "size check")
	}

	decoder := json.NewDecoder(strings.NewReader(string(params)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Admin", "validateParams", "JSON parsing")
	}
	if depth := jsonDepth(value); depth > MaxParamsDepth {
		return errors.WrapInvalid(
			fmt.Errorf("%w: params depth %d exceeds maximum %d", errors.ErrInvalidConfig, depth, MaxParamsDepth),
			"Admin", "validateParams", "depth check")
	}
	return nil
}

func jsonDepth(value any) int {
	deepest := 0
	switch v := value.(type) {
	case map[string]any:
		for _, child := range v {
			deepest = max(deepest, jsonDepth(child))
		}
	case []any:
		for _, child := range v {
			deepest = max(deepest, jsonDepth(child))
		}
	default:
		return 0
	}
	return deepest + 1
}
