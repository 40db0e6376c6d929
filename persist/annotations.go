package persist

import (
	"encoding/json"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

// CreateAction records how a declaratively managed element was created, so a
// loader can repeat the creation
type CreateAction struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

type yamlCreateAction struct {
	Action string `yaml:"action"`
	Params string `yaml:"params,omitempty"`
}

// MarshalYAML writes the parameters as JSON text
func (a CreateAction) MarshalYAML() (any, error) {
	return yamlCreateAction{Action: a.Action, Params: string(a.Params)}, nil
}

// UnmarshalYAML reads parameters written by MarshalYAML
func (a *CreateAction) UnmarshalYAML(node *yaml.Node) error {
	var y yamlCreateAction
	if err := node.Decode(&y); err != nil {
		return err
	}
	a.Action = y.Action
	a.Params = nil
	if y.Params != "" {
		a.Params = json.RawMessage(y.Params)
	}
	return nil
}

// SetFinstructed marks e as declaratively managed. It stores the creation
// action as annotation and sets the FINSTRUCTED flag.
func SetFinstructed(e *element.Element, action string, params json.RawMessage) error {
	if action == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "persist", "SetFinstructed", "action validation")
	}
	if params != nil && !json.Valid(params) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "persist", "SetFinstructed", "params validation")
	}
	a := &CreateAction{Action: action, Params: slices.Clone(params)}
	if err := element.Annotate(e, a); err != nil {
		return errors.Wrap(err, "persist", "SetFinstructed", "create action annotation")
	}
	e.MarkFinstructed()
	return nil
}

// CreateActionOf returns the creation action of a finstructed element
func CreateActionOf(e *element.Element) *CreateAction {
	return element.GetAnnotation[CreateAction](e)
}

// Tags is an annotation holding free-form labels of an element
type Tags struct {
	mu   sync.RWMutex
	tags []string
}

// AddTags attaches tags to e. Duplicates are ignored.
func AddTags(e *element.Element, tags ...string) error {
	t := element.GetAnnotation[Tags](e)
	if t == nil {
		t = &Tags{}
		if err := element.Annotate(e, t); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tag := range tags {
		if !slices.Contains(t.tags, tag) {
			t.tags = append(t.tags, tag)
		}
	}
	return nil
}

// TagsOf returns the tags of e in the order they were added
func TagsOf(e *element.Element) []string {
	t := element.GetAnnotation[Tags](e)
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.tags)
}
