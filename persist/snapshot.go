package persist

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

// Snapshot is the serialized structure of a subtree
type Snapshot struct {
	Runtime string `json:"runtime" yaml:"runtime"`
	Root    string `json:"root" yaml:"root"`
	Nodes   []Node `json:"nodes" yaml:"nodes"`
	Edges   []Edge `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Take captures the elements and connectors below root. The structure lock
// is held so the result is consistent.
func Take(root *element.Element, filter Filter, finstructedEdgesOnly bool) Snapshot {
	rt := root.Runtime()
	rt.Lock()
	defer rt.Unlock()
	return Snapshot{
		Runtime: rt.ID().String(),
		Root:    root.QualifiedName(),
		Nodes:   Enumerate(root, filter),
		Edges:   Connections(root, finstructedEdgesOnly),
	}
}

// Encode writes s to w as "json" or "yaml"
func (s Snapshot) Encode(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(err, "Snapshot", "Encode", "JSON encoding")
		}
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(err, "Snapshot", "Encode", "YAML encoding")
		}
		if err := enc.Close(); err != nil {
			return errors.Wrap(err, "Snapshot", "Encode", "YAML flush")
		}
	default:
		return errors.WrapInvalid(fmt.Errorf("%w: unsupported format %q", errors.ErrInvalidConfig, format),
			"Snapshot", "Encode", "format check")
	}
	return nil
}

// Decode reads a snapshot written by Encode
func Decode(r io.Reader, format string) (Snapshot, error) {
	var s Snapshot
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return s, errors.WrapInvalid(err, "Snapshot", "Decode", "JSON decoding")
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&s); err != nil {
			return s, errors.WrapInvalid(err, "Snapshot", "Decode", "YAML decoding")
		}
	default:
		return s, errors.WrapInvalid(fmt.Errorf("%w: unsupported format %q", errors.ErrInvalidConfig, format),
			"Snapshot", "Decode", "format check")
	}
	return s, nil
}
