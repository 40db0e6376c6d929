package persist

import (
	"github.com/c360/framecore/element"
	"github.com/c360/framecore/port"
)

// Node is the serializable view of one element
type Node struct {
	Handle element.Handle `json:"handle" yaml:"handle"`
	Path   string         `json:"path" yaml:"path"`
	Flags  string         `json:"flags" yaml:"flags"`
	Port   bool           `json:"port,omitempty" yaml:"port,omitempty"`
	Tags   []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Links  []string       `json:"links,omitempty" yaml:"links,omitempty"` // secondary paths
	Action *CreateAction  `json:"action,omitempty" yaml:"action,omitempty"`
}

// Edge is the serializable view of one connector
type Edge struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Flags       string `json:"flags" yaml:"flags"`
	Finstructed bool   `json:"finstructed,omitempty" yaml:"finstructed,omitempty"`
}

// Filter selects elements during enumeration. Returning descend=false
// skips the element's children.
type Filter func(e *element.Element) (include, descend bool)

// All includes every element
func All(*element.Element) (bool, bool) {
	return true, true
}

// FinstructedOnly includes declaratively managed elements and does not
// descend into them, since their creation action recreates the subtree
func FinstructedOnly(e *element.Element) (bool, bool) {
	if e.Flags().Has(element.FlagFinstructed) {
		return true, false
	}
	return false, true
}

// Enumerate returns the ready elements below root in depth first order.
// root itself is not included.
func Enumerate(root *element.Element, filter Filter) []Node {
	if filter == nil {
		filter = All
	}
	var nodes []Node
	root.Walk(func(e *element.Element) bool {
		if e == root {
			return true
		}
		if !e.IsReady() {
			return false
		}
		include, descend := filter(e)
		if include {
			nodes = append(nodes, nodeOf(e))
		}
		return descend
	})
	return nodes
}

func nodeOf(e *element.Element) Node {
	n := Node{
		Handle: e.Handle(),
		Path:   e.QualifiedName(),
		Flags:  e.Flags().String(),
		Port:   e.IsPort(),
		Tags:   TagsOf(e),
		Action: CreateActionOf(e),
	}
	for _, l := range e.Links() {
		if !l.IsPrimary() && l.Parent() != nil {
			n.Links = append(n.Links, l.Path().String())
		}
	}
	return n
}

// Connections returns the connectors leaving ports below root. With
// finstructedOnly set, only connectors created with the FINSTRUCTED flag are
// returned.
func Connections(root *element.Element, finstructedOnly bool) []Edge {
	var edges []Edge
	root.Walk(func(e *element.Element) bool {
		p := port.FromElement(e)
		if p == nil {
			return true
		}
		for _, c := range p.Outgoing() {
			finstructed := c.Flags().Has(port.ConnectFinstructed)
			if finstructedOnly && !finstructed {
				continue
			}
			edges = append(edges, Edge{
				Source:      c.Source().QualifiedName(),
				Destination: c.Destination().QualifiedName(),
				Flags:       c.Flags().String(),
				Finstructed: finstructed,
			})
		}
		return true
	})
	return edges
}
