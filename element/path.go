package element

import "strings"

// PathSeparator separates the names of a path
const PathSeparator = "/"

// Path is a sequence of element names. Absolute paths start at the runtime
// root, relative paths at some element. The segments "." and ".." refer to
// the element itself and its parent.
type Path struct {
	names    []string
	absolute bool
}

// ParsePath parses a slash separated path. Empty segments are dropped.
func ParsePath(s string) Path {
	p := Path{absolute: strings.HasPrefix(s, PathSeparator)}
	for _, name := range strings.Split(s, PathSeparator) {
		if name != "" {
			p.names = append(p.names, name)
		}
	}
	return p
}

// NewPath builds a path from names
func NewPath(absolute bool, names ...string) Path {
	return Path{names: append([]string(nil), names...), absolute: absolute}
}

// IsAbsolute reports whether the path starts at the runtime root
func (p Path) IsAbsolute() bool {
	return p.absolute
}

// Len returns the number of segments
func (p Path) Len() int {
	return len(p.names)
}

// Name returns segment i
func (p Path) Name(i int) string {
	return p.names[i]
}

// Names returns a copy of the segments
func (p Path) Names() []string {
	return append([]string(nil), p.names...)
}

// Append returns a new path with name added at the end
func (p Path) Append(name string) Path {
	names := make([]string, len(p.names), len(p.names)+1)
	copy(names, p.names)
	return Path{names: append(names, name), absolute: p.absolute}
}

// Parent returns the path without its last segment
func (p Path) Parent() Path {
	if len(p.names) == 0 {
		return p
	}
	return Path{names: p.names[:len(p.names)-1:len(p.names)-1], absolute: p.absolute}
}

// Equal compares two paths segment by segment
func (p Path) Equal(other Path) bool {
	if p.absolute != other.absolute || len(p.names) != len(other.names) {
		return false
	}
	for i := range p.names {
		if p.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	s := strings.Join(p.names, PathSeparator)
	if p.absolute {
		return PathSeparator + s
	}
	return s
}
