// Package persist is the surface a declarative loader builds on.
//
// Elements created from a configuration file are marked with SetFinstructed,
// which records the creation action and sets the FINSTRUCTED flag. Enumerate
// and Connections list a subtree's elements and connectors with their flags
// and tags, and Take bundles both into a Snapshot that can be written as JSON
// or YAML.
package persist
